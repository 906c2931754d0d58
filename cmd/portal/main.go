package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campuspay/portal-auth/identity"
	"github.com/campuspay/portal-auth/internal/config"
	"github.com/campuspay/portal-auth/server"
)

func main() {
	logger := newLogger()
	for {
		if err := run(logger); err != nil {
			logger.Fatal().Err(err).Msg("error running portal")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	logger.Info().Msg("portal stopped")
}

func run(logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "config.New")
	}
	displayAppname(cfg.AppName)

	provider, err := identity.New(identity.Config{
		BaseURL:  cfg.ProviderURL,
		ClientID: cfg.ProviderClientID,
		Timeout:  cfg.ProviderTimeout,
		Logger:   logger,
	})
	if err != nil {
		return errors.Wrap(err, "identity.New")
	}

	portal, err := server.New(cfg, provider, logger)
	if err != nil {
		return errors.Wrap(err, "server.New")
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr(), Handler: portal}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("portal listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
