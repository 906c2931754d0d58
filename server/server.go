// Package server is the portal's presentation layer: it renders the
// sign-in and dashboard views and translates form submissions into flow
// controller operations. Session presence alone decides which view a
// visitor lands on.
package server

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campuspay/portal-auth/authflow"
	"github.com/campuspay/portal-auth/identity"
	"github.com/campuspay/portal-auth/internal/config"
	"github.com/campuspay/portal-auth/server/viewsession"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	provider *identity.Client
	views    *viewsession.Manager
	log      zerolog.Logger
}

func New(cfg config.Config, provider *identity.Client, logger zerolog.Logger) (*Server, error) {
	if provider == nil {
		return nil, errors.New("[server.New] identity provider client is required")
	}

	s := &Server{
		env:      cfg.Env,
		mux:      http.NewServeMux(),
		config:   cfg,
		provider: provider,
		log:      logger,
	}

	s.views = viewsession.NewManager(
		cfg.CookieSecret,
		cfg.CookieMaxAge,
		!cfg.IsDev(),
		s.newController,
	)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// newController builds the flow controller for a fresh view session. The
// router collaborator logs navigation signals; the HTTP handlers realize
// them as redirects computed from controller state.
func (s *Server) newController() (*authflow.Controller, error) {
	return authflow.New(
		s.provider,
		authflow.RouterFuncs{
			Dashboard: func() { s.log.Debug().Str("to", RouteDashboard).Msg("navigate") },
			Root:      func() { s.log.Debug().Str("to", RouteRoot).Msg("navigate") },
		},
		authflow.WithLogger(s.log),
	)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.log.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}
