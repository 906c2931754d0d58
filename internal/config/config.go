// Package config loads the portal's configuration from environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the portal needs at startup.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"CampusPay Portal"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// ProviderURL is the identity provider root, e.g.
	// "https://id.campuspay.io".
	ProviderURL string `env:"PROVIDER_URL" envDefault:"http://localhost:9999"`

	// ProviderClientID identifies this portal to the provider. Optional.
	ProviderClientID string `env:"PROVIDER_CLIENT_ID"`

	// ProviderTimeout bounds each credential-exchange request.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// CookieSecret signs the view-session cookie. Must be set outside DEV.
	CookieSecret string `env:"COOKIE_SECRET" envDefault:"dev-only-cookie-secret"`

	// CookieMaxAge is the view-session cookie lifetime in seconds.
	CookieMaxAge int `env:"COOKIE_MAX_AGE" envDefault:"86400"`
}

// New parses the configuration from the environment.
func New() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address for http.Server, ":8080" style.
func (c Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// IsDev reports whether the portal runs in the development environment.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, "DEV")
}
