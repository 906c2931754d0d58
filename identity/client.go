// Package identity implements the credential-exchange client for the
// CampusPay identity provider: a password-grant token request trading an
// email/password pair for session tokens and a user record.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/campuspay/portal-auth/credentials"
	"github.com/campuspay/portal-auth/session"
)

const (
	tokenPath  = "/auth/v1/token"
	healthPath = "/auth/v1/health"

	defaultTimeout = 10 * time.Second
)

// Config holds the settings needed to reach the identity provider.
type Config struct {
	// BaseURL is the provider root, e.g. "https://id.campuspay.io".
	BaseURL string

	// ClientID identifies this portal to the provider. Optional; the
	// provider treats the portal as a public client.
	ClientID string

	// Timeout bounds every credential-exchange request. Zero means the
	// default of ten seconds.
	Timeout time.Duration

	// Logger for exchange outcomes. A zero Logger disables logging.
	Logger zerolog.Logger
}

// Client issues credential-exchange and refresh requests against the
// identity provider. A Client is safe for concurrent use.
type Client struct {
	conf    *oauth2.Config
	http    *http.Client
	probe   *retryablehttp.Client
	baseURL string
	log     zerolog.Logger
	nowTime func() time.Time
}

// Option modifies a Client during construction.
type Option func(*Client)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates an identity provider client.
func New(cfg Config, options ...Option) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("[identity.New] BaseURL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	probe := retryablehttp.NewClient()
	probe.HTTPClient.Timeout = timeout
	probe.RetryMax = 2
	probe.RetryWaitMin = 100 * time.Millisecond
	probe.RetryWaitMax = 500 * time.Millisecond
	probe.Logger = nil

	client := &Client{
		conf: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL: base + tokenPath,
				// Pinned so the oauth2 package never falls back to a
				// second request with a different auth style: exactly one
				// credential-exchange request per Exchange call.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:    &http.Client{Timeout: timeout},
		probe:   probe,
		baseURL: base,
		log:     cfg.Logger,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// ExchangePassword trades the credentials for a Session via the password
// grant. The email travels in the grant's standard "username" parameter.
// Exactly one HTTP request is issued per call and no retry is attempted;
// retrying a failed login is the user's decision.
func (c *Client) ExchangePassword(ctx context.Context, creds credentials.Credentials) (*session.Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.conf.PasswordCredentialsToken(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, c.classifyExchangeError(err)
	}

	user, err := userFromToken(tok)
	if err != nil {
		c.log.Warn().Err(err).Msg("credential exchange returned malformed payload")
		return nil, err
	}

	if tok.RefreshToken == "" {
		c.log.Warn().Msg("credential exchange response missing refresh_token")
		return nil, errors.Wrap(ErrMalformedPayload, "missing refresh_token")
	}

	c.log.Debug().Str("user_id", user.ID).Msg("credential exchange succeeded")
	return session.New(tok.AccessToken, tok.RefreshToken, user, c.nowTime()), nil
}

// RefreshSession exchanges the session's refresh token for fresh tokens.
// Providers that omit the user record from refresh responses keep the
// current session's user, which is immutable anyway.
func (c *Client) RefreshSession(ctx context.Context, current *session.Session) (*session.Session, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	src := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, c.classifyExchangeError(err)
	}

	user := current.User
	if refreshed, err := userFromToken(tok); err == nil {
		user = refreshed
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}

	c.log.Debug().Str("user_id", user.ID).Msg("session refreshed")
	return session.New(tok.AccessToken, refreshToken, user, c.nowTime()), nil
}

// Health probes the provider's health endpoint. The probe is idempotent,
// so transient failures are retried, unlike the credential exchange.
func (c *Client) Health(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return errors.Wrap(err, "[identity.Health] build request")
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return errors.Wrap(ErrProviderUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(ErrProviderUnreachable, fmt.Sprintf("health status %d", resp.StatusCode))
	}
	return nil
}

// classifyExchangeError folds oauth2 errors into the package taxonomy.
// A *oauth2.RetrieveError means the provider answered and said no; any
// other failure means no usable response arrived.
func (c *Client) classifyExchangeError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		c.log.Debug().Int("status", retrieve.Response.StatusCode).Msg("provider rejected credentials")
		return errors.Wrap(ErrInvalidCredentials, fmt.Sprintf("provider status %d", retrieve.Response.StatusCode))
	}
	c.log.Warn().Err(err).Msg("credential exchange transport failure")
	return errors.Wrap(ErrProviderUnreachable, err.Error())
}

// providerUser is the wire shape of the user record inside the token
// response: {id, email, user_metadata: {institution_id, role}}.
type providerUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		InstitutionID string       `json:"institution_id"`
		Role          session.Role `json:"role"`
	} `json:"user_metadata"`
}

// userFromToken extracts and validates the user record carried alongside
// the tokens. Anything missing makes the whole payload unusable.
func userFromToken(tok *oauth2.Token) (session.UserRecord, error) {
	raw := tok.Extra("user")
	if raw == nil {
		return session.UserRecord{}, errors.Wrap(ErrMalformedPayload, "missing user record")
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return session.UserRecord{}, errors.Wrap(ErrMalformedPayload, "user record not an object")
	}

	var pu providerUser
	if err := json.Unmarshal(encoded, &pu); err != nil {
		return session.UserRecord{}, errors.Wrap(ErrMalformedPayload, "user record not an object")
	}

	if pu.ID == "" || pu.Email == "" {
		return session.UserRecord{}, errors.Wrap(ErrMalformedPayload, "user record missing id or email")
	}
	if pu.UserMetadata.InstitutionID == "" || pu.UserMetadata.Role == "" {
		return session.UserRecord{}, errors.Wrap(ErrMalformedPayload, "user record missing institution metadata")
	}

	return session.UserRecord{
		ID:            pu.ID,
		Email:         pu.Email,
		Role:          pu.UserMetadata.Role,
		InstitutionID: pu.UserMetadata.InstitutionID,
	}, nil
}
