package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/portal-auth/credentials"
	"github.com/campuspay/portal-auth/identity"
	"github.com/campuspay/portal-auth/identity/identitytest"
	"github.com/campuspay/portal-auth/session"
)

var adminUser = session.UserRecord{
	ID:            "user-1",
	Email:         "admin@example.com",
	Role:          session.RoleInstitutionAdmin,
	InstitutionID: "inst-42",
}

func newProviderAndClient(t *testing.T) (*identitytest.Provider, *identity.Client) {
	t.Helper()

	provider := identitytest.New()
	t.Cleanup(provider.Close)
	require.NoError(t, provider.AddUser("admin@example.com", "correct-password", adminUser))

	client, err := identity.New(identity.Config{BaseURL: provider.URL()})
	require.NoError(t, err)
	return provider, client
}

func TestNew(t *testing.T) {
	t.Run("requires base URL", func(t *testing.T) {
		_, err := identity.New(identity.Config{})
		require.Error(t, err)
	})
}

func TestClient_ExchangePassword(t *testing.T) {
	t.Run("accepted credentials produce a session", func(t *testing.T) {
		_, client := newProviderAndClient(t)

		sess, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		require.NoError(t, err)
		require.Equal(t, adminUser, sess.User)
		require.NotEmpty(t, sess.AccessToken)
		require.NotEmpty(t, sess.RefreshToken)
		require.False(t, sess.ExpiresAt.IsZero())
	})

	t.Run("rejected credentials", func(t *testing.T) {
		_, client := newProviderAndClient(t)

		sess, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "invalid@example.com",
			Password: "wrongpassword",
		})
		require.Nil(t, sess)
		require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("exactly one request per invocation", func(t *testing.T) {
		provider, client := newProviderAndClient(t)

		_, _ = client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "invalid@example.com",
			Password: "wrongpassword",
		})
		require.Equal(t, 1, provider.TokenRequests())
	})

	t.Run("transport failure", func(t *testing.T) {
		provider := identitytest.New()
		client, err := identity.New(identity.Config{BaseURL: provider.URL()})
		require.NoError(t, err)
		provider.Close()

		sess, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		require.Nil(t, sess)
		require.ErrorIs(t, err, identity.ErrProviderUnreachable)
	})
}

func TestClient_ExchangePassword_MalformedPayloads(t *testing.T) {
	serveBody := func(t *testing.T, body map[string]interface{}) *identity.Client {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		}))
		t.Cleanup(srv.Close)

		client, err := identity.New(identity.Config{BaseURL: srv.URL})
		require.NoError(t, err)
		return client
	}

	exchange := func(client *identity.Client) error {
		_, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		return err
	}

	t.Run("missing user record", func(t *testing.T) {
		client := serveBody(t, map[string]interface{}{
			"access_token":  "token",
			"refresh_token": "refresh",
		})
		require.ErrorIs(t, exchange(client), identity.ErrMalformedPayload)
	})

	t.Run("missing institution metadata", func(t *testing.T) {
		client := serveBody(t, map[string]interface{}{
			"access_token":  "token",
			"refresh_token": "refresh",
			"user": map[string]interface{}{
				"id":    "user-1",
				"email": "admin@example.com",
			},
		})
		require.ErrorIs(t, exchange(client), identity.ErrMalformedPayload)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		client := serveBody(t, map[string]interface{}{
			"access_token": "token",
			"user": map[string]interface{}{
				"id":    "user-1",
				"email": "admin@example.com",
				"user_metadata": map[string]interface{}{
					"institution_id": "inst-42",
					"role":           "institution_admin",
				},
			},
		})
		require.ErrorIs(t, exchange(client), identity.ErrMalformedPayload)
	})

	t.Run("missing access token is transport-class", func(t *testing.T) {
		client := serveBody(t, map[string]interface{}{
			"refresh_token": "refresh",
		})
		err := exchange(client)
		require.Error(t, err)
		require.NotErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}

func TestClient_RefreshSession(t *testing.T) {
	t.Run("rotates tokens and keeps the user", func(t *testing.T) {
		_, client := newProviderAndClient(t)

		sess, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		require.NoError(t, err)

		refreshed, err := client.RefreshSession(context.Background(), sess)
		require.NoError(t, err)
		require.Equal(t, adminUser, refreshed.User)
		require.NotEqual(t, sess.RefreshToken, refreshed.RefreshToken)
	})

	t.Run("spent refresh token is rejected", func(t *testing.T) {
		_, client := newProviderAndClient(t)

		sess, err := client.ExchangePassword(context.Background(), credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		require.NoError(t, err)

		_, err = client.RefreshSession(context.Background(), sess)
		require.NoError(t, err)

		_, err = client.RefreshSession(context.Background(), sess)
		require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("requires a refresh token", func(t *testing.T) {
		_, client := newProviderAndClient(t)

		_, err := client.RefreshSession(context.Background(), nil)
		require.True(t, errors.Is(err, identity.ErrNoRefreshToken))

		_, err = client.RefreshSession(context.Background(), &session.Session{})
		require.True(t, errors.Is(err, identity.ErrNoRefreshToken))
	})
}

func TestClient_Health(t *testing.T) {
	t.Run("healthy provider", func(t *testing.T) {
		_, client := newProviderAndClient(t)
		require.NoError(t, client.Health(context.Background()))
	})

	t.Run("unreachable provider", func(t *testing.T) {
		provider := identitytest.New()
		client, err := identity.New(identity.Config{BaseURL: provider.URL()})
		require.NoError(t, err)
		provider.Close()

		require.ErrorIs(t, client.Health(context.Background()), identity.ErrProviderUnreachable)
	})
}
