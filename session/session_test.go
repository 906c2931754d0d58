package session_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/campuspay/portal-auth/session"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

func TestAccessTokenExpiry(t *testing.T) {
	t.Run("extracts exp claim", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		raw := signedToken(t, jwtlib.MapClaims{
			"sub": "user-1",
			"exp": exp.Unix(),
		})

		got, err := session.AccessTokenExpiry(raw)
		require.NoError(t, err)
		require.True(t, got.Equal(exp))
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := session.AccessTokenExpiry("")
		require.Error(t, err)
	})

	t.Run("not a JWT", func(t *testing.T) {
		_, err := session.AccessTokenExpiry("opaque-token-value")
		require.Error(t, err)
	})

	t.Run("missing exp claim", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{"sub": "user-1"})
		_, err := session.AccessTokenExpiry(raw)
		require.Error(t, err)
	})
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	t.Run("derives expiry from access token", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{
			"sub": "user-1",
			"exp": now.Add(time.Hour).Unix(),
		})
		sess := session.New(raw, "refresh-token", session.UserRecord{ID: "user-1"}, now)
		require.False(t, sess.ExpiresAt.IsZero())
		require.False(t, sess.Expired(now))
		require.True(t, sess.Expired(now.Add(2*time.Hour)))
	})

	t.Run("opaque token never expires client-side", func(t *testing.T) {
		sess := session.New("opaque-token", "refresh-token", session.UserRecord{ID: "user-1"}, now)
		require.True(t, sess.ExpiresAt.IsZero())
		require.False(t, sess.Expired(now.Add(1000*time.Hour)))
	})

	t.Run("nil session is not expired", func(t *testing.T) {
		var sess *session.Session
		require.False(t, sess.Expired(now))
	})
}
