package credentials_test

import (
	"testing"

	"github.com/campuspay/portal-auth/credentials"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "admin@example.com",
			Password: "correct-password",
		})
		require.Empty(t, errs)
	})

	t.Run("missing email", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailRequired, errs[credentials.FieldEmail])
	})

	t.Run("missing password", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email: "admin@example.com",
		})
		require.Equal(t, credentials.MsgPasswordRequired, errs[credentials.FieldPassword])
	})

	t.Run("both missing", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{})
		require.Len(t, errs, 2)
		require.Equal(t, credentials.MsgEmailRequired, errs[credentials.FieldEmail])
		require.Equal(t, credentials.MsgPasswordRequired, errs[credentials.FieldPassword])
	})

	t.Run("whitespace-only email", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "   ",
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailRequired, errs[credentials.FieldEmail])
	})

	t.Run("email without at sign", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "adminexample.com",
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailInvalid, errs[credentials.FieldEmail])
	})

	t.Run("email without domain dot", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "admin@example",
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailInvalid, errs[credentials.FieldEmail])
	})

	t.Run("email ending in dot", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "admin@example.",
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailInvalid, errs[credentials.FieldEmail])
	})

	t.Run("email with embedded space", func(t *testing.T) {
		errs := credentials.Validate(credentials.Credentials{
			Email:    "ad min@example.com",
			Password: "password123",
		})
		require.Equal(t, credentials.MsgEmailInvalid, errs[credentials.FieldEmail])
	})

	t.Run("input is not mutated", func(t *testing.T) {
		creds := credentials.Credentials{Email: "admin@example.com", Password: "pw"}
		_ = credentials.Validate(creds)
		require.Equal(t, "admin@example.com", creds.Email)
		require.Equal(t, "pw", creds.Password)
	})
}
