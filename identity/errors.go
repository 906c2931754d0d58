package identity

import "errors"

var (
	// ErrInvalidCredentials is returned when the provider answered the
	// credential exchange but rejected the credentials. It is deliberately
	// not field-specific so callers cannot leak which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnreachable is returned when no usable response arrived
	// from the provider (connection refused, timeout, DNS failure).
	ErrProviderUnreachable = errors.New("identity provider unreachable")

	// ErrMalformedPayload is returned when the provider answered 2xx but
	// the payload is missing tokens or a well-formed user record. Callers
	// treat it the same way as a transport failure.
	ErrMalformedPayload = errors.New("malformed provider payload")

	// ErrNoRefreshToken is returned when a session refresh is requested
	// for a session that carries no refresh token.
	ErrNoRefreshToken = errors.New("session has no refresh token")
)
