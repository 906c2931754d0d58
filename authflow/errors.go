package authflow

import "errors"

var (
	ErrValidationFailed     = errors.New("validation failed")
	ErrSubmitInFlight       = errors.New("submit already in flight")
	ErrAlreadyAuthenticated = errors.New("a session is already live")
	ErrNotAuthenticated     = errors.New("no live session")
	ErrStaleResponse        = errors.New("stale response discarded")
	ErrControllerDetached   = errors.New("controller is detached")
)
