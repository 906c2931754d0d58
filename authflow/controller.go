// Package authflow implements the client-side authentication flow
// controller: the single source of truth for session presence, mediating
// between user input, client-side validation, the identity provider and
// navigation.
//
// The controller is a small state machine over the form's submission
// status: idle -> submitting -> success | failed, with logout cycling
// back to idle. At most one credential-exchange request is in flight per
// controller instance, and a response arriving after logout or after the
// controller is detached is discarded without mutating state.
package authflow

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campuspay/portal-auth/credentials"
	"github.com/campuspay/portal-auth/identity"
	"github.com/campuspay/portal-auth/session"
)

// SubmissionStatus is the lifecycle state of the login form.
type SubmissionStatus string

const (
	StatusIdle       SubmissionStatus = "idle"
	StatusSubmitting SubmissionStatus = "submitting"
	StatusSuccess    SubmissionStatus = "success"
	StatusFailed     SubmissionStatus = "failed"
)

// Form-level error messages. A form-level message is shown once for the
// whole form, never attached to a single field, so a failed login does
// not leak which part of the credentials was wrong.
const (
	FormErrorInvalidCredentials  = "invalid credentials"
	FormErrorProviderUnreachable = "unable to reach server"
)

// FormState is the controller's view of the login form. The password is
// never retained; only the email survives a failed attempt so the
// presentation layer can re-fill the field.
type FormState struct {
	Credentials credentials.Credentials
	Errors      credentials.FieldErrors
	FormError   string
	Status      SubmissionStatus
}

// CredentialExchanger is the identity-provider collaborator. Implemented
// by identity.Client in production and by fakes in tests.
type CredentialExchanger interface {
	ExchangePassword(ctx context.Context, creds credentials.Credentials) (*session.Session, error)
	RefreshSession(ctx context.Context, current *session.Session) (*session.Session, error)
}

// Router is the navigation collaborator: the controller signals it when
// session presence changes, and the router moves the user between the
// unauthenticated root view and the dashboard.
type Router interface {
	NavigateToDashboard()
	NavigateToRoot()
}

// RouterFuncs adapts plain functions to the Router interface. Nil
// functions are no-ops.
type RouterFuncs struct {
	Dashboard func()
	Root      func()
}

func (r RouterFuncs) NavigateToDashboard() {
	if r.Dashboard != nil {
		r.Dashboard()
	}
}

func (r RouterFuncs) NavigateToRoot() {
	if r.Root != nil {
		r.Root()
	}
}

// Controller owns one user's FormState and, once authenticated, the live
// Session. A Controller is bound to one user session and is safe for
// concurrent use.
type Controller struct {
	exchanger CredentialExchanger
	router    Router
	log       zerolog.Logger

	mu         sync.Mutex
	form       FormState
	session    *session.Session
	inFlight   bool
	generation uint64 // bumped by Logout/Detach; in-flight responses for older generations are stale
	detached   bool
}

// Option modifies a Controller during construction.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// New creates a Controller in the Idle state.
func New(exchanger CredentialExchanger, router Router, options ...Option) (*Controller, error) {
	if exchanger == nil {
		return nil, errors.New("[authflow.New] exchanger is required")
	}
	if router == nil {
		return nil, errors.New("[authflow.New] router is required")
	}

	c := &Controller{
		exchanger: exchanger,
		router:    router,
		form:      FormState{Status: StatusIdle},
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Validate runs the client-side checks without submitting. It populates
// field-level errors on the form but never transitions the submission
// status: validation failures keep the machine in Idle or Failed.
func (c *Controller) Validate(creds credentials.Credentials) credentials.FieldErrors {
	fieldErrs := credentials.Validate(creds)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return fieldErrs
	}
	c.form.Credentials = credentials.Credentials{Email: creds.Email}
	c.form.Errors = fieldErrs
	if len(fieldErrs) > 0 {
		c.form.FormError = ""
	}
	return fieldErrs
}

// Submit runs validation and, when it passes, issues exactly one
// credential-exchange request. A call that starts while another exchange
// is in flight is rejected immediately with ErrSubmitInFlight and issues
// no request. On success the controller creates the Session and signals
// the router to navigate to the dashboard; on failure it records a
// form-level error and stays on the login view for the user to resubmit.
func (c *Controller) Submit(ctx context.Context, creds credentials.Credentials) error {
	fieldErrs := credentials.Validate(creds)

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return ErrControllerDetached
	}
	if len(fieldErrs) > 0 {
		c.form.Credentials = credentials.Credentials{Email: creds.Email}
		c.form.Errors = fieldErrs
		c.form.FormError = ""
		c.mu.Unlock()
		return ErrValidationFailed
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	if c.session != nil {
		c.mu.Unlock()
		return ErrAlreadyAuthenticated
	}

	gen := c.generation
	c.inFlight = true
	c.form.Credentials = credentials.Credentials{Email: creds.Email}
	c.form.Errors = nil
	c.form.FormError = ""
	c.form.Status = StatusSubmitting
	c.mu.Unlock()

	sess, err := c.exchanger.ExchangePassword(ctx, creds)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.detached {
		c.log.Debug().Msg("discarding stale credential-exchange response")
		return ErrStaleResponse
	}
	c.inFlight = false

	if err != nil {
		c.form.Status = StatusFailed
		if errors.Is(err, identity.ErrInvalidCredentials) {
			c.form.FormError = FormErrorInvalidCredentials
		} else {
			c.form.FormError = FormErrorProviderUnreachable
		}
		c.log.Info().Err(err).Str("email", creds.Email).Msg("login failed")
		return err
	}

	c.session = sess
	c.form.Status = StatusSuccess
	c.log.Info().Str("user_id", sess.User.ID).Str("institution_id", sess.User.InstitutionID).Msg("login succeeded")
	c.router.NavigateToDashboard()
	return nil
}

// Logout destroys the live Session synchronously, resets the form to
// Idle and signals the router to navigate to the root view. Calling it
// with no live Session is a no-op: no error, no navigation event.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}

	userID := c.session.User.ID
	c.session = nil
	c.form = FormState{Status: StatusIdle}
	c.generation++
	c.inFlight = false
	c.log.Info().Str("user_id", userID).Msg("logged out")
	c.router.NavigateToRoot()
}

// Detach marks the controller defunct, as when the user navigates away
// from the login view: any pending credential-exchange response is
// discarded when it eventually arrives, and further operations fail with
// ErrControllerDetached.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detached = true
	c.session = nil
	c.form = FormState{Status: StatusIdle}
	c.generation++
	c.inFlight = false
}

// Refresh swaps the live Session's tokens via the refresh grant, under
// the same single-flight and staleness rules as Submit. A provider
// rejection means the session is dead: the controller logs the user out.
// A transport failure keeps the current session; the access token stays
// usable until the provider says otherwise.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return ErrControllerDetached
	}
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}

	gen := c.generation
	current := c.session
	c.inFlight = true
	c.mu.Unlock()

	refreshed, err := c.exchanger.RefreshSession(ctx, current)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.detached {
		c.log.Debug().Msg("discarding stale refresh response")
		return ErrStaleResponse
	}
	c.inFlight = false

	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			c.log.Info().Err(err).Msg("refresh rejected, destroying session")
			c.session = nil
			c.form = FormState{Status: StatusIdle}
			c.generation++
			c.router.NavigateToRoot()
		}
		return err
	}

	c.session = refreshed
	return nil
}

// Session returns a copy of the live Session, or nil when the user is
// not authenticated. The controller keeps exclusive ownership of the
// original.
func (c *Controller) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// Authenticated reports whether a Session is live.
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Form returns a snapshot of the current form state.
func (c *Controller) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.form
	if c.form.Errors != nil {
		snapshot.Errors = make(credentials.FieldErrors, len(c.form.Errors))
		for field, msg := range c.form.Errors {
			snapshot.Errors[field] = msg
		}
	}
	return snapshot
}

// Status returns the form's submission status.
func (c *Controller) Status() SubmissionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Status
}
