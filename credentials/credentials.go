package credentials

import (
	"strings"
)

// Form field names, as rendered by the presentation layer.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// Validation messages surfaced adjacent to the failing field.
const (
	MsgEmailRequired    = "email is required"
	MsgEmailInvalid     = "invalid email format"
	MsgPasswordRequired = "password is required"
)

// Credentials holds the email/password pair as typed by the user.
// Values may be empty strings; Validate decides whether they are usable.
type Credentials struct {
	Email    string
	Password string
}

// FieldErrors maps a field name to the validation message for that field.
// An empty map means the credentials passed every presence/format check.
type FieldErrors map[string]string

// Validate runs the client-side presence/format checks. It is a pure
// function: no network call, no mutation of its input. When the returned
// map is non-empty the credentials must not be submitted.
func Validate(creds Credentials) FieldErrors {
	errs := FieldErrors{}

	email := strings.TrimSpace(creds.Email)
	switch {
	case email == "":
		errs[FieldEmail] = MsgEmailRequired
	case !looksLikeEmail(email):
		errs[FieldEmail] = MsgEmailInvalid
	}

	if creds.Password == "" {
		errs[FieldPassword] = MsgPasswordRequired
	}

	return errs
}

// looksLikeEmail applies a syntactic check only; deliverability is the
// identity provider's problem.
func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
