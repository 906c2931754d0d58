package session

import (
	"time"
)

// Role represents a user role within an institution, sourced verbatim
// from the identity provider's user metadata.
type Role string

const (
	RoleInstitutionAdmin Role = "institution_admin" // Manages fees, users and settings for an institution
	RoleAccountant       Role = "accountant"        // Records and reconciles fee payments
	RoleParent           Role = "parent"            // Views and pays fees for enrolled students
)

// UserRecord identifies the authenticated user. It is immutable once
// received from the identity provider.
type UserRecord struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	InstitutionID string `json:"institution_id"`
}

// Session is the in-memory proof that a user is authenticated. It is
// created by a successful credential exchange, owned exclusively by the
// flow controller for the lifetime of the authenticated session, and
// destroyed on logout.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         UserRecord
	IssuedAt     time.Time
	ExpiresAt    time.Time // Zero when the access token carries no exp claim
}

// New builds a Session from exchanged tokens, deriving ExpiresAt from the
// access token's exp claim when one is present.
func New(accessToken, refreshToken string, user UserRecord, issuedAt time.Time) *Session {
	s := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		IssuedAt:     issuedAt,
	}
	if exp, err := AccessTokenExpiry(accessToken); err == nil {
		s.ExpiresAt = exp
	}
	return s
}

// Expired reports whether the access token's exp claim has passed.
// Sessions without a readable exp claim never report expired; the
// provider rejects their access token server-side instead.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}
