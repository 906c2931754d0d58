// Package identitytest provides an in-process fake identity provider
// that serves the exact credential-exchange wire contract, for use by
// end-to-end flow tests.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuspay/portal-auth/session"
)

const tokenLifetime = time.Hour

type account struct {
	passwordHash []byte
	user         session.UserRecord
}

// Provider is a fake identity provider backed by httptest.Server. It
// stores bcrypt-hashed passwords and answers password and refresh_token
// grants with the provider's JSON token payload.
type Provider struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]account // email -> account
	refresh  map[string]string  // refresh token -> email
	requests int                // token-endpoint hits, for re-entrancy assertions

	signingKey []byte
}

// New starts a fake provider. Callers must Close it when done.
func New() *Provider {
	p := &Provider{
		accounts:   make(map[string]account),
		refresh:    make(map[string]string),
		signingKey: []byte("identitytest-signing-key"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", p.handleToken)
	mux.HandleFunc("GET /auth/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	p.srv = httptest.NewServer(mux)
	return p
}

// URL returns the provider's base URL.
func (p *Provider) URL() string {
	return p.srv.URL
}

// Close shuts the provider down.
func (p *Provider) Close() {
	p.srv.Close()
}

// AddUser registers an account the provider will accept.
func (p *Provider) AddUser(email, password string, user session.UserRecord) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = account{passwordHash: hash, user: user}
	return nil
}

// TokenRequests reports how many credential-exchange requests have hit
// the token endpoint.
func (p *Provider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.requests++
	p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	switch r.FormValue("grant_type") {
	case "password":
		p.handlePasswordGrant(w, r)
	case "refresh_token":
		p.handleRefreshGrant(w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (p *Provider) handlePasswordGrant(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("username")
	password := r.FormValue("password")

	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
		return
	}

	p.writeTokenResponse(w, acct.user)
}

func (p *Provider) handleRefreshGrant(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("refresh_token")

	p.mu.Lock()
	email, ok := p.refresh[token]
	var acct account
	if ok {
		// Single-use refresh tokens: rotate on every grant.
		delete(p.refresh, token)
		acct = p.accounts[email]
	}
	p.mu.Unlock()

	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
		return
	}

	p.writeTokenResponse(w, acct.user)
}

func (p *Provider) writeTokenResponse(w http.ResponseWriter, user session.UserRecord) {
	access, err := p.signAccessToken(user)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "token signing failed")
		return
	}

	refresh := uuid.New().String()
	p.mu.Lock()
	p.refresh[refresh] = user.Email
	p.mu.Unlock()

	body := map[string]interface{}{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    int(tokenLifetime.Seconds()),
		"refresh_token": refresh,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"user_metadata": map[string]interface{}{
				"institution_id": user.InstitutionID,
				"role":           user.Role,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (p *Provider) signAccessToken(user session.UserRecord) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(p.signingKey)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
