// Package viewsession binds a browser to its authentication flow
// controller through a signed cookie. One controller is live per view
// session; the controller owns the Session, the cookie only identifies
// which controller belongs to the visitor.
package viewsession

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"

	"github.com/campuspay/portal-auth/authflow"
)

const (
	cookieName   = "campuspay-portal"
	cookieKeySID = "sid"
)

// NewController builds a fresh flow controller for a new view session.
type NewController func() (*authflow.Controller, error)

// Manager hands out one flow controller per browser, keyed by a signed
// HTTP-only cookie.
type Manager struct {
	store         *sessions.CookieStore
	newController NewController

	mu          sync.RWMutex
	controllers map[string]*authflow.Controller
}

// NewManager creates a Manager. secure should be true everywhere except
// local development; maxAge is the cookie lifetime in seconds.
func NewManager(secret string, maxAge int, secure bool, newController NewController) *Manager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store:         store,
		newController: newController,
		controllers:   make(map[string]*authflow.Controller),
	}
}

// Controller returns the visitor's flow controller, creating one (and
// setting the cookie) on first contact.
func (m *Manager) Controller(w http.ResponseWriter, r *http.Request) (*authflow.Controller, error) {
	cookie, err := m.store.Get(r, cookieName)
	if err != nil {
		// A tampered or stale cookie gets replaced, not rejected.
		cookie, _ = m.store.New(r, cookieName)
	}

	if sid, ok := cookie.Values[cookieKeySID].(string); ok {
		m.mu.RLock()
		ctrl, found := m.controllers[sid]
		m.mu.RUnlock()
		if found {
			return ctrl, nil
		}
	}

	ctrl, err := m.newController()
	if err != nil {
		return nil, errors.Wrap(err, "[viewsession.Controller] create controller")
	}

	sid := uuid.New().String()
	m.mu.Lock()
	m.controllers[sid] = ctrl
	m.mu.Unlock()

	cookie.Values[cookieKeySID] = sid
	if err := cookie.Save(r, w); err != nil {
		return nil, errors.Wrap(err, "[viewsession.Controller] save cookie")
	}
	return ctrl, nil
}

// Peek returns the visitor's flow controller without creating one.
func (m *Manager) Peek(r *http.Request) (*authflow.Controller, bool) {
	cookie, err := m.store.Get(r, cookieName)
	if err != nil {
		return nil, false
	}
	sid, ok := cookie.Values[cookieKeySID].(string)
	if !ok {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, found := m.controllers[sid]
	return ctrl, found
}

// Evict detaches and forgets the visitor's controller, discarding any
// in-flight exchange, and expires the cookie.
func (m *Manager) Evict(w http.ResponseWriter, r *http.Request) {
	cookie, err := m.store.Get(r, cookieName)
	if err != nil {
		return
	}
	if sid, ok := cookie.Values[cookieKeySID].(string); ok {
		m.mu.Lock()
		if ctrl, found := m.controllers[sid]; found {
			ctrl.Detach()
			delete(m.controllers, sid)
		}
		m.mu.Unlock()
	}

	cookie.Options.MaxAge = -1
	_ = cookie.Save(r, w)
}

// Len reports how many controllers are live.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}
