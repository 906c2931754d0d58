package server

import (
	"net/http"
)

// DashboardPageData contains data for rendering the dashboard view
type DashboardPageData struct {
	AppName       string
	Email         string
	Role          string
	InstitutionID string
}

// DashboardHandler displays the authenticated dashboard (GET /dashboard).
// Visitors without a live session are sent back to the sign-in view.
func (s *Server) DashboardHandler() http.HandlerFunc {
	dashboardTmpl, err := ParseTemplate("dashboard.html")
	if err != nil {
		panic("Failed to parse dashboard template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, found := s.views.Peek(r)
		if !found || !ctrl.Authenticated() {
			http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
			return
		}

		sess := ctrl.Session()
		data := DashboardPageData{
			AppName:       s.config.AppName,
			Email:         sess.User.Email,
			Role:          string(sess.User.Role),
			InstitutionID: sess.User.InstitutionID,
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := dashboardTmpl.Execute(w, data); err != nil {
			s.log.Err(err).Msg("failed to render dashboard")
			http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		}
	}
}

// LogoutHandler ends the session (POST /auth/logout). Logging out is
// idempotent: without a session it is a no-op, and either way the visitor
// lands back on the sign-in view.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctrl, found := s.views.Peek(r); found {
			ctrl.Logout()
		}
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
	}
}
