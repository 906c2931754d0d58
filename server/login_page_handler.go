package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/campuspay/portal-auth/authflow"
	"github.com/campuspay/portal-auth/credentials"
)

// LoginPageData contains data for rendering the sign-in page
type LoginPageData struct {
	AppName       string
	Email         string // Preserve email on error
	EmailError    string
	PasswordError string
	FormError     string
}

// SignInPageHandler displays the sign-in view (GET /). A visitor with a
// live session is sent straight to the dashboard; session presence alone
// decides the view.
func (s *Server) SignInPageHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, found := s.views.Peek(r)
		if found && ctrl.Authenticated() {
			http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
			return
		}

		data := LoginPageData{AppName: s.config.AppName}
		if found {
			data = s.loginPageData(ctrl.Form())
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			s.log.Err(err).Msg("failed to render sign-in page")
			http.Error(w, "failed to render sign-in page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmissionHandler processes the sign-in form submission
// (POST /auth/login).
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := s.views.Controller(w, r)
		if err != nil {
			s.log.Err(err).Msg("failed to bind view session")
			http.Error(w, "failed to start a session", http.StatusInternalServerError)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		creds := credentials.Credentials{
			Email:    r.FormValue(credentials.FieldEmail),
			Password: r.FormValue(credentials.FieldPassword),
		}

		err = ctrl.Submit(r.Context(), creds)
		switch {
		case err == nil, errors.Is(err, authflow.ErrAlreadyAuthenticated):
			http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
		case errors.Is(err, authflow.ErrSubmitInFlight):
			// The earlier submission decides the outcome.
			http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		default:
			w.Header().Set("Content-Type", contentTypeHTML)
			if err := loginTmpl.Execute(w, s.loginPageData(ctrl.Form())); err != nil {
				s.log.Err(err).Msg("failed to render sign-in page")
				http.Error(w, "failed to render sign-in page", http.StatusInternalServerError)
			}
		}
	}
}

func (s *Server) loginPageData(form authflow.FormState) LoginPageData {
	return LoginPageData{
		AppName:       s.config.AppName,
		Email:         form.Credentials.Email,
		EmailError:    form.Errors[credentials.FieldEmail],
		PasswordError: form.Errors[credentials.FieldPassword],
		FormError:     form.FormError,
	}
}
