package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

// IndexHandler sends the user to the dashboard; the session guard takes it from there.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"authenticated": s.store.Valid(),
		})
	}
}

func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPage("Dashboard", sessionFromContext(r))
		q := r.URL.Query()
		if msg := q.Get("message"); msg != "" {
			data.Messages = []string{msg}
		}
		data.Errors = q["error"]
		s.render(w, http.StatusOK, pageDashboard, data)
	}
}

func (s *Server) AdminHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r)
		data := s.newPage("Administration", sess)
		data.Roles = sess.Roles()
		s.render(w, http.StatusOK, pageAdmin, data)
	}
}

// SwitchTenantHandler moves the session to another tenant (POST /tenants/switch)
func (s *Server) SwitchTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		tenantID := r.FormValue("tenant")

		err := s.store.SwitchTenant(r.Context(), tenantID)
		switch {
		case err == nil:
			name := tenantID
			if t := s.store.Snapshot().CurrentTenant; t != nil && t.Name != "" {
				name = t.Name
			}
			redirectToDashboard(w, r, "message", "Switched to "+name)
		case errors.Is(err, errors.ErrSuperseded):
			redirectToDashboard(w, r, "", "")
		case errors.Is(err, errors.ErrNotFound):
			redirectToDashboard(w, r, "error", "You are not a member of that tenant.")
		default:
			redirectToDashboard(w, r, "error", strings.Join(userMessages(err), " "))
		}
	}
}

// ProfileUpdateHandler saves the user's name (POST /profile)
func (s *Server) ProfileUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		sess := sessionFromContext(r)

		var upd users.Update
		if r.PostForm.Has("firstName") {
			upd.FirstName = utils.Ptr(strings.TrimSpace(r.PostForm.Get("firstName")))
		}
		if r.PostForm.Has("lastName") {
			upd.LastName = utils.Ptr(strings.TrimSpace(r.PostForm.Get("lastName")))
		}

		saved, err := s.backend.UpdateProfile(r.Context(), sess.Tokens.AccessToken, upd)
		if err != nil {
			log.Err(err).Str("user", sess.User.ID).Msg("profile update failed")
			redirectToDashboard(w, r, "error", strings.Join(userMessages(err), " "))
			return
		}

		// Keep what the backend stored, falling back to what was sent.
		upd.FirstName = utils.Ptr(firstNonEmpty(saved.FirstName, utils.Value(upd.FirstName)))
		upd.LastName = utils.Ptr(firstNonEmpty(saved.LastName, utils.Value(upd.LastName)))
		if err := s.store.UpdateUser(r.Context(), upd); err != nil {
			log.Err(err).Str("user", sess.User.ID).Msg("applying profile update")
			redirectToDashboard(w, r, "error", msgFailed)
			return
		}
		redirectToDashboard(w, r, "message", "Profile saved.")
	}
}

func redirectToDashboard(w http.ResponseWriter, r *http.Request, key, value string) {
	target := RouteDashboard
	if key != "" && value != "" {
		target += "?" + url.Values{key: {value}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
