package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the session snapshot the guard authorized
const ContextKeySession ContextKey = "session"

// RequireSession lets a request through only while the session is valid.
// Otherwise it redirects to the login page, carrying the requested location.
// An authenticated session whose token has lapsed is expired first, which
// sends every other tab to the login page as well.
func (s *Server) RequireSession() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snapshot := s.store.Snapshot()
			from := ""
			if r.Method == http.MethodGet {
				from = r.URL.RequestURI()
			}

			decision := s.guard.Check(&snapshot, s.store.Now(), from, false)
			if decision.State == guard.Authorized {
				ctx := context.WithValue(r.Context(), ContextKeySession, &snapshot)
				next(w, r.WithContext(ctx))
				return
			}

			log.Info().Err(decision.Reason).Str("path", r.URL.Path).Stringer("state", decision.State).Msg("session check failed")
			if snapshot.IsAuthenticated {
				if err := s.store.Expire(r.Context()); err != nil {
					log.Err(err).Msg("RequireSession: expiring session")
				}
			}
			expired := s.store.ConsumeExpiredNotice()
			http.Redirect(w, r, s.guard.LoginURL(from, expired), http.StatusSeeOther)
		}
	}
}

// RequireRoles renders an inline access denied page when the session holds
// none of the guard's roles. It must run after RequireSession and leaves the
// session untouched.
func (s *Server) RequireRoles(rg guard.RoleGuard) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromContext(r)
			if rg.Check(sess) == guard.AccessDenied {
				log.Info().Str("user", sess.User.ID).Str("path", r.URL.Path).Msg("access denied")
				s.render(w, http.StatusForbidden, pageAccessDenied, s.newPage("Access Denied", sess))
				return
			}
			next(w, r)
		}
	}
}

// sessionFromContext returns the snapshot placed by RequireSession, or an
// empty session when the route is not guarded.
func sessionFromContext(r *http.Request) *session.Session {
	if sess, ok := r.Context().Value(ContextKeySession).(*session.Session); ok && sess != nil {
		return sess
	}
	return &session.Session{}
}
