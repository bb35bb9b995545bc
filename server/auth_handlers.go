package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-session/api"
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

const (
	msgCodeSent    = "We sent a sign-in code to your email."
	msgSignedOut   = "You have been signed out."
	msgInvalidForm = "Please check the details you entered."
	msgUnreachable = "We could not reach the server. Please try again."
	msgFailed      = "Something went wrong. Please try again."
)

// loginRedirect describes the state the login page should come back in.
type loginRedirect struct {
	From     string
	Email    string
	CodeSent bool
	Message  string
	Errors   []string
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, lr loginRedirect) {
	q := url.Values{}
	if lr.From != "" {
		q.Set(guard.ParamFrom, lr.From)
	}
	if lr.Email != "" {
		q.Set("email", lr.Email)
	}
	if lr.CodeSent {
		q.Set("sent", "true")
	}
	if lr.Message != "" {
		q.Set(guard.ParamMessage, lr.Message)
	}
	for _, e := range lr.Errors {
		q.Add("error", e)
	}
	target := s.guard.LoginPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// userMessages turns a backend or validation error into text for the login page.
func userMessages(err error) []string {
	if msgs := api.UserMessages(err); len(msgs) > 0 {
		return msgs
	}
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		return []string{msgInvalidForm}
	case errors.Is(err, errors.ErrNetwork):
		return []string{msgUnreachable}
	default:
		return []string{msgFailed}
	}
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from := guard.SafeReturnPath(q.Get(guard.ParamFrom), "")

		if s.store.Valid() {
			http.Redirect(w, r, guard.SafeReturnPath(from, RouteDashboard), http.StatusSeeOther)
			return
		}

		snapshot := s.store.Snapshot()
		data := s.newPage("Sign in", &snapshot)
		data.From = from
		data.Email = q.Get("email")
		data.CodeSent = q.Get("sent") == "true"
		data.Expired = q.Get(guard.ParamExpired) == "true"
		data.SSOEnabled = s.ssoEnabled()
		if msg := q.Get(guard.ParamMessage); msg != "" {
			data.Messages = []string{msg}
		}
		data.Errors = q["error"]

		s.render(w, http.StatusOK, pageLogin, data)
	}
}

// OTPRequestHandler asks the backend to email a sign-in code (POST /auth/otp/request)
func (s *Server) OTPRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		lr := loginRedirect{
			From:  guard.SafeReturnPath(r.FormValue("from"), ""),
			Email: r.FormValue("email"),
		}

		if err := s.backend.RequestOTP(r.Context(), api.OTPRequest{Email: lr.Email}); err != nil {
			log.Err(err).Msg("OTP request failed")
			lr.Errors = userMessages(err)
			s.redirectToLogin(w, r, lr)
			return
		}

		lr.CodeSent = true
		lr.Message = msgCodeSent
		s.redirectToLogin(w, r, lr)
	}
}

// OTPVerifyHandler exchanges the emailed code for a session (POST /auth/otp/verify)
func (s *Server) OTPVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		lr := loginRedirect{
			From:     guard.SafeReturnPath(r.FormValue("from"), ""),
			Email:    r.FormValue("email"),
			CodeSent: true,
		}

		result, err := s.backend.VerifyOTP(r.Context(), api.OTPVerification{Email: lr.Email, Code: r.FormValue("code")})
		if err != nil {
			log.Err(err).Str("email", lr.Email).Msg("OTP verification failed")
			lr.Errors = userMessages(err)
			s.redirectToLogin(w, r, lr)
			return
		}

		if err := s.completeLogin(r.Context(), result); err != nil {
			lr.Errors = userMessages(err)
			s.redirectToLogin(w, r, lr)
			return
		}
		http.Redirect(w, r, guard.SafeReturnPath(lr.From, RouteDashboard), http.StatusSeeOther)
	}
}

// MagicLinkHandler signs the user in from an emailed link (GET /auth/magic-link?token=...)
func (s *Server) MagicLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from := guard.SafeReturnPath(q.Get(guard.ParamFrom), "")

		result, err := s.backend.VerifyMagicLink(r.Context(), api.MagicLinkVerification{Token: q.Get("token")})
		if err != nil {
			log.Err(err).Msg("magic link verification failed")
			s.redirectToLogin(w, r, loginRedirect{From: from, Errors: userMessages(err)})
			return
		}

		if err := s.completeLogin(r.Context(), result); err != nil {
			s.redirectToLogin(w, r, loginRedirect{From: from, Errors: userMessages(err)})
			return
		}
		http.Redirect(w, r, guard.SafeReturnPath(from, RouteDashboard), http.StatusSeeOther)
	}
}

// LogoutHandler ends the session in this and every other tab (POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Logout(r.Context()); err != nil {
			log.Err(err).Msg("Logout")
		}
		s.redirectToLogin(w, r, loginRedirect{Message: msgSignedOut})
	}
}

// completeLogin stores the verified login and loads the tenant and license
// lists. The lists are best effort: a failure to load them does not undo the login.
func (s *Server) completeLogin(ctx context.Context, result api.LoginResult) error {
	return s.login(ctx, result.User, result.Tenant, result.Tokens, result.Tenants)
}

func (s *Server) login(ctx context.Context, user users.User, tenant tenants.Tenant, tokens token.Pair, tenantList []tenants.Tenant) error {
	if len(tenantList) == 0 {
		list, err := s.backend.Tenants(ctx, tokens.AccessToken)
		if err != nil {
			log.Err(err).Str("user", user.ID).Msg("loading tenants")
		}
		tenantList = list
	}
	if t, ok := tenants.Find(tenantList, tenant.ID); ok {
		tenant = t
	} else if tenant.ID == "" && len(tenantList) > 0 {
		tenant = tenantList[0]
	}
	s.store.SetTenants(ctx, tenantList)

	if err := s.store.Login(ctx, user, tenant, tokens); err != nil {
		log.Err(err).Str("user", user.ID).Msg("login")
		return err
	}

	licenses, err := s.backend.Licenses(ctx, tokens.AccessToken)
	if err != nil {
		log.Err(err).Str("user", user.ID).Msg("loading licenses")
		return nil
	}
	s.store.SetLicenses(ctx, licenses)
	return nil
}
