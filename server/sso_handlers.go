package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/server/authflowrepo"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// SSOStartHandler begins an authorization code flow with PKCE against the
// configured OIDC issuer (GET /auth/sso)
func (s *Server) SSOStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.ssoEnabled() {
			http.NotFound(w, r)
			return
		}

		oidcConfig, err := s.getOidcConfig(r.Context())
		if err != nil {
			log.Err(err).Msg("SSO: provider discovery")
			s.redirectToLogin(w, r, loginRedirect{Errors: []string{msgUnreachable}})
			return
		}

		state := uuid.NewString()
		flow := &authflowrepo.AuthFlowState{
			CodeVerifier: oauth2.GenerateVerifier(),
			Nonce:        uuid.NewString(),
			ReturnURL:    guard.SafeReturnPath(r.URL.Query().Get(guard.ParamFrom), RouteDashboard),
			CreatedAt:    time.Now(),
		}
		if err := s.authState.Upsert(state, flow); err != nil {
			log.Err(err).Msg("SSO: storing flow state")
			http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
			return
		}

		authURL := oidcConfig.OAuth2Config.AuthCodeURL(state,
			oauth2.S256ChallengeOption(flow.CodeVerifier),
			oidc.Nonce(flow.Nonce),
		)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the SSO flow (GET|POST /callback)
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			log.Warn().Str("error", errorParam).Str("description", errorDesc).Msg("SSO: authorization failed")
			s.redirectToLogin(w, r, loginRedirect{Errors: []string{"Single sign-on failed: " + firstNonEmpty(errorDesc, errorParam)}})
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		flow, err := s.authState.Take(state)
		if err != nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		oidcConfig, err := s.getOidcConfig(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get OIDC config: %v", err), http.StatusInternalServerError)
			return
		}

		oauth2Token, err := oidcConfig.OAuth2Config.Exchange(r.Context(), code, oauth2.VerifierOption(flow.CodeVerifier))
		if err != nil {
			log.Err(err).Msg("SSO: token exchange")
			s.redirectToLogin(w, r, loginRedirect{From: flow.ReturnURL, Errors: []string{msgFailed}})
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "No ID token in response", http.StatusBadGateway)
			return
		}

		idToken, err := oidcConfig.OidcVerifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			log.Err(err).Msg("SSO: ID token verification")
			http.Error(w, "ID token verification failed", http.StatusUnauthorized)
			return
		}

		var claims struct {
			Nonce      string   `json:"nonce"`
			Sub        string   `json:"sub"`
			Email      string   `json:"email"`
			GivenName  string   `json:"given_name"`
			FamilyName string   `json:"family_name"`
			Locale     string   `json:"locale"`
			Tenant     string   `json:"tenant"`
			Roles      []string `json:"roles"`
		}
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, fmt.Sprintf("Failed to extract claims: %v", err), http.StatusInternalServerError)
			return
		}

		// Validate nonce to prevent replay attacks
		if claims.Nonce != flow.Nonce {
			http.Error(w, "Invalid nonce", http.StatusUnauthorized)
			return
		}

		tokens := token.Pair{AccessToken: oauth2Token.AccessToken, RefreshToken: oauth2Token.RefreshToken}
		user := users.User{
			ID:        claims.Sub,
			Email:     claims.Email,
			FirstName: claims.GivenName,
			LastName:  claims.FamilyName,
			Locale:    claims.Locale,
		}
		for _, role := range claims.Roles {
			user.Roles = append(user.Roles, users.RoleType(role))
		}
		if profile, err := s.backend.Profile(r.Context(), tokens.AccessToken); err == nil && profile.ID != "" {
			user = profile
		} else if err != nil {
			log.Err(err).Str("user", claims.Sub).Msg("SSO: loading profile, using ID token claims")
		}

		if err := s.login(r.Context(), user, tenants.Tenant{ID: claims.Tenant}, tokens, nil); err != nil {
			s.redirectToLogin(w, r, loginRedirect{From: flow.ReturnURL, Errors: userMessages(err)})
			return
		}
		http.Redirect(w, r, flow.ReturnURL, http.StatusSeeOther)
	}
}
