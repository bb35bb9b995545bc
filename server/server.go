package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-session/api"
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/server/authflowrepo"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend is the part of the REST API the web shell calls directly. Tenant
// switching and token refresh go through the session store instead.
type Backend interface {
	RequestOTP(ctx context.Context, req api.OTPRequest) error
	VerifyOTP(ctx context.Context, req api.OTPVerification) (api.LoginResult, error)
	VerifyMagicLink(ctx context.Context, req api.MagicLinkVerification) (api.LoginResult, error)
	Profile(ctx context.Context, accessToken string) (users.User, error)
	UpdateProfile(ctx context.Context, accessToken string, upd users.Update) (users.User, error)
	Tenants(ctx context.Context, accessToken string) ([]tenants.Tenant, error)
	Licenses(ctx context.Context, accessToken string) ([]tenants.License, error)
}

type OidcConfig struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	store     *session.Store
	backend   Backend
	guard     *guard.Guard
	admin     guard.RoleGuard
	pages     *template.Template
	authState authflowrepo.Repo

	sso     *OidcConfig
	ssoLock sync.Mutex
}

func New(config config.Config, store *session.Store, backend Backend, authStateRepo authflowrepo.Repo) (*Server, error) {
	pages, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse page templates: %w", err)
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		store:     store,
		backend:   backend,
		guard:     guard.New(config.GetLoginPath()),
		admin:     guard.NewRoleGuard(guard.AdminRoles...),
		pages:     pages,
		authState: authStateRepo,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// ssoEnabled reports whether an OIDC issuer is configured.
func (s *Server) ssoEnabled() bool {
	return s.config.GetOIDCIssuer() != ""
}

// getOidcConfig discovers the configured issuer on first use and caches the result.
func (s *Server) getOidcConfig(ctx context.Context) (*OidcConfig, error) {
	s.ssoLock.Lock()
	defer s.ssoLock.Unlock()
	if s.sso != nil {
		return s.sso, nil
	}

	provider, err := oidc.NewProvider(ctx, s.config.GetOIDCIssuer())
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	clientID := s.config.GetOIDCClientID()
	s.sso = &OidcConfig{
		OidcProvider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: s.config.GetOIDCClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  strings.TrimSuffix(s.config.GetBaseURL(), "/") + RouteCallback,
			Scopes:       s.config.GetOIDCScopes(),
		},
		OidcVerifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}
	return s.sso, nil
}
