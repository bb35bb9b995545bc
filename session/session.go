package session

import (
	"slices"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/token/jwt"
	"github.com/jrsteele09/go-auth-session/users"
)

// StorageKey is the fixed key the session is persisted under.
const StorageKey = "auth-session"

// Session is the in-memory representation of the authenticated user, tenant and tokens.
type Session struct {
	User            users.User        `json:"user"`
	CurrentTenant   *tenants.Tenant   `json:"currentTenant,omitempty"`
	Tokens          token.Pair        `json:"tokens"`
	Tenants         []tenants.Tenant  `json:"tenants,omitempty"`
	Licenses        []tenants.License `json:"licenses,omitempty"`
	IsAuthenticated bool              `json:"isAuthenticated"`
}

// Claims decodes the access token. The result is never cached.
func (s *Session) Claims() *jwt.Claims {
	return jwt.Decode(s.Tokens.AccessToken)
}

// Validate returns why the session does not grant access at now, or nil when it
// does. The session must be authenticated and its access token must decode and
// expire more than jwt.ExpirySkew after now. The error is one of
// errors.ErrNotAuthenticated, errors.ErrMalformedToken or errors.ErrTokenExpired.
func (s *Session) Validate(now time.Time) error {
	if s == nil || !s.IsAuthenticated {
		return errors.ErrNotAuthenticated
	}
	claims, err := jwt.DecodeErr(s.Tokens.AccessToken)
	if err != nil {
		return err
	}
	return claims.CheckExpiry(now, jwt.ExpirySkew)
}

// Valid reports whether the session grants access at now.
func (s *Session) Valid(now time.Time) bool {
	return s.Validate(now) == nil
}

// Roles returns the roles carried by the access token, falling back to the
// roles on the user profile when the token has none.
func (s *Session) Roles() []users.RoleType {
	if claims := s.Claims(); claims != nil && len(claims.Roles) > 0 {
		roles := make([]users.RoleType, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			roles = append(roles, users.RoleType(r))
		}
		return roles
	}
	return slices.Clone(s.User.Roles)
}

// TenantID returns the current tenant ID or "" when none is selected.
func (s *Session) TenantID() string {
	if s.CurrentTenant == nil {
		return ""
	}
	return s.CurrentTenant.ID
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	if s.CurrentTenant != nil {
		t := *s.CurrentTenant
		s.CurrentTenant = &t
	}
	s.Tenants = slices.Clone(s.Tenants)
	s.Licenses = slices.Clone(s.Licenses)
	return s
}
