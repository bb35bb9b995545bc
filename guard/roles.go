package guard

import (
	"slices"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/users"
)

// AdminRoles may enter the administration section.
var AdminRoles = []users.RoleType{users.RoleBuilder, users.RoleAdmin, users.RoleTenantAdmin}

type RoleDecision int

const (
	Allowed RoleDecision = iota
	AccessDenied
)

func (d RoleDecision) String() string {
	if d == AccessDenied {
		return "access denied"
	}
	return "allowed"
}

// RoleGuard gates a section on role membership. It does not look at token
// expiry and never changes the session.
type RoleGuard struct {
	Required []users.RoleType
}

func NewRoleGuard(required ...users.RoleType) RoleGuard {
	return RoleGuard{Required: required}
}

// Check allows s when it holds at least one required role. An empty
// requirement allows everyone.
func (g RoleGuard) Check(s *session.Session) RoleDecision {
	if len(g.Required) == 0 {
		return Allowed
	}
	if s == nil {
		return AccessDenied
	}
	for _, role := range s.Roles() {
		if slices.Contains(g.Required, role) {
			return Allowed
		}
	}
	return AccessDenied
}
