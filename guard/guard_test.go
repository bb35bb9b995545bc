package guard_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/token/jwt/jwttest"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/require"
)

func sessionExpiringAt(t *testing.T, exp time.Time, roles ...string) *session.Session {
	t.Helper()
	return &session.Session{
		User:            users.User{ID: "user-1"},
		Tokens:          token.Pair{AccessToken: jwttest.AccessToken(t, "user-1", exp, roles...)},
		IsAuthenticated: true,
	}
}

func TestGuard_Check(t *testing.T) {
	now := time.Now()
	g := guard.New("/login")

	testCases := []struct {
		name    string
		session *session.Session
		want    guard.State
		reason  error
	}{
		{name: "expires in 6s", session: sessionExpiringAt(t, now.Add(6*time.Second)), want: guard.Authorized},
		{name: "expires in 4s", session: sessionExpiringAt(t, now.Add(4*time.Second)), want: guard.Denied, reason: errors.ErrTokenExpired},
		{name: "already expired", session: sessionExpiringAt(t, now.Add(-time.Minute)), want: guard.Denied, reason: errors.ErrTokenExpired},
		{name: "nil session", session: nil, want: guard.Denied, reason: errors.ErrNotAuthenticated},
		{name: "not authenticated", session: &session.Session{
			Tokens: token.Pair{AccessToken: jwttest.AccessToken(t, "user-1", now.Add(time.Hour))},
		}, want: guard.Denied, reason: errors.ErrNotAuthenticated},
		{name: "malformed token", session: &session.Session{
			Tokens:          token.Pair{AccessToken: "abc.def"},
			IsAuthenticated: true,
		}, want: guard.Denied, reason: errors.ErrMalformedToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := g.Check(tc.session, now, "/dashboard", false)
			require.Equal(t, tc.want, d.State)
			if tc.want == guard.Authorized {
				require.Empty(t, d.Redirect)
				require.NoError(t, d.Reason)
			} else {
				require.NotEmpty(t, d.Redirect)
				require.ErrorIs(t, d.Reason, tc.reason)
			}
		})
	}
}

func TestDecision_StartsUnchecked(t *testing.T) {
	var d guard.Decision
	require.Equal(t, guard.Unchecked, d.State)
	require.Equal(t, "unchecked", d.State.String())
	require.Equal(t, "denied", guard.Denied.String())
}

func TestGuard_RedirectCarriesLocationAndMessage(t *testing.T) {
	g := guard.New("")
	d := g.Check(nil, time.Now(), "/admin?tab=users", false)

	u, err := url.Parse(d.Redirect)
	require.NoError(t, err)
	require.Equal(t, guard.DefaultLoginPath, u.Path)
	require.Equal(t, "/admin?tab=users", u.Query().Get(guard.ParamFrom))
	require.Equal(t, guard.DefaultMessage, u.Query().Get(guard.ParamMessage))
	require.False(t, u.Query().Has(guard.ParamExpired))
}

func TestGuard_RedirectFlagsExpiry(t *testing.T) {
	g := guard.New("/signin")
	d := g.Check(nil, time.Now(), "/dashboard", true)

	u, err := url.Parse(d.Redirect)
	require.NoError(t, err)
	require.Equal(t, "/signin", u.Path)
	require.Equal(t, "true", u.Query().Get(guard.ParamExpired))
	require.Equal(t, guard.DefaultExpiredMessage, u.Query().Get(guard.ParamMessage))
}

func TestSafeReturnPath(t *testing.T) {
	require.Equal(t, "/dashboard?x=1", guard.SafeReturnPath("/dashboard?x=1", "/"))
	require.Equal(t, "/", guard.SafeReturnPath("", "/"))
	require.Equal(t, "/", guard.SafeReturnPath("https://evil.example.com", "/"))
	require.Equal(t, "/", guard.SafeReturnPath("//evil.example.com", "/"))
	require.Equal(t, "/", guard.SafeReturnPath("/\\evil.example.com", "/"))
	require.Equal(t, "/", guard.SafeReturnPath("dashboard", "/"))
}

func TestRoleGuard_Check(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	admin := guard.NewRoleGuard(guard.AdminRoles...)

	require.Equal(t, guard.Allowed, admin.Check(sessionExpiringAt(t, exp, "ADMIN")))
	require.Equal(t, guard.Allowed, admin.Check(sessionExpiringAt(t, exp, "USER", "TENANT_ADMIN")))
	require.Equal(t, guard.Allowed, admin.Check(sessionExpiringAt(t, exp, "BUILDER")))
	require.Equal(t, guard.AccessDenied, admin.Check(sessionExpiringAt(t, exp, "USER")))
	require.Equal(t, guard.AccessDenied, admin.Check(sessionExpiringAt(t, exp)))
	require.Equal(t, guard.AccessDenied, admin.Check(nil))

	require.Equal(t, guard.Allowed, guard.NewRoleGuard().Check(nil))
}

func TestRoleGuard_IgnoresValidity(t *testing.T) {
	expired := sessionExpiringAt(t, time.Now().Add(-time.Hour), "ADMIN")
	before := *expired

	require.Equal(t, guard.Allowed, guard.NewRoleGuard(guard.AdminRoles...).Check(expired))
	require.Equal(t, before, *expired)
}

func TestRoleGuard_FallsBackToProfileRoles(t *testing.T) {
	s := sessionExpiringAt(t, time.Now().Add(time.Hour))
	s.User.Roles = []users.RoleType{users.RoleTenantAdmin}

	require.Equal(t, guard.Allowed, guard.NewRoleGuard(guard.AdminRoles...).Check(s))
}
