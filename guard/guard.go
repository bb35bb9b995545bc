// Package guard decides whether a navigation may proceed. Guard checks session
// validity and sends the user to the login view when it fails; RoleGuard checks
// role membership and denies inline.
package guard

import (
	"net/url"
	"time"

	"github.com/jrsteele09/go-auth-session/session"
)

// State is where a navigation stands in the guard. Every navigation starts
// Unchecked and Check moves it to Authorized or Denied.
type State int

const (
	Unchecked State = iota
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unchecked"
	}
}

const (
	DefaultLoginPath      = "/login"
	DefaultMessage        = "Please sign in to continue."
	DefaultExpiredMessage = "Your session has expired. Please sign in again."
)

// Query parameters carried on the login redirect.
const (
	ParamFrom    = "from"
	ParamMessage = "message"
	ParamExpired = "expired"
)

// Decision is the outcome of a session check. The zero Decision is Unchecked.
// Redirect and Reason are only set when State is Denied; Reason is one of
// errors.ErrNotAuthenticated, errors.ErrMalformedToken or errors.ErrTokenExpired.
type Decision struct {
	State    State
	Redirect string
	Reason   error
}

// Guard gates routes on session validity.
type Guard struct {
	LoginPath      string
	Message        string
	ExpiredMessage string
}

func New(loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{
		LoginPath:      loginPath,
		Message:        DefaultMessage,
		ExpiredMessage: DefaultExpiredMessage,
	}
}

// Check moves an unchecked navigation to Authorized when s is valid at now.
// Otherwise the navigation is Denied and Redirect points at the login view,
// carrying from so the login flow can return the user afterwards. expired
// selects the expiry message and adds expired=true.
func (g *Guard) Check(s *session.Session, now time.Time, from string, expired bool) Decision {
	if err := s.Validate(now); err != nil {
		return Decision{State: Denied, Redirect: g.LoginURL(from, expired), Reason: err}
	}
	return Decision{State: Authorized}
}

// LoginURL builds the redirect target for a denied navigation.
func (g *Guard) LoginURL(from string, expired bool) string {
	q := url.Values{}
	if from != "" {
		q.Set(ParamFrom, from)
	}
	if expired {
		q.Set(ParamMessage, g.ExpiredMessage)
		q.Set(ParamExpired, "true")
	} else {
		q.Set(ParamMessage, g.Message)
	}
	return g.LoginPath + "?" + q.Encode()
}

// SafeReturnPath returns from if it is a local absolute path, else fallback.
// It keeps the login flow from bouncing the user to another origin.
func SafeReturnPath(from, fallback string) string {
	if from == "" || from[0] != '/' || (len(from) > 1 && (from[1] == '/' || from[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return from
}
