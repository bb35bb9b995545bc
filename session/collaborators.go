package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/token"
)

// TenantSwitcher obtains a token pair scoped to another tenant.
type TenantSwitcher interface {
	SwitchTenant(ctx context.Context, accessToken, tenantID string) (token.Pair, error)
}

// TokenRefresher exchanges a refresh token for a new pair.
type TokenRefresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (token.Pair, error)
}

// Publisher tells the other tabs about local session changes.
type Publisher interface {
	PublishLogout(ctx context.Context) error
	PublishTokens(ctx context.Context, tenantID string, tokens token.Pair) error
	PublishSessionExpired(ctx context.Context) error
}

type noopPublisher struct{}

func (noopPublisher) PublishLogout(context.Context) error { return nil }
func (noopPublisher) PublishTokens(context.Context, string, token.Pair) error { return nil }
func (noopPublisher) PublishSessionExpired(context.Context) error { return nil }

// EventKind names a session change.
type EventKind string

const (
	EventLogin          EventKind = "login"
	EventLogout         EventKind = "logout"
	EventTenantSwitched EventKind = "tenant_switched"
	EventUserUpdated    EventKind = "user_updated"
	EventTokensUpdated  EventKind = "tokens_updated"
	EventExpired        EventKind = "expired"
)

// Event is emitted after every applied change. Remote is set when the change
// came from another tab.
type Event struct {
	Kind   EventKind
	Remote bool
}
