package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog/log"
)

// ChannelName is the fixed channel all tabs use to sync authentication state.
const ChannelName = "auth-sync"

// Broadcaster publishes session events to the other tabs and dispatches
// their events to a local handler.
type Broadcaster struct {
	bus     Bus
	channel string
	origin  string

	mu  sync.Mutex
	sub Subscription
}

// BroadcasterOption defines a function type to modify the Broadcaster instance.
type BroadcasterOption func(*Broadcaster)

// WithChannel overrides the channel name
func WithChannel(channel string) BroadcasterOption {
	return func(b *Broadcaster) {
		b.channel = channel
	}
}

// WithOrigin sets the tab identifier instead of a random one
func WithOrigin(origin string) BroadcasterOption {
	return func(b *Broadcaster) {
		b.origin = origin
	}
}

// NewBroadcaster creates a broadcaster on the given bus. Nothing is received until Init is called.
func NewBroadcaster(bus Bus, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		bus:     bus,
		channel: ChannelName,
		origin:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin returns the identifier stamped on every message this tab publishes.
func (b *Broadcaster) Origin() string {
	return b.origin
}

// Init subscribes handler to messages from other tabs. Calling Init again tears
// down the previous subscription first, so at most one handler is ever attached.
func (b *Broadcaster) Init(ctx context.Context, handler func(Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		if err := b.sub.Close(); err != nil {
			log.Warn().Err(err).Str("channel", b.channel).Msg("closing previous broadcast subscription")
		}
		b.sub = nil
	}

	sub, err := b.bus.Subscribe(ctx, b.channel, b.dispatch(handler))
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s", b.channel)
	}
	b.sub = sub
	return nil
}

func (b *Broadcaster) dispatch(handler func(Message)) Handler {
	return func(payload []byte) {
		msg, err := DecodeMessage(payload)
		if err != nil {
			log.Warn().Err(err).Str("channel", b.channel).Msg("dropping broadcast message")
			return
		}
		if msg.Origin == b.origin {
			return
		}
		log.Debug().Str("kind", string(msg.Kind)).Str("from", msg.Origin).Msg("broadcast received")
		handler(msg)
	}
}

// Publish stamps the message with this tab's origin and sends it.
func (b *Broadcaster) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	msg.Origin = b.origin
	payload, err := msg.Encode()
	if err != nil {
		return errors.Wrapf(err, "encode %s message", msg.Kind)
	}
	if err := b.bus.Publish(ctx, b.channel, payload); err != nil {
		return fmt.Errorf("publish %s message: %w", msg.Kind, err)
	}
	return nil
}

func (b *Broadcaster) PublishLogout(ctx context.Context) error {
	return b.Publish(ctx, Logout())
}

// PublishTokens shares a token pair scoped to tenantID.
func (b *Broadcaster) PublishTokens(ctx context.Context, tenantID string, tokens token.Pair) error {
	return b.Publish(ctx, TokenUpdated(tenantID, tokens))
}

func (b *Broadcaster) PublishSessionExpired(ctx context.Context) error {
	return b.Publish(ctx, SessionExpired())
}

// Close detaches the active subscription, if any.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
