package broadcast

import "context"

// Handler receives raw payloads published on a channel.
type Handler func(payload []byte)

// Subscription is an active channel subscription.
type Subscription interface {
	// Close detaches the handler. Payloads not yet dispatched are dropped.
	Close() error
}

// Bus is a same-origin publish/subscribe transport. Delivery is best-effort and
// at-most-once: a subscriber that is gone when a payload is published never sees it.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error)
}
