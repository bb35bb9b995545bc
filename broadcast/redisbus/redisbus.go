// Package redisbus carries broadcast messages over Redis PUBLISH/SUBSCRIBE so
// that separate processes on one host behave like tabs of the same origin.
package redisbus

import (
	"context"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-session/broadcast"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ broadcast.Bus = (*Bus)(nil)

type Bus struct {
	client redis.UniversalClient
	prefix string
}

// New creates a bus on client. Channel names are prefixed with prefix, which
// scopes tabs to one origin (e.g. the app's base URL).
func New(client redis.UniversalClient, prefix string) *Bus {
	return &Bus{client: client, prefix: prefix}
}

func (b *Bus) channel(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + ":" + name
}

func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(channel), payload).Err(); err != nil {
		return errors.Wrapf(err, "redis publish")
	}
	return nil
}

// Subscribe attaches h and waits for Redis to confirm the subscription.
func (b *Bus) Subscribe(ctx context.Context, channel string, h broadcast.Handler) (broadcast.Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel(channel))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "redis subscribe")
	}

	sub := &subscription{ps: ps}
	msgs := ps.Channel()
	go func() {
		for msg := range msgs {
			if sub.closed.Load() {
				return
			}
			h([]byte(msg.Payload))
		}
	}()
	return sub, nil
}

type subscription struct {
	ps     *redis.PubSub
	closed atomic.Bool
}

func (s *subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.ps.Close()
}
