// Package membus is an in-process Bus. Every Bus value is one "origin": tabs that
// share a Bus see each other's messages.
package membus

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/broadcast"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

var _ broadcast.Bus = (*Bus)(nil)

type Bus struct {
	lock     sync.RWMutex
	nextID   int
	channels map[string]map[int]broadcast.Handler
	closed   bool
}

func New() *Bus {
	return &Bus{
		channels: make(map[string]map[int]broadcast.Handler),
	}
}

// Publish delivers payload synchronously to every current subscriber of channel.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.lock.RLock()
	if b.closed {
		b.lock.RUnlock()
		return errors.ErrBusClosed
	}
	handlers := make([]broadcast.Handler, 0, len(b.channels[channel]))
	for _, h := range b.channels[channel] {
		handlers = append(handlers, h)
	}
	b.lock.RUnlock()

	for _, h := range handlers {
		h(append([]byte(nil), payload...))
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, channel string, h broadcast.Handler) (broadcast.Subscription, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil, errors.ErrBusClosed
	}
	if _, ok := b.channels[channel]; !ok {
		b.channels[channel] = make(map[int]broadcast.Handler)
	}
	b.nextID++
	id := b.nextID
	b.channels[channel][id] = h
	return &subscription{bus: b, channel: channel, id: id}, nil
}

// Subscribers returns the number of active subscriptions on channel.
func (b *Bus) Subscribers(channel string) int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.channels[channel])
}

// Close drops every subscription and rejects further use.
func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
	b.channels = make(map[string]map[int]broadcast.Handler)
	return nil
}

type subscription struct {
	bus     *Bus
	channel string
	id      int
}

func (s *subscription) Close() error {
	s.bus.lock.Lock()
	defer s.bus.lock.Unlock()
	subs, ok := s.bus.channels[s.channel]
	if !ok {
		return nil
	}
	delete(subs, s.id)
	if len(subs) == 0 {
		delete(s.bus.channels, s.channel)
	}
	return nil
}
