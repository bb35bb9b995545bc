package authflowrepo

import (
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Flows older than the TTL are treated as missing and pruned on write.
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]AuthFlowState
	ttl     time.Duration
	nowTime func() time.Time
}

// Option defines a function type to modify the InMemoryRepo instance.
type Option func(*InMemoryRepo)

func WithTTL(ttl time.Duration) Option {
	return func(r *InMemoryRepo) {
		r.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

func NewInMemoryRepo(opts ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		states:  make(map[string]AuthFlowState),
		ttl:     DefaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return fmt.Errorf("%w: state cannot be empty", errors.ErrInvalidRequest)
	}
	if authState == nil {
		return fmt.Errorf("%w: authState cannot be nil", errors.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.states[state] = *authState
	return nil
}

func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(state)
}

func (r *InMemoryRepo) Take(state string) (*AuthFlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flow, err := r.getLocked(state)
	delete(r.states, state)
	return flow, err
}

func (r *InMemoryRepo) Delete(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) getLocked(state string) (*AuthFlowState, error) {
	flow, ok := r.states[state]
	if !ok || r.expired(flow) {
		return nil, fmt.Errorf("auth flow %q: %w", state, errors.ErrNotFound)
	}
	return &flow, nil
}

func (r *InMemoryRepo) expired(flow AuthFlowState) bool {
	return r.nowTime().Sub(flow.CreatedAt) > r.ttl
}

func (r *InMemoryRepo) pruneLocked() {
	for state, flow := range r.states {
		if r.expired(flow) {
			delete(r.states, state)
		}
	}
}
