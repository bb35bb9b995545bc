package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]session.Session
	lock     sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]session.Session),
	}
}

func (r *FakeSessionRepo) Save(_ context.Context, key string, s *session.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sessions[key] = s.Clone()
	return nil
}

func (r *FakeSessionRepo) Load(_ context.Context, key string) (*session.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.sessions[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	c := s.Clone()
	return &c, nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.sessions, key)
	return nil
}

// Has reports whether something is stored under key.
func (r *FakeSessionRepo) Has(key string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.sessions[key]
	return ok
}
