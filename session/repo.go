package session

import "context"

// Repo persists the session so it survives a restart. Load returns
// errors.ErrNotFound when nothing is stored under key.
type Repo interface {
	Save(ctx context.Context, key string, s *Session) error
	Load(ctx context.Context, key string) (*Session, error)
	Delete(ctx context.Context, key string) error
}
