// Package redisstore persists the session in Redis so every process on the
// host restores the same session.
package redisstore

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/redis/go-redis/v9"
)

var _ session.Repo = (*Store)(nil)

type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates the store. Keys are written as prefix:key; a ttl of zero keeps them until deleted.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) redisKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *Store) Save(ctx context.Context, key string, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrapf(err, "encode session")
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set")
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get")
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrapf(err, "decode session")
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "redis del")
	}
	return nil
}
