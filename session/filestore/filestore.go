// Package filestore persists the session as a JSON blob in the data folder,
// optionally sealed with NaCl secretbox.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var _ session.Repo = (*Store)(nil)

type Store struct {
	dir  string
	key  *[keySize]byte
	lock sync.Mutex
}

// Option defines a function type to modify the Store instance.
type Option func(*Store) error

// WithSealKey seals the blob with key, given as 64 hex characters or 32 raw bytes.
// An empty key leaves the blob in plain JSON.
func WithSealKey(key string) Option {
	return func(s *Store) error {
		if key == "" {
			return nil
		}
		raw := []byte(key)
		if len(key) == 2*keySize {
			decoded, err := hex.DecodeString(key)
			if err != nil {
				return fmt.Errorf("%w: seal key is not hex", errors.ErrInvalidRequest)
			}
			raw = decoded
		}
		if len(raw) != keySize {
			return fmt.Errorf("%w: seal key must be %d bytes", errors.ErrInvalidRequest, keySize)
		}
		var k [keySize]byte
		copy(k[:], raw)
		s.key = &k
		return nil
	}
}

// New creates the store, making dir if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create session folder %s", dir)
	}
	return s, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".json")
}

func (s *Store) Save(_ context.Context, key string, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrapf(err, "encode session")
	}
	if s.key != nil {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "write session")
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return errors.Wrapf(err, "replace session")
	}
	return nil
}

func (s *Store) Load(_ context.Context, key string) (*session.Session, error) {
	s.lock.Lock()
	data, err := os.ReadFile(s.path(key))
	s.lock.Unlock()
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read session")
	}

	if s.key != nil {
		if data, err = s.open(data); err != nil {
			return nil, err
		}
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrapf(err, "decode session")
	}
	return &sess, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete session")
	}
	return nil
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrapf(err, "generate nonce")
	}
	return secretbox.Seal(nonce[:], plain, &nonce, s.key), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("%w: sealed session too short", errors.ErrInternal)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, s.key)
	if !ok {
		return nil, fmt.Errorf("%w: cannot open sealed session", errors.ErrInternal)
	}
	return plain, nil
}
