//go:build integration

package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/redisstore"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()

	store := redisstore.New(client, "app", time.Hour)

	_, err = store.Load(ctx, session.StorageKey)
	require.ErrorIs(t, err, errors.ErrNotFound)

	want := &session.Session{
		User:            users.User{ID: "user-1"},
		Tokens:          token.Pair{AccessToken: "a.b.c"},
		IsAuthenticated: true,
	}
	require.NoError(t, store.Save(ctx, session.StorageKey, want))

	got, err := store.Load(ctx, session.StorageKey)
	require.NoError(t, err)
	require.Equal(t, want, got)

	ttl, err := client.TTL(ctx, "app:"+session.StorageKey).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, session.StorageKey))
	_, err = store.Load(ctx, session.StorageKey)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
