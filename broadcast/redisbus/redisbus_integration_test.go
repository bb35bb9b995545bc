//go:build integration

package redisbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/broadcast"
	"github.com/jrsteele09/go-auth-session/broadcast/redisbus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
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
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBus_CrossProcessLogout(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)

	tabA := broadcast.NewBroadcaster(redisbus.New(client, "app"))
	tabB := broadcast.NewBroadcaster(redisbus.New(client, "app"))

	received := make(chan broadcast.Message, 4)
	require.NoError(t, tabB.Init(ctx, func(m broadcast.Message) { received <- m }))
	require.NoError(t, tabB.Init(ctx, func(m broadcast.Message) { received <- m }))
	defer tabB.Close()

	require.NoError(t, tabA.PublishLogout(ctx))

	select {
	case m := <-received:
		require.Equal(t, broadcast.KindLogout, m.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("logout not delivered")
	}

	select {
	case m := <-received:
		t.Fatalf("duplicate delivery: %+v", m)
	case <-time.After(500 * time.Millisecond):
	}
}
