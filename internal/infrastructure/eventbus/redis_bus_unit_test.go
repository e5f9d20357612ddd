package eventbus_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/application/notify"
	"github.com/lllypuk/collabfront/internal/infrastructure/eventbus"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisNotificationBus_Channel(t *testing.T) {
	bus := eventbus.NewRedisNotificationBus(unreachableClient(t))
	assert.Equal(t, "collabfront:notifications", bus.Channel())

	bus = eventbus.NewRedisNotificationBus(unreachableClient(t), eventbus.WithChannelPrefix("x:"))
	assert.Equal(t, "x:notifications", bus.Channel())
}

func TestRedisNotificationBus_SubscribeRequiresHandler(t *testing.T) {
	bus := eventbus.NewRedisNotificationBus(unreachableClient(t))
	require.Error(t, bus.Subscribe(context.Background(), nil))
	assert.False(t, bus.IsRunning())
}

func TestRedisNotificationBus_UnreachableRedis(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := eventbus.NewRedisNotificationBus(unreachableClient(t), eventbus.WithLogger(logger))

	id := bus.Display(context.Background(), notify.Request{Type: notify.TypeInfo, Title: "x"})
	assert.Equal(t, notify.NoID, id)
	assert.Contains(t, buf.String(), "failed to allocate notification id")

	assert.NotPanics(t, func() { bus.Dismiss(context.Background(), 3) })
	assert.NoError(t, bus.Shutdown())
}
