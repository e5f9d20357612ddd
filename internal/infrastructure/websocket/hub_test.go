package websocket_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/lllypuk/collabfront/internal/infrastructure/websocket"
)

func TestNewHub(t *testing.T) {
	hub := ws.NewHub(ws.WithHubLogger(nil))

	assert.NotNil(t, hub)
	assert.False(t, hub.IsRunning())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Run(t *testing.T) {
	t.Run("starts and stops with context cancellation", func(t *testing.T) {
		hub := ws.NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()

		require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-done:
			assert.False(t, hub.IsRunning())
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
	})

	t.Run("stops with Stop method", func(t *testing.T) {
		hub := ws.NewHub()

		done := make(chan struct{})
		go func() {
			hub.Run(context.Background())
			close(done)
		}()

		require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)
		hub.Stop()
		assert.NotPanics(t, hub.Stop)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
	})
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())

	client := ws.NewClient(hub, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, client.IsClosed())
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())

	serverA, clientA, cleanupA := createWSConnPair(t)
	defer cleanupA()
	serverB, clientB, cleanupB := createWSConnPair(t)
	defer cleanupB()

	for _, conn := range []*ws.Client{ws.NewClient(hub, serverA), ws.NewClient(hub, serverB)} {
		hub.Register(conn)
		go conn.WritePump()
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	frame, err := ws.NewMessage("notification.show", map[string]int{"id": 1})
	require.NoError(t, err)
	require.True(t, hub.Broadcast(frame))

	for _, conn := range []*websocket.Conn{clientA, clientB} {
		_, data, readErr := readWithTimeout(conn)
		require.NoError(t, readErr)

		var msg ws.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "notification.show", msg.Type)
		assert.JSONEq(t, `{"id":1}`, string(msg.Data))
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())

	cfg := ws.DefaultClientConfig()
	cfg.SendBufferSize = 1
	slow := ws.NewClient(hub, nil, ws.WithClientConfig(cfg))
	hub.Register(slow)

	// nothing drains the client, so the second frame overflows its buffer
	hub.Broadcast([]byte(`{"type":"a"}`))
	hub.Broadcast([]byte(`{"type":"b"}`))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, slow.IsClosed())
}
