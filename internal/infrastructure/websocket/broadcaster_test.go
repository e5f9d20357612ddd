package websocket_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/application/notify"
	ws "github.com/lllypuk/collabfront/internal/infrastructure/websocket"
)

type fakeSource struct {
	handler func(ctx context.Context, evt ws.NotificationEvent)
	err     error
	calls   int
}

func (s *fakeSource) Subscribe(_ context.Context, handler func(context.Context, ws.NotificationEvent)) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.handler = handler
	return nil
}

func TestBroadcaster_Start(t *testing.T) {
	t.Run("subscribes once", func(t *testing.T) {
		src := &fakeSource{}
		b := ws.NewBroadcaster(ws.NewNotifier(ws.NewHub(), nil), src)

		require.NoError(t, b.Start(context.Background()))
		require.NoError(t, b.Start(context.Background()))

		assert.True(t, b.IsRunning())
		assert.Equal(t, 1, src.calls)
	})

	t.Run("propagates subscribe error", func(t *testing.T) {
		src := &fakeSource{err: errors.New("redis down")}
		b := ws.NewBroadcaster(ws.NewNotifier(ws.NewHub(), nil), src)

		require.Error(t, b.Start(context.Background()))
		assert.False(t, b.IsRunning())
	})

	t.Run("requires a source", func(t *testing.T) {
		b := ws.NewBroadcaster(ws.NewNotifier(ws.NewHub(), nil), nil)
		assert.Error(t, b.Start(context.Background()))
	})
}

func TestBroadcaster_RelaysEvents(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())
	read := attachedClient(t, hub)

	src := &fakeSource{}
	b := ws.NewBroadcaster(ws.NewNotifier(hub, nil), src)
	require.NoError(t, b.Start(context.Background()))

	ctx := context.Background()
	src.handler(ctx, ws.NotificationEvent{
		Kind:    ws.EventShow,
		ID:      41,
		Request: notify.Request{Type: notify.TypeWarning, Title: "remote"},
	})
	src.handler(ctx, ws.NotificationEvent{Kind: "bogus", ID: 1})
	src.handler(ctx, ws.NotificationEvent{Kind: ws.EventRemove, ID: 41})

	show := read()
	assert.Equal(t, ws.MessageTypeShow, show.Type)
	assert.JSONEq(t, `{"id":41,"type":"warning","title":"remote","duration":0}`, string(show.Data))

	remove := read()
	assert.Equal(t, ws.MessageTypeRemove, remove.Type)
	assert.JSONEq(t, `{"id":41}`, string(remove.Data))
}
