package websocket_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/application/notify"
	ws "github.com/lllypuk/collabfront/internal/infrastructure/websocket"
)

// attachedClient connects one browser to a running hub and returns a reader of its frames.
func attachedClient(t *testing.T, hub *ws.Hub) func() ws.Message {
	t.Helper()

	serverConn, clientConn, cleanup := createWSConnPair(t)
	t.Cleanup(cleanup)

	client := ws.NewClient(hub, serverConn)
	hub.Register(client)
	go client.WritePump()

	return func() ws.Message {
		t.Helper()
		_, data, err := readWithTimeout(clientConn)
		require.NoError(t, err)

		var msg ws.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
}

func TestNotifier_DisplayAndDismiss(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())
	read := attachedClient(t, hub)

	n := ws.NewNotifier(hub, nil)
	ctx := context.Background()

	id := n.Display(ctx, notify.Request{Type: notify.TypeError, Title: "Oops", Duration: 8 * time.Second})
	assert.Equal(t, 1, id)

	msg := read()
	assert.Equal(t, ws.MessageTypeShow, msg.Type)
	assert.JSONEq(t, `{"id":1,"type":"error","title":"Oops","duration":8000}`, string(msg.Data))

	n.Dismiss(ctx, id)

	msg = read()
	assert.Equal(t, ws.MessageTypeRemove, msg.Type)
	assert.JSONEq(t, `{"id":1}`, string(msg.Data))
}

func TestNotifier_IDsIncrease(t *testing.T) {
	n := ws.NewNotifier(ws.NewHub(), nil)
	ctx := context.Background()

	first := n.Display(ctx, notify.Request{Type: notify.TypeInfo})
	second := n.Display(ctx, notify.Request{Type: notify.TypeInfo})

	assert.Greater(t, second, first)
}

func TestNotifier_WithFacade(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run(t.Context())
	read := attachedClient(t, hub)

	facade := notify.NewNotifier(ws.NewNotifier(hub, nil))
	ctx := context.Background()

	id := facade.ShowLoading(ctx, "Saving...")
	facade.HideLoading(ctx, id, "Saved")

	assert.Equal(t, ws.MessageTypeShow, read().Type)
	assert.Equal(t, ws.MessageTypeRemove, read().Type)

	last := read()
	assert.Equal(t, ws.MessageTypeShow, last.Type)
	assert.JSONEq(t, `{"id":2,"type":"success","title":"Saved","duration":5000}`, string(last.Data))
}
