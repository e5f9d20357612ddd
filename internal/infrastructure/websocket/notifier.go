package websocket

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/lllypuk/collabfront/internal/application/notify"
)

// Frame types understood by web/static/js/notifications.js.
const (
	MessageTypeShow   = "notification.show"
	MessageTypeRemove = "notification.remove"
)

// ShowPayload is the data of a notification.show frame. Duration is in milliseconds.
type ShowPayload struct {
	ID       int         `json:"id"`
	Type     notify.Type `json:"type"`
	Title    string      `json:"title,omitempty"`
	Message  string      `json:"message,omitempty"`
	Duration int64       `json:"duration"`
}

func newShowPayload(id int, req notify.Request) ShowPayload {
	return ShowPayload{
		ID:       id,
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Duration: req.Duration.Milliseconds(),
	}
}

// RemovePayload is the data of a notification.remove frame.
type RemovePayload struct {
	ID int `json:"id"`
}

// Notifier implements notify.Handler by broadcasting frames to every connected browser.
type Notifier struct {
	hub    *Hub
	nextID atomic.Int64
	logger *slog.Logger
}

// NewNotifier creates a notifier on top of hub.
func NewNotifier(hub *Hub, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hub: hub, logger: logger}
}

// Display assigns the next id and shows req on every browser.
func (n *Notifier) Display(ctx context.Context, req notify.Request) int {
	id := int(n.nextID.Add(1))
	n.Show(ctx, id, req)
	return id
}

// Dismiss removes the notification from every browser.
func (n *Notifier) Dismiss(ctx context.Context, id int) {
	n.Remove(ctx, id)
}

// Show broadcasts req under an id chosen by the caller.
func (n *Notifier) Show(ctx context.Context, id int, req notify.Request) {
	n.send(ctx, MessageTypeShow, newShowPayload(id, req))
}

// Remove broadcasts the removal of id.
func (n *Notifier) Remove(ctx context.Context, id int) {
	n.send(ctx, MessageTypeRemove, RemovePayload{ID: id})
}

func (n *Notifier) send(ctx context.Context, msgType string, payload any) {
	frame, err := NewMessage(msgType, payload)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode notification frame", slog.String("error", err.Error()))
		return
	}
	n.hub.Broadcast(frame)
}
