package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lllypuk/collabfront/internal/application/notify"
)

// Notification event kinds exchanged between instances.
const (
	EventShow   = "show"
	EventRemove = "remove"
)

// NotificationEvent is a show or remove instruction published on the event bus.
type NotificationEvent struct {
	Kind    string         `json:"kind"`
	ID      int            `json:"id"`
	Request notify.Request `json:"request"`
}

// EventSource delivers notification events published by any instance.
// Declared on the consumer side.
type EventSource interface {
	// Subscribe starts delivering events to handler until ctx is done.
	// It returns once the subscription is established.
	Subscribe(ctx context.Context, handler func(ctx context.Context, evt NotificationEvent)) error
}

// Broadcaster relays events from the bus to the browsers attached to this instance.
type Broadcaster struct {
	notifier *Notifier
	source   EventSource
	logger   *slog.Logger

	running   bool
	runningMu sync.RWMutex
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for the broadcaster.
func WithBroadcasterLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(notifier *Notifier, source EventSource, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		notifier: notifier,
		source:   source,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start subscribes to the event source. It does not block.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()

	if b.running {
		return nil
	}
	if b.source == nil {
		return errors.New("broadcaster has no event source")
	}

	if err := b.source.Subscribe(ctx, b.HandleEvent); err != nil {
		b.logger.ErrorContext(ctx, "failed to subscribe to notification events",
			slog.String("error", err.Error()),
		)
		return err
	}

	b.running = true
	b.logger.InfoContext(ctx, "notification broadcaster started")
	return nil
}

// IsRunning returns whether the broadcaster is subscribed.
func (b *Broadcaster) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// HandleEvent pushes one event to the local browsers.
func (b *Broadcaster) HandleEvent(ctx context.Context, evt NotificationEvent) {
	switch evt.Kind {
	case EventShow:
		b.notifier.Show(ctx, evt.ID, evt.Request)
	case EventRemove:
		b.notifier.Remove(ctx, evt.ID)
	default:
		b.logger.WarnContext(ctx, "unknown notification event",
			slog.String("kind", evt.Kind),
			slog.Int("id", evt.ID),
		)
	}
}
