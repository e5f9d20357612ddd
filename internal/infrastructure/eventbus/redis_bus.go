// Package eventbus fans notifications out to every server instance through Redis Pub/Sub.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/collabfront/internal/application/notify"
	ws "github.com/lllypuk/collabfront/internal/infrastructure/websocket"
)

// Supported bus types.
const (
	TypeRedis    = "redis"
	TypeInMemory = "inmemory"
)

const (
	defaultChannelPrefix = "collabfront:"
	channelName          = "notifications"
	idCounterName        = "notification_id"
)

// eventEnvelope wraps a notification event with metadata for serialization.
type eventEnvelope struct {
	ID         string               `json:"id"`
	OccurredAt time.Time            `json:"occurred_at"`
	Event      ws.NotificationEvent `json:"event"`
}

// RedisNotificationBus implements notify.Handler by publishing show and remove
// events that every instance relays to its own browsers.
type RedisNotificationBus struct {
	client        *redis.Client
	channelPrefix string
	logger        *slog.Logger

	pubsubs   []*redis.PubSub
	pubsubsMu sync.Mutex

	shutdown chan struct{}
	wg       sync.WaitGroup

	running   bool
	runningMu sync.RWMutex
}

// Option configures a RedisNotificationBus.
type Option func(*RedisNotificationBus)

// WithLogger sets the logger for the bus.
func WithLogger(logger *slog.Logger) Option {
	return func(b *RedisNotificationBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithChannelPrefix sets a prefix for the Redis channel and counter keys.
func WithChannelPrefix(prefix string) Option {
	return func(b *RedisNotificationBus) {
		b.channelPrefix = prefix
	}
}

// NewRedisNotificationBus creates a new Redis-backed notification bus.
func NewRedisNotificationBus(client *redis.Client, opts ...Option) *RedisNotificationBus {
	b := &RedisNotificationBus{
		client:        client,
		channelPrefix: defaultChannelPrefix,
		logger:        slog.Default(),
		shutdown:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Channel returns the Redis channel the bus publishes on.
func (b *RedisNotificationBus) Channel() string {
	return b.channelPrefix + channelName
}

// Display allocates a cluster-wide id and publishes a show event.
// It returns notify.NoID when Redis is unreachable.
func (b *RedisNotificationBus) Display(ctx context.Context, req notify.Request) int {
	id, err := b.client.Incr(ctx, b.channelPrefix+idCounterName).Result()
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to allocate notification id", slog.String("error", err.Error()))
		return notify.NoID
	}

	evt := ws.NotificationEvent{Kind: ws.EventShow, ID: int(id), Request: req}
	if err = b.Publish(ctx, evt); err != nil {
		b.logger.ErrorContext(ctx, "failed to publish notification",
			slog.Int("id", evt.ID),
			slog.String("error", err.Error()),
		)
		return notify.NoID
	}

	return evt.ID
}

// Dismiss publishes a remove event.
func (b *RedisNotificationBus) Dismiss(ctx context.Context, id int) {
	if err := b.Publish(ctx, ws.NotificationEvent{Kind: ws.EventRemove, ID: id}); err != nil {
		b.logger.ErrorContext(ctx, "failed to publish notification removal",
			slog.Int("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Publish sends evt to every subscribed instance.
func (b *RedisNotificationBus) Publish(ctx context.Context, evt ws.NotificationEvent) error {
	data, err := json.Marshal(eventEnvelope{
		ID:         uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Event:      evt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = b.client.Publish(ctx, b.Channel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event to Redis: %w", err)
	}

	b.logger.DebugContext(ctx, "notification event published",
		slog.String("kind", evt.Kind),
		slog.Int("id", evt.ID),
	)
	return nil
}

// Subscribe implements websocket.EventSource. It waits for the subscription to be
// confirmed, then delivers events on a background goroutine until ctx is done or
// Shutdown is called.
func (b *RedisNotificationBus) Subscribe(ctx context.Context, handler func(context.Context, ws.NotificationEvent)) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	pubsub := b.client.Subscribe(ctx, b.Channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.Channel(), err)
	}

	b.pubsubsMu.Lock()
	b.pubsubs = append(b.pubsubs, pubsub)
	b.pubsubsMu.Unlock()

	b.runningMu.Lock()
	b.running = true
	stop := b.shutdown
	b.wg.Add(1)
	b.runningMu.Unlock()

	b.logger.InfoContext(ctx, "notification bus subscribed", slog.String("channel", b.Channel()))

	go b.listen(ctx, stop, pubsub.Channel(), handler)

	return nil
}

func (b *RedisNotificationBus) listen(
	ctx context.Context,
	stop <-chan struct{},
	msgCh <-chan *redis.Message,
	handler func(context.Context, ws.NotificationEvent),
) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			b.handleMessage(ctx, msg, handler)
		}
	}
}

func (b *RedisNotificationBus) handleMessage(
	ctx context.Context,
	msg *redis.Message,
	handler func(context.Context, ws.NotificationEvent),
) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.logger.ErrorContext(ctx, "failed to unmarshal notification event",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()),
		)
		return
	}

	handler(ctx, envelope.Event)
}

// Shutdown stops every listener and closes the subscriptions.
func (b *RedisNotificationBus) Shutdown() error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	close(b.shutdown)
	b.shutdown = make(chan struct{})
	b.runningMu.Unlock()

	b.wg.Wait()

	b.pubsubsMu.Lock()
	pubsubs := b.pubsubs
	b.pubsubs = nil
	b.pubsubsMu.Unlock()

	var errs []error
	for _, ps := range pubsubs {
		if err := ps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close pubsub: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsRunning returns true while at least one subscription is active.
func (b *RedisNotificationBus) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

var (
	_ notify.Handler = (*RedisNotificationBus)(nil)
	_ ws.EventSource = (*RedisNotificationBus)(nil)
)
