// Package notify is the notification facade: typed helpers that build toast
// requests and forward them to a single injected display handler.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/lllypuk/collabfront/internal/infrastructure/metrics"
)

// NoID is returned when no handler is available to display a notification.
const NoID = -1

// Default texts of the loading helpers.
const (
	DefaultLoadingMessage = "Loading..."
	DefaultDoneMessage    = "Done!"
	DefaultErrorMessage   = "Loading error"
)

// Handler displays and dismisses notifications.
type Handler interface {
	// Display shows the notification and returns its id.
	Display(ctx context.Context, req Request) int

	// Dismiss removes a displayed notification. Unknown ids are ignored.
	Dismiss(ctx context.Context, id int)
}

// Defaults holds the auto-dismiss durations used when content leaves Duration unset.
type Defaults struct {
	Success time.Duration
	Error   time.Duration
	Warning time.Duration
	Info    time.Duration
}

// DefaultDurations returns the stock durations.
func DefaultDurations() Defaults {
	return Defaults{
		Success: 5000 * time.Millisecond,
		Error:   8000 * time.Millisecond,
		Warning: 6000 * time.Millisecond,
		Info:    5000 * time.Millisecond,
	}
}

// For returns the default duration of t.
func (d Defaults) For(t Type) time.Duration {
	switch t {
	case TypeError:
		return d.Error
	case TypeWarning:
		return d.Warning
	case TypeInfo:
		return d.Info
	default:
		return d.Success
	}
}

// Notifier is the notification facade. It keeps no state of its own.
type Notifier struct {
	handler  Handler
	defaults Defaults
	logger   *slog.Logger
	metrics  *metrics.NotificationMetrics
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger for the notifier.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithDefaults overrides the per-type default durations.
func WithDefaults(d Defaults) Option {
	return func(n *Notifier) {
		n.defaults = d
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.NotificationMetrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// NewNotifier creates a facade over handler. A nil handler is allowed:
// show calls then return NoID and removals do nothing.
func NewNotifier(handler Handler, opts ...Option) *Notifier {
	n := &Notifier{
		handler:  handler,
		defaults: DefaultDurations(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// ShowSuccess shows a success notification.
func (n *Notifier) ShowSuccess(ctx context.Context, c Content) int {
	return n.show(ctx, TypeSuccess, c)
}

// ShowError shows an error notification.
func (n *Notifier) ShowError(ctx context.Context, c Content) int {
	return n.show(ctx, TypeError, c)
}

// ShowWarning shows a warning notification.
func (n *Notifier) ShowWarning(ctx context.Context, c Content) int {
	return n.show(ctx, TypeWarning, c)
}

// ShowInfo shows an info notification.
func (n *Notifier) ShowInfo(ctx context.Context, c Content) int {
	return n.show(ctx, TypeInfo, c)
}

func (n *Notifier) show(ctx context.Context, t Type, c Content) int {
	var o Options
	if c != nil {
		o = c.options()
	}

	d := n.defaults.For(t)
	if o.Duration != nil {
		d = *o.Duration
	}

	return n.ShowNotification(ctx, Request{
		Type:     t,
		Title:    o.Title,
		Message:  o.Message,
		Duration: d,
	})
}

// ShowNotification forwards req to the handler and returns its id, or NoID
// when no handler is registered.
func (n *Notifier) ShowNotification(ctx context.Context, req Request) int {
	if n.handler == nil {
		n.logger.WarnContext(ctx, "notification system not available",
			slog.String("type", string(req.Type)),
			slog.String("title", req.Title),
		)
		n.observe(req.Type, metrics.OutcomeUnavailable)
		return NoID
	}

	id := n.handler.Display(ctx, req)
	n.observe(req.Type, metrics.OutcomeDisplayed)
	return id
}

// RemoveNotification dismisses the notification with id.
func (n *Notifier) RemoveNotification(ctx context.Context, id int) {
	if n.handler == nil {
		return
	}
	n.handler.Dismiss(ctx, id)
	if n.metrics != nil {
		n.metrics.Dismissed.Inc()
	}
}

// ShowLoading shows a sticky info notification and returns its id.
func (n *Notifier) ShowLoading(ctx context.Context, message string) int {
	if message == "" {
		message = DefaultLoadingMessage
	}
	return n.ShowInfo(ctx, Options{Title: message, Duration: Duration(0)})
}

// HideLoading removes the loading notification and shows a success one.
func (n *Notifier) HideLoading(ctx context.Context, id int, message string) {
	if message == "" {
		message = DefaultDoneMessage
	}
	n.RemoveNotification(ctx, id)
	n.ShowSuccess(ctx, Title(message))
}

// ShowLoadingError removes the loading notification and shows an error one.
func (n *Notifier) ShowLoadingError(ctx context.Context, id int, message string) {
	if message == "" {
		message = DefaultErrorMessage
	}
	n.RemoveNotification(ctx, id)
	n.ShowError(ctx, Title(message))
}

func (n *Notifier) observe(t Type, outcome string) {
	if n.metrics != nil {
		n.metrics.Shown.WithLabelValues(string(t), outcome).Inc()
	}
}
