package httphandler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/collabfront/internal/application/notify"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// maxNotificationDuration caps how long a toast requested over the API stays up.
const maxNotificationDuration = 60000

// NotificationService dispatches toasts to the connected browsers.
// Declared on the consumer side per project guidelines.
type NotificationService interface {
	ShowNotification(ctx context.Context, req notify.Request) int
	RemoveNotification(ctx context.Context, id int)
}

// ShowNotificationRequest is the body of POST /notifications. Duration is in
// milliseconds; zero keeps the toast until dismissed, absent selects the
// per-type default.
type ShowNotificationRequest struct {
	Type     string `json:"type"     validate:"required,oneof=success error warning info"`
	Title    string `json:"title"    validate:"max=200"`
	Message  string `json:"message"  validate:"max=2000"`
	Duration *int64 `json:"duration" validate:"omitempty,gte=0,lte=60000"`
}

// NotificationIDResponse carries the id of a dispatched notification.
type NotificationIDResponse struct {
	ID int `json:"id"`
}

var errNoNotifications = &apiError{
	status:  http.StatusServiceUnavailable,
	code:    "NOTIFICATIONS_UNAVAILABLE",
	message: "notification system not available",
}

// NotificationHandler exposes the notification facade over HTTP.
type NotificationHandler struct {
	service  NotificationService
	defaults notify.Defaults
}

// NewNotificationHandler creates a new NotificationHandler. defaults fills in
// the duration when a request leaves it out.
func NewNotificationHandler(service NotificationService, defaults notify.Defaults) *NotificationHandler {
	return &NotificationHandler{
		service:  service,
		defaults: defaults,
	}
}

// RegisterRoutes registers notification routes with the router.
func (h *NotificationHandler) RegisterRoutes(r *httpserver.Router) {
	r.Mutating().POST("/notifications", h.Show)
	r.Mutating().DELETE("/notifications/:id", h.Remove)
}

// Show handles POST /api/v1/notifications.
func (h *NotificationHandler) Show(c echo.Context) error {
	var req ShowNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return httpserver.RespondError(c, err)
	}

	n := notify.Request{
		Type:    notify.Type(req.Type),
		Title:   req.Title,
		Message: req.Message,
	}
	if req.Duration != nil {
		n.Duration = time.Duration(min(*req.Duration, maxNotificationDuration)) * time.Millisecond
	} else {
		n.Duration = h.defaults.For(n.Type)
	}
	if err := n.Validate(); err != nil {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	}

	id := h.service.ShowNotification(c.Request().Context(), n)
	if id == notify.NoID {
		return httpserver.RespondError(c, errNoNotifications)
	}
	return httpserver.RespondCreated(c, NotificationIDResponse{ID: id})
}

// Remove handles DELETE /api/v1/notifications/:id. Unknown ids are ignored.
func (h *NotificationHandler) Remove(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		return httpserver.RespondErrorWithCode(
			c, http.StatusBadRequest, "INVALID_NOTIFICATION_ID", "invalid notification ID")
	}

	h.service.RemoveNotification(c.Request().Context(), id)
	return httpserver.RespondNoContent(c)
}

// MockNotificationService is a mock implementation of NotificationService for testing.
type MockNotificationService struct {
	mu       sync.Mutex
	nextID   int
	shown    []notify.Request
	removed  []int
	disabled bool
}

// NewMockNotificationService creates a new mock notification service.
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// Disable makes ShowNotification behave as if no display handler were registered.
func (m *MockNotificationService) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = true
}

// ShowNotification implements NotificationService.
func (m *MockNotificationService) ShowNotification(_ context.Context, req notify.Request) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return notify.NoID
	}
	id := m.nextID
	m.nextID++
	m.shown = append(m.shown, req)
	return id
}

// RemoveNotification implements NotificationService.
func (m *MockNotificationService) RemoveNotification(_ context.Context, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
}

// Shown returns the dispatched requests.
func (m *MockNotificationService) Shown() []notify.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Request(nil), m.shown...)
}

// Removed returns the ids passed to RemoveNotification.
func (m *MockNotificationService) Removed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.removed...)
}
