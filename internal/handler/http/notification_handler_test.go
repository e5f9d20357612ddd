package httphandler_test

import (
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/application/notify"
	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
)

func setupNotificationHandler(t *testing.T) (*httphandler.MockNotificationService, func(string, string, string) (int, string)) {
	t.Helper()
	e, r := newTestRouter()
	svc := httphandler.NewMockNotificationService()
	httphandler.NewNotificationHandler(svc, notify.DefaultDurations()).RegisterRoutes(r)
	return svc, func(method, target, body string) (int, string) {
		rec := serve(e, method, target, body)
		return rec.Code, rec.Body.String()
	}
}

func TestNotificationHandler_Show(t *testing.T) {
	t.Run("dispatches and returns the id", func(t *testing.T) {
		svc, call := setupNotificationHandler(t)

		code, body := call(stdhttp.MethodPost, "/api/v1/notifications",
			`{"type":"warning","title":"Careful","message":"disk almost full","duration":1500}`)
		require.Equal(t, stdhttp.StatusCreated, code, body)
		assert.JSONEq(t, `{"success":true,"data":{"id":0}}`, body)

		shown := svc.Shown()
		require.Len(t, shown, 1)
		assert.Equal(t, notify.Request{
			Type:     notify.TypeWarning,
			Title:    "Careful",
			Message:  "disk almost full",
			Duration: 1500 * time.Millisecond,
		}, shown[0])
	})

	t.Run("absent duration selects the type default", func(t *testing.T) {
		svc, call := setupNotificationHandler(t)

		code, _ := call(stdhttp.MethodPost, "/api/v1/notifications", `{"type":"error","title":"x"}`)
		require.Equal(t, stdhttp.StatusCreated, code)
		assert.Equal(t, notify.DefaultDurations().Error, svc.Shown()[0].Duration)
	})

	t.Run("zero duration is sticky", func(t *testing.T) {
		svc, call := setupNotificationHandler(t)

		code, _ := call(stdhttp.MethodPost, "/api/v1/notifications", `{"type":"info","duration":0}`)
		require.Equal(t, stdhttp.StatusCreated, code)
		assert.Zero(t, svc.Shown()[0].Duration)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"unknown type", `{"type":"fatal"}`},
			{"missing type", `{"title":"x"}`},
			{"negative duration", `{"type":"info","duration":-1}`},
			{"duration too long", `{"type":"info","duration":600000}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, call := setupNotificationHandler(t)
				code, body := call(stdhttp.MethodPost, "/api/v1/notifications", tt.body)
				assert.Equal(t, stdhttp.StatusBadRequest, code)
				assert.Contains(t, body, "VALIDATION_FAILED")
				assert.Empty(t, svc.Shown())
			})
		}
	})

	t.Run("no display handler", func(t *testing.T) {
		svc, call := setupNotificationHandler(t)
		svc.Disable()

		code, body := call(stdhttp.MethodPost, "/api/v1/notifications", `{"type":"info"}`)
		assert.Equal(t, stdhttp.StatusServiceUnavailable, code)
		assert.Contains(t, body, "notification system not available")
	})
}

func TestNotificationHandler_Remove(t *testing.T) {
	svc, call := setupNotificationHandler(t)

	code, _ := call(stdhttp.MethodDelete, "/api/v1/notifications/7", "")
	assert.Equal(t, stdhttp.StatusNoContent, code)
	assert.Equal(t, []int{7}, svc.Removed())

	code, _ = call(stdhttp.MethodDelete, "/api/v1/notifications/abc", "")
	assert.Equal(t, stdhttp.StatusBadRequest, code)
	assert.Equal(t, []int{7}, svc.Removed())
}
