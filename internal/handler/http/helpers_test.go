package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/application/domainstore"
	"github.com/lllypuk/collabfront/internal/application/notify"
	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository/memory"
)

// envelope mirrors httpserver.Response with the payload kept raw.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *httpserver.Error `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	decodeDataBytes(t, rec.Body.Bytes(), dst)
}

func decodeDataBytes(t *testing.T, body []byte, dst any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	require.True(t, env.Success, string(body))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// newTestRouter builds an echo instance with the production validator and
// router defaults.
func newTestRouter() (*echo.Echo, *httpserver.Router) {
	e := echo.New()
	e.Validator = httpserver.NewValidator()
	return e, httpserver.NewRouter(e, httpserver.DefaultRouterConfig())
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newStore(t *testing.T, domains ...record.Domain) (*domainstore.Store, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	s := domainstore.New(context.Background(), repo)
	for _, d := range domains {
		require.NoError(t, s.AddDomain(context.Background(), d))
	}
	return s, repo
}

// failingRepo loads nothing and rejects every save.
type failingRepo struct{}

func (failingRepo) Load(context.Context) ([]record.Domain, error) { return nil, nil }
func (failingRepo) Save(context.Context, []record.Domain) error   { return errors.New("disk full") }

// displayed is one call on recordingHandler.
type displayed struct {
	ID  int
	Req notify.Request
}

// recordingHandler is a notify.Handler that remembers what it was asked to show.
type recordingHandler struct {
	mu        sync.Mutex
	next      int
	shown     []displayed
	dismissed []int
}

func (h *recordingHandler) Display(_ context.Context, req notify.Request) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.shown = append(h.shown, displayed{ID: id, Req: req})
	return id
}

func (h *recordingHandler) Dismiss(_ context.Context, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dismissed = append(h.dismissed, id)
}

func (h *recordingHandler) Shown() []displayed {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]displayed(nil), h.shown...)
}

func (h *recordingHandler) Dismissed() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.dismissed...)
}
