package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/collabfront/internal/application/notify"
	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// DomainReader is the read side of the domain store.
// Declared on the consumer side per project guidelines.
type DomainReader interface {
	GetDomain(index int) (record.Domain, bool)
	Domains() []record.Domain
}

// CollabReader reads a domain's data from the collab backend.
type CollabReader interface {
	GetDomain(ctx context.Context, accessKey string) (collabapi.DomainInfo, error)
	GetRequests(
		ctx context.Context,
		kind collabapi.RequestKind,
		accessKey string,
		filter collabapi.RequestFilter,
	) ([]collabapi.CapturedRequest, error)
	GetPatterns(ctx context.Context, accessKey string) ([]collabapi.Pattern, error)
	GetDNSRecords(ctx context.Context, accessKey string) ([]collabapi.DNSRecord, error)
}

// ErrorNotifier surfaces backend failures as toasts.
type ErrorNotifier interface {
	ShowError(ctx context.Context, content notify.Content) int
}

// PageData is passed to every page template.
type PageData struct {
	Title string
	View  string
	Data  any
}

// DomainRow is one line of the home page list.
type DomainRow struct {
	Index  int
	Domain record.Domain
}

// DomainPage is the common part of the per-domain views. Found is false when
// the id does not address a stored domain.
type DomainPage struct {
	ID     string
	Index  int
	Found  bool
	Domain record.Domain
	Error  string
}

// DomainDetail is the data of the domain view.
type DomainDetail struct {
	DomainPage
	Info      *collabapi.DomainInfo
	Kind      collabapi.RequestKind
	Kinds     []collabapi.RequestKind
	PatternID string
	Requests  []collabapi.CapturedRequest
}

// PathsDetail is the data of the paths view.
type PathsDetail struct {
	DomainPage
	Patterns []collabapi.Pattern
}

// DNSDetail is the data of the dns view.
type DNSDetail struct {
	DomainPage
	Records []collabapi.DNSRecord
}

// PageHandler renders the views of the page route table.
type PageHandler struct {
	store    DomainReader
	backend  CollabReader
	notifier ErrorNotifier
	logger   *slog.Logger
}

// NewPageHandler creates a new PageHandler. backend and notifier may be nil;
// the domain views then render the stored record only.
func NewPageHandler(store DomainReader, backend CollabReader, notifier ErrorNotifier, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		store:    store,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers one GET route per PageRoutes entry.
func (h *PageHandler) RegisterRoutes(r *httpserver.Router) {
	for _, route := range PageRoutes() {
		r.Page(route.Path, h.handlerFor(route))
	}
}

func (h *PageHandler) handlerFor(route PageRoute) echo.HandlerFunc {
	var view func(c echo.Context) (int, any)
	switch route.View {
	case ViewHome:
		view = h.home
	case ViewDomain:
		view = h.domain
	case ViewPaths:
		view = h.paths
	case ViewDNS:
		view = h.dns
	default:
		return func(_ echo.Context) error { return echo.ErrNotFound }
	}

	return func(c echo.Context) error {
		status, data := view(c)
		return c.Render(status, route.Template, PageData{
			Title: route.Title,
			View:  route.View,
			Data:  data,
		})
	}
}

func (h *PageHandler) home(_ echo.Context) (int, any) {
	domains := h.store.Domains()
	rows := make([]DomainRow, len(domains))
	for i, d := range domains {
		rows[i] = DomainRow{Index: i, Domain: d}
	}
	return http.StatusOK, rows
}

func (h *PageHandler) domain(c echo.Context) (int, any) {
	page, status := h.lookup(c)
	detail := DomainDetail{
		DomainPage: page,
		Kind:       parseKind(c.QueryParam("kind")),
		Kinds:      []collabapi.RequestKind{collabapi.KindHTTP, collabapi.KindDNS, collabapi.KindSMTP},
		PatternID:  c.QueryParam("pattern"),
	}
	if !h.canQuery(page) {
		return status, detail
	}

	ctx := c.Request().Context()
	info, err := h.backend.GetDomain(ctx, page.Domain.AccessKey)
	if err != nil {
		detail.Error = h.backendFailed(ctx, "load domain", err)
		return status, detail
	}
	detail.Info = &info

	filter := collabapi.RequestFilter{PatternID: detail.PatternID}
	if after, ok := parseUnix(c.QueryParam("after")); ok {
		filter.After = after
	}
	requests, err := h.backend.GetRequests(ctx, detail.Kind, page.Domain.AccessKey, filter)
	if err != nil {
		detail.Error = h.backendFailed(ctx, "load requests", err)
		return status, detail
	}
	detail.Requests = requests

	return status, detail
}

func (h *PageHandler) paths(c echo.Context) (int, any) {
	page, status := h.lookup(c)
	detail := PathsDetail{DomainPage: page}
	if !h.canQuery(page) {
		return status, detail
	}

	ctx := c.Request().Context()
	patterns, err := h.backend.GetPatterns(ctx, page.Domain.AccessKey)
	if err != nil {
		detail.Error = h.backendFailed(ctx, "load patterns", err)
		return status, detail
	}
	detail.Patterns = patterns
	return status, detail
}

func (h *PageHandler) dns(c echo.Context) (int, any) {
	page, status := h.lookup(c)
	detail := DNSDetail{DomainPage: page}
	if !h.canQuery(page) {
		return status, detail
	}

	ctx := c.Request().Context()
	records, err := h.backend.GetDNSRecords(ctx, page.Domain.AccessKey)
	if err != nil {
		detail.Error = h.backendFailed(ctx, "load dns records", err)
		return status, detail
	}
	detail.Records = records
	return status, detail
}

// lookup interprets the id parameter as a store index.
func (h *PageHandler) lookup(c echo.Context) (DomainPage, int) {
	page := DomainPage{ID: c.Param("id"), Index: -1}

	index, err := strconv.Atoi(page.ID)
	if err != nil {
		return page, http.StatusNotFound
	}
	d, ok := h.store.GetDomain(index)
	if !ok {
		return page, http.StatusNotFound
	}

	page.Index = index
	page.Found = true
	page.Domain = d
	return page, http.StatusOK
}

func (h *PageHandler) canQuery(page DomainPage) bool {
	return page.Found && h.backend != nil && page.Domain.AccessKey != ""
}

// backendFailed logs err, raises an error toast and returns the inline message.
func (h *PageHandler) backendFailed(ctx context.Context, action string, err error) string {
	msg := backendMessage(err)
	h.logger.WarnContext(ctx, "collab backend call failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	if h.notifier != nil {
		h.notifier.ShowError(ctx, notify.Options{Title: "Failed to " + action, Message: msg})
	}
	return msg
}

func backendMessage(err error) string {
	if apiErr, ok := collabapi.IsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "collab backend timed out"
	}
	return "collab backend unavailable"
}

func parseKind(s string) collabapi.RequestKind {
	switch collabapi.RequestKind(s) {
	case collabapi.KindDNS:
		return collabapi.KindDNS
	case collabapi.KindSMTP:
		return collabapi.KindSMTP
	default:
		return collabapi.KindHTTP
	}
}

// parseUnix parses a positive unix timestamp in seconds.
func parseUnix(s string) (time.Time, bool) {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
