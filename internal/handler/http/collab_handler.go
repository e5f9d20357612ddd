package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// CollabBackend is the part of the collab admin API proxied for a stored domain.
type CollabBackend interface {
	CollabReader
	DomainCreator
	CreatePattern(ctx context.Context, accessKey string) (collabapi.Pattern, error)
	UpdatePattern(ctx context.Context, accessKey string, p collabapi.Pattern) (bool, error)
	DeletePattern(ctx context.Context, accessKey, id string) (bool, error)
	CreateDNSRecord(ctx context.Context, accessKey string) (collabapi.DNSRecord, error)
	UpdateDNSRecord(ctx context.Context, accessKey string, r collabapi.DNSRecord) (bool, error)
	DeleteDNSRecord(ctx context.Context, accessKey, id string) (bool, error)
}

// UpdatePatternRequest is the body of PUT /domains/:index/patterns/:id.
type UpdatePatternRequest struct {
	Pattern         string             `json:"pattern"         validate:"required,max=1024"`
	Priority        int                `json:"priority"        validate:"gte=0"`
	ResponseBody    string             `json:"responsebody"`
	ResponseCode    int                `json:"responsecode"    validate:"required,gte=100,lte=599"`
	ResponseHeaders []collabapi.Header `json:"responseheaders" validate:"dive"`
	ExternalHandler string             `json:"externalHandler" validate:"omitempty,url"`
}

// UpdateDNSRecordRequest is the body of PUT /domains/:index/dns/:id.
type UpdateDNSRecordRequest struct {
	Name         string `json:"name"         validate:"required,max=253"`
	Type         string `json:"type"         validate:"required,oneof=A AAAA CNAME TXT MX NS"`
	TTL          string `json:"ttl"          validate:"omitempty,numeric"`
	ResponseType string `json:"responsetype" validate:"required,oneof=static rebind"`
	Value        string `json:"value"`
	Value1       string `json:"value1"`
	Value2       string `json:"value2"`
}

// UpdatedResponse reports whether an update or delete changed anything.
type UpdatedResponse struct {
	Success bool `json:"success"`
}

// CollabHandler proxies pattern and DNS record management and the request log
// of a stored domain to the collab backend.
type CollabHandler struct {
	store   DomainReader
	backend CollabBackend
	logger  *slog.Logger
}

// NewCollabHandler creates a new CollabHandler.
func NewCollabHandler(store DomainReader, backend CollabBackend, logger *slog.Logger) *CollabHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollabHandler{
		store:   store,
		backend: backend,
		logger:  logger,
	}
}

// RegisterRoutes registers collab routes with the router.
func (h *CollabHandler) RegisterRoutes(r *httpserver.Router) {
	r.API().GET("/domains/:index/info", h.Info)
	r.API().GET("/domains/:index/requests", h.Requests)
	r.API().GET("/domains/:index/patterns", h.ListPatterns)
	r.API().GET("/domains/:index/dns", h.ListDNSRecords)

	m := r.Mutating()
	m.POST("/domains/:index/patterns", h.CreatePattern)
	m.PUT("/domains/:index/patterns/:id", h.UpdatePattern)
	m.DELETE("/domains/:index/patterns/:id", h.DeletePattern)
	m.POST("/domains/:index/dns", h.CreateDNSRecord)
	m.PUT("/domains/:index/dns/:id", h.UpdateDNSRecord)
	m.DELETE("/domains/:index/dns/:id", h.DeleteDNSRecord)
}

// Info handles GET /api/v1/domains/:index/info.
func (h *CollabHandler) Info(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	info, err := h.backend.GetDomain(c.Request().Context(), key)
	if err != nil {
		return h.backendError(c, "getDomain", err)
	}
	return httpserver.RespondOK(c, info)
}

// Requests handles GET /api/v1/domains/:index/requests?kind=&after=&pattern=.
func (h *CollabHandler) Requests(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	filter := collabapi.RequestFilter{PatternID: c.QueryParam("pattern")}
	if after, ok := parseUnix(c.QueryParam("after")); ok {
		filter.After = after
	}

	requests, err := h.backend.GetRequests(c.Request().Context(), parseKind(c.QueryParam("kind")), key, filter)
	if err != nil {
		return h.backendError(c, "getRequests", err)
	}
	return httpserver.RespondOK(c, requests)
}

// ListPatterns handles GET /api/v1/domains/:index/patterns.
func (h *CollabHandler) ListPatterns(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	patterns, err := h.backend.GetPatterns(c.Request().Context(), key)
	if err != nil {
		return h.backendError(c, "getPatterns", err)
	}
	return httpserver.RespondOK(c, patterns)
}

// CreatePattern handles POST /api/v1/domains/:index/patterns.
func (h *CollabHandler) CreatePattern(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	p, err := h.backend.CreatePattern(c.Request().Context(), key)
	if err != nil {
		return h.backendError(c, "createPattern", err)
	}
	return httpserver.RespondCreated(c, p)
}

// UpdatePattern handles PUT /api/v1/domains/:index/patterns/:id.
func (h *CollabHandler) UpdatePattern(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	var req UpdatePatternRequest
	if err = bindAndValidate(c, &req); err != nil {
		return httpserver.RespondError(c, err)
	}

	ok, err := h.backend.UpdatePattern(c.Request().Context(), key, collabapi.Pattern{
		ID:              c.Param("id"),
		Pattern:         req.Pattern,
		Priority:        req.Priority,
		ResponseBody:    req.ResponseBody,
		ResponseCode:    req.ResponseCode,
		ResponseHeaders: req.ResponseHeaders,
		ExternalHandler: req.ExternalHandler,
	})
	if err != nil {
		return h.backendError(c, "updatePattern", err)
	}
	return httpserver.RespondOK(c, UpdatedResponse{Success: ok})
}

// DeletePattern handles DELETE /api/v1/domains/:index/patterns/:id.
func (h *CollabHandler) DeletePattern(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	ok, err := h.backend.DeletePattern(c.Request().Context(), key, c.Param("id"))
	if err != nil {
		return h.backendError(c, "deletePattern", err)
	}
	return httpserver.RespondOK(c, UpdatedResponse{Success: ok})
}

// ListDNSRecords handles GET /api/v1/domains/:index/dns.
func (h *CollabHandler) ListDNSRecords(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	records, err := h.backend.GetDNSRecords(c.Request().Context(), key)
	if err != nil {
		return h.backendError(c, "getDnsRecords", err)
	}
	return httpserver.RespondOK(c, records)
}

// CreateDNSRecord handles POST /api/v1/domains/:index/dns.
func (h *CollabHandler) CreateDNSRecord(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	rec, err := h.backend.CreateDNSRecord(c.Request().Context(), key)
	if err != nil {
		return h.backendError(c, "createDnsRecord", err)
	}
	return httpserver.RespondCreated(c, rec)
}

// UpdateDNSRecord handles PUT /api/v1/domains/:index/dns/:id.
func (h *CollabHandler) UpdateDNSRecord(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	var req UpdateDNSRecordRequest
	if err = bindAndValidate(c, &req); err != nil {
		return httpserver.RespondError(c, err)
	}

	ok, err := h.backend.UpdateDNSRecord(c.Request().Context(), key, collabapi.DNSRecord{
		ID:           c.Param("id"),
		Name:         req.Name,
		Type:         req.Type,
		TTL:          req.TTL,
		ResponseType: req.ResponseType,
		Value:        req.Value,
		Value1:       req.Value1,
		Value2:       req.Value2,
	})
	if err != nil {
		return h.backendError(c, "updateDnsRecord", err)
	}
	return httpserver.RespondOK(c, UpdatedResponse{Success: ok})
}

// DeleteDNSRecord handles DELETE /api/v1/domains/:index/dns/:id.
func (h *CollabHandler) DeleteDNSRecord(c echo.Context) error {
	key, err := h.accessKey(c)
	if err != nil {
		return httpserver.RespondError(c, err)
	}
	ok, err := h.backend.DeleteDNSRecord(c.Request().Context(), key, c.Param("id"))
	if err != nil {
		return h.backendError(c, "deleteDnsRecord", err)
	}
	return httpserver.RespondOK(c, UpdatedResponse{Success: ok})
}

// accessKey resolves the :index parameter to the stored domain's access key.
func (h *CollabHandler) accessKey(c echo.Context) (string, error) {
	if h.backend == nil {
		return "", errNoBackend
	}
	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return "", err
	}
	d, ok := h.store.GetDomain(index)
	if !ok {
		return "", errDomainNotFound
	}
	if d.AccessKey == "" {
		return "", errNoAccessKey
	}
	return d.AccessKey, nil
}

// backendError logs a failed call. Rejections by the backend keep its status
// and message; transport failures map through the domain errors.
func (h *CollabHandler) backendError(c echo.Context, op string, err error) error {
	h.logger.WarnContext(c.Request().Context(), "collab backend call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	if apiErr, ok := collabapi.IsAPIError(err); ok && apiErr.Status < http.StatusInternalServerError {
		return httpserver.RespondError(c, &apiError{
			status:  apiErr.Status,
			code:    "BACKEND_REJECTED",
			message: apiErr.Message,
			err:     err,
		})
	}
	return httpserver.RespondError(c, err)
}

// MockCollabBackend is a mock implementation of CollabBackend for testing.
// Data is keyed by access key. Err, when set, is returned by every call.
type MockCollabBackend struct {
	mu       sync.Mutex
	domains  map[string]collabapi.DomainInfo
	requests map[string][]collabapi.CapturedRequest
	patterns map[string][]collabapi.Pattern
	records  map[string][]collabapi.DNSRecord
	nextID   int
	lastKind collabapi.RequestKind
	lastFilt collabapi.RequestFilter

	Err error
}

// NewMockCollabBackend creates a new mock collab backend.
func NewMockCollabBackend() *MockCollabBackend {
	return &MockCollabBackend{
		domains:  make(map[string]collabapi.DomainInfo),
		requests: make(map[string][]collabapi.CapturedRequest),
		patterns: make(map[string][]collabapi.Pattern),
		records:  make(map[string][]collabapi.DNSRecord),
	}
}

// AddDomain registers a domain under accessKey.
func (m *MockCollabBackend) AddDomain(accessKey string, info collabapi.DomainInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[accessKey] = info
}

// AddRequests appends captured requests for accessKey.
func (m *MockCollabBackend) AddRequests(accessKey string, reqs ...collabapi.CapturedRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[accessKey] = append(m.requests[accessKey], reqs...)
}

// LastRequestQuery returns the kind and filter of the last GetRequests call.
func (m *MockCollabBackend) LastRequestQuery() (collabapi.RequestKind, collabapi.RequestFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastKind, m.lastFilt
}

// CreateDomain implements DomainCreator.
func (m *MockCollabBackend) CreateDomain(_ context.Context, host string) (collabapi.CreatedDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return collabapi.CreatedDomain{}, m.Err
	}
	if host == "" {
		host = "d" + strconv.Itoa(m.nextID) + ".collab.test"
	}
	key := "key-" + m.newID()
	m.domains[key] = collabapi.DomainInfo{Host: host}
	return collabapi.CreatedDomain{Host: host, AccessKey: key}, nil
}

// GetDomain implements CollabReader.
func (m *MockCollabBackend) GetDomain(_ context.Context, accessKey string) (collabapi.DomainInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return collabapi.DomainInfo{}, m.Err
	}
	info, ok := m.domains[accessKey]
	if !ok {
		return collabapi.DomainInfo{}, &collabapi.APIError{
			Op: "getDomain", Status: http.StatusForbidden, Message: "Invalid access key",
		}
	}
	return info, nil
}

// GetRequests implements CollabReader.
func (m *MockCollabBackend) GetRequests(
	_ context.Context,
	kind collabapi.RequestKind,
	accessKey string,
	filter collabapi.RequestFilter,
) ([]collabapi.CapturedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKind, m.lastFilt = kind, filter
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]collabapi.CapturedRequest{}, m.requests[accessKey]...), nil
}

// GetPatterns implements CollabReader.
func (m *MockCollabBackend) GetPatterns(_ context.Context, accessKey string) ([]collabapi.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]collabapi.Pattern{}, m.patterns[accessKey]...), nil
}

// GetDNSRecords implements CollabReader.
func (m *MockCollabBackend) GetDNSRecords(_ context.Context, accessKey string) ([]collabapi.DNSRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]collabapi.DNSRecord{}, m.records[accessKey]...), nil
}

// CreatePattern implements CollabBackend.
func (m *MockCollabBackend) CreatePattern(_ context.Context, accessKey string) (collabapi.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return collabapi.Pattern{}, m.Err
	}
	p := collabapi.Pattern{ID: m.newID(), Pattern: "^.*$", ResponseCode: http.StatusOK}
	m.patterns[accessKey] = append(m.patterns[accessKey], p)
	return p, nil
}

// UpdatePattern implements CollabBackend.
func (m *MockCollabBackend) UpdatePattern(_ context.Context, accessKey string, p collabapi.Pattern) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i, existing := range m.patterns[accessKey] {
		if existing.ID == p.ID {
			m.patterns[accessKey][i] = p
			return true, nil
		}
	}
	return false, nil
}

// DeletePattern implements CollabBackend.
func (m *MockCollabBackend) DeletePattern(_ context.Context, accessKey, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i, existing := range m.patterns[accessKey] {
		if existing.ID == id {
			m.patterns[accessKey] = append(m.patterns[accessKey][:i], m.patterns[accessKey][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// CreateDNSRecord implements CollabBackend.
func (m *MockCollabBackend) CreateDNSRecord(_ context.Context, accessKey string) (collabapi.DNSRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return collabapi.DNSRecord{}, m.Err
	}
	r := collabapi.DNSRecord{ID: m.newID(), Type: "A", ResponseType: collabapi.ResponseTypeStatic}
	m.records[accessKey] = append(m.records[accessKey], r)
	return r, nil
}

// UpdateDNSRecord implements CollabBackend.
func (m *MockCollabBackend) UpdateDNSRecord(_ context.Context, accessKey string, r collabapi.DNSRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i, existing := range m.records[accessKey] {
		if existing.ID == r.ID {
			m.records[accessKey][i] = r
			return true, nil
		}
	}
	return false, nil
}

// DeleteDNSRecord implements CollabBackend.
func (m *MockCollabBackend) DeleteDNSRecord(_ context.Context, accessKey, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i, existing := range m.records[accessKey] {
		if existing.ID == id {
			m.records[accessKey] = append(m.records[accessKey][:i], m.records[accessKey][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCollabBackend) newID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}
