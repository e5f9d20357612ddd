package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/collabfront/internal/application/domainstore"
	"github.com/lllypuk/collabfront/internal/domain/errs"
	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// DomainStore is the domain collection used by the API.
// Declared on the consumer side per project guidelines.
type DomainStore interface {
	AppendDomain(ctx context.Context, d record.Domain) (int, error)
	GetDomain(index int) (record.Domain, bool)
	RemoveDomain(ctx context.Context, index int) error
	GetDomainIndex(d record.Domain) int
	Domains() []record.Domain
}

// LoadingNotifier reports the progress of a backend call.
type LoadingNotifier interface {
	ShowLoading(ctx context.Context, message string) int
	HideLoading(ctx context.Context, id int, message string)
	ShowLoadingError(ctx context.Context, id int, message string)
}

// DomainCreator registers a new domain with the collab backend.
type DomainCreator interface {
	CreateDomain(ctx context.Context, host string) (collabapi.CreatedDomain, error)
}

// CreateDomainRequest is the body of POST /domains/create. An empty host lets
// the backend pick one.
type CreateDomainRequest struct {
	Host string `json:"host" validate:"omitempty,hostname_rfc1123"`
	Name string `json:"name" validate:"omitempty,max=128"`
}

// DomainResponse is a stored domain together with its position. The access key
// stays on the server; collab calls go through the /domains/:index routes.
type DomainResponse struct {
	Index        int           `json:"index"`
	Domain       record.Domain `json:"domain"`
	HasAccessKey bool          `json:"hasAccessKey"`
}

func newDomainResponse(index int, d record.Domain) DomainResponse {
	return DomainResponse{
		Index:        index,
		Domain:       d.WithoutAccessKey(),
		HasAccessKey: d.AccessKey != "",
	}
}

// DomainIndexResponse is the answer of GET /domains/index.
type DomainIndexResponse struct {
	Index int `json:"index"`
}

// DomainHandler serves the domain collection API.
type DomainHandler struct {
	store    DomainStore
	creator  DomainCreator
	notifier LoadingNotifier
	logger   *slog.Logger
}

// NewDomainHandler creates a new DomainHandler. creator may be nil, in which
// case POST /domains/create answers 503.
func NewDomainHandler(
	store DomainStore,
	creator DomainCreator,
	notifier LoadingNotifier,
	logger *slog.Logger,
) *DomainHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DomainHandler{
		store:    store,
		creator:  creator,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers domain routes with the router.
func (h *DomainHandler) RegisterRoutes(r *httpserver.Router) {
	r.API().GET("/domains", h.List)
	r.API().GET("/domains/index", h.Index)
	r.API().GET("/domains/:index", h.Get)

	r.Mutating().POST("/domains", h.Add)
	r.Mutating().POST("/domains/create", h.Create)
	r.Mutating().DELETE("/domains/:index", h.Remove)
}

// List handles GET /api/v1/domains.
func (h *DomainHandler) List(c echo.Context) error {
	domains := h.store.Domains()
	resp := make([]DomainResponse, len(domains))
	for i, d := range domains {
		resp[i] = newDomainResponse(i, d)
	}
	return httpserver.RespondOK(c, resp)
}

// Get handles GET /api/v1/domains/:index.
func (h *DomainHandler) Get(c echo.Context) error {
	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	d, ok := h.store.GetDomain(index)
	if !ok {
		return httpserver.RespondError(c, errDomainNotFound)
	}
	return httpserver.RespondOK(c, newDomainResponse(index, d))
}

// Index handles GET /api/v1/domains/index?name=.
func (h *DomainHandler) Index(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", "name is required")
	}
	return httpserver.RespondOK(c, DomainIndexResponse{
		Index: h.store.GetDomainIndex(record.New(name, "", "")),
	})
}

// Add handles POST /api/v1/domains. The body is stored as is.
func (h *DomainHandler) Add(c echo.Context) error {
	var d record.Domain
	if err := json.NewDecoder(c.Request().Body).Decode(&d); err != nil {
		return httpserver.RespondError(c, errInvalidBody)
	}

	index, err := h.store.AppendDomain(c.Request().Context(), d)
	if err != nil {
		return h.mutationFailed(c, "add", err)
	}

	return httpserver.RespondCreated(c, newDomainResponse(index, d))
}

// Remove handles DELETE /api/v1/domains/:index.
func (h *DomainHandler) Remove(c echo.Context) error {
	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	if err = h.store.RemoveDomain(c.Request().Context(), index); err != nil {
		return h.mutationFailed(c, "remove", err)
	}
	return httpserver.RespondNoContent(c)
}

// Create handles POST /api/v1/domains/create. The domain is registered with the
// collab backend under a loading toast and the result is appended to the store.
func (h *DomainHandler) Create(c echo.Context) error {
	if h.creator == nil {
		return httpserver.RespondError(c, errNoBackend)
	}

	var req CreateDomainRequest
	if err := bindAndValidate(c, &req); err != nil {
		return httpserver.RespondError(c, err)
	}

	ctx := c.Request().Context()
	loadingID := h.notifier.ShowLoading(ctx, "Creating domain...")

	created, err := h.creator.CreateDomain(ctx, req.Host)
	if err != nil {
		h.notifier.ShowLoadingError(ctx, loadingID, backendMessage(err))
		h.logger.WarnContext(ctx, "create domain failed",
			slog.String("host", req.Host),
			slog.String("error", err.Error()),
		)
		return httpserver.RespondError(c, err)
	}

	name := req.Name
	if name == "" {
		name = created.Host
	}
	d := record.New(name, created.Host, created.AccessKey)

	index, err := h.store.AppendDomain(ctx, d)
	if err != nil {
		h.notifier.ShowLoadingError(ctx, loadingID, "Domain created but could not be saved")
		return h.mutationFailed(c, "add", err)
	}

	h.notifier.HideLoading(ctx, loadingID, "Domain "+created.Host+" created")
	return httpserver.RespondCreated(c, newDomainResponse(index, d))
}

func (h *DomainHandler) mutationFailed(c echo.Context, op string, err error) error {
	if errors.Is(err, domainstore.ErrPersist) {
		h.logger.ErrorContext(c.Request().Context(), "domain collection not saved",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return httpserver.RespondError(c, persistFailed(err))
	}
	return httpserver.RespondError(c, err)
}

// bindAndValidate decodes the body into dst and runs the echo validator.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return c.Validate(dst)
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", errs.ErrInvalidInput, s)
	}
	return index, nil
}
