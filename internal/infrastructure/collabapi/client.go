// Package collabapi is a client of the collab admin backend that owns domains,
// captured requests, response patterns and DNS records.
package collabapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lllypuk/collabfront/internal/domain/errs"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBodySize   = 4096
)

// Config contains configuration for Client.
type Config struct {
	// BaseURL is the backend root, e.g. http://admin:5000.
	BaseURL string

	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("collab %s: %d %s", e.Op, e.Status, e.Message)
}

// Unwrap maps the status to a domain error so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusBadRequest:
		return errs.ErrInvalidInput
	case http.StatusNotFound:
		return errs.ErrNotFound
	default:
		return errs.ErrUnavailable
	}
}

// Client calls the admin API. Every operation is a JSON POST to /api/<op>.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// call posts body to /api/op and decodes the answer into out (when non-nil).
func (c *Client) call(ctx context.Context, op string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+op, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collab %s request failed: %w: %w", op, errs.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	apiErr := &APIError{Op: op, Status: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

// IsAPIError reports whether err carries a backend answer and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
