package httphandler

import (
	"net/http"

	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// apiError carries its own HTTP representation through httpserver.RespondError.
type apiError struct {
	status  int
	code    string
	message string
	err     error
}

var _ httpserver.HTTPError = (*apiError)(nil)

func (e *apiError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error       { return e.err }
func (e *apiError) HTTPStatus() int     { return e.status }
func (e *apiError) HTTPCode() string    { return e.code }
func (e *apiError) HTTPMessage() string { return e.message }

var (
	errDomainNotFound = &apiError{status: http.StatusNotFound, code: "DOMAIN_NOT_FOUND", message: "domain not found"}
	errNoAccessKey    = &apiError{status: http.StatusConflict, code: "NO_ACCESS_KEY", message: "domain has no access key"}
	errInvalidBody    = &apiError{status: http.StatusBadRequest, code: "INVALID_BODY", message: "invalid request body"}
	errNoBackend      = &apiError{
		status:  http.StatusServiceUnavailable,
		code:    "BACKEND_DISABLED",
		message: "collab backend is not configured",
	}
)

func persistFailed(err error) *apiError {
	return &apiError{
		status:  http.StatusInternalServerError,
		code:    "PERSIST_FAILED",
		message: "Domain list changed but could not be saved",
		err:     err,
	}
}
