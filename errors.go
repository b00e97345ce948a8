package relic

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP response codes. Handlers may return these
// directly; the engine maps them to their status with a canned body.

// Client errors (4xx)
var (
	// ErrBadRequest indicates the request was invalid (400)
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates missing or invalid authentication (401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the request is not allowed (403)
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the resource was not found (404)
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (409)
	ErrConflict = errors.New("conflict")

	// ErrUnprocessableEntity indicates the request was well-formed but semantically invalid (422)
	ErrUnprocessableEntity = errors.New("unprocessable entity")

	// ErrTooManyRequests indicates rate limiting (429)
	ErrTooManyRequests = errors.New("too many requests")
)

// Server errors (5xx)
var (
	// ErrInternalServer indicates an unexpected server error (500)
	ErrInternalServer = errors.New("internal server error")

	// ErrNotImplemented indicates the functionality is not implemented (501)
	ErrNotImplemented = errors.New("not implemented")

	// ErrServiceUnavailable indicates the service is temporarily unavailable (503)
	ErrServiceUnavailable = errors.New("service unavailable")
)

var sentinelStatus = map[error]int{
	ErrBadRequest:          http.StatusBadRequest,
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrForbidden:           http.StatusForbidden,
	ErrNotFound:            http.StatusNotFound,
	ErrConflict:            http.StatusConflict,
	ErrUnprocessableEntity: http.StatusUnprocessableEntity,
	ErrTooManyRequests:     http.StatusTooManyRequests,
	ErrInternalServer:      http.StatusInternalServerError,
	ErrNotImplemented:      http.StatusNotImplemented,
	ErrServiceUnavailable:  http.StatusServiceUnavailable,
}

// HTTPError carries an HTTP status plus a client-facing title and
// description. Handlers return it to control the response; the
// parameter resolver raises it for request violations.
type HTTPError struct {
	Status      int    `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.Description == "" {
		return e.Title
	}
	return e.Title + ": " + e.Description
}

// NewHTTPError builds an HTTPError with the standard title for status.
func NewHTTPError(status int, description string) *HTTPError {
	return &HTTPError{
		Status:      status,
		Title:       http.StatusText(status),
		Description: description,
	}
}

func BadRequest(description string) *HTTPError { return NewHTTPError(http.StatusBadRequest, description) }

func Unauthorized(description string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, description)
}

func Forbidden(description string) *HTTPError { return NewHTTPError(http.StatusForbidden, description) }

func NotFound(description string) *HTTPError { return NewHTTPError(http.StatusNotFound, description) }

func MethodNotAllowed(description string) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, description)
}

func NotAcceptable(description string) *HTTPError {
	return NewHTTPError(http.StatusNotAcceptable, description)
}

func Conflict(description string) *HTTPError { return NewHTTPError(http.StatusConflict, description) }

func UnsupportedMediaType(description string) *HTTPError {
	return NewHTTPError(http.StatusUnsupportedMediaType, description)
}

func UnprocessableEntity(description string) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, description)
}

func TooManyRequests(description string) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, description)
}

func InternalServerError(description string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, description)
}

func ServiceUnavailable(description string) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, description)
}

// Titles used by the parameter resolver. The handler inspects these to
// pick the right event when resolution fails.
const (
	titleMissingParam = "Missing parameter"
	titleInvalidParam = "Invalid parameter"
)

// MissingParam reports a required parameter absent from every source.
func MissingParam(name string) *HTTPError {
	return &HTTPError{
		Status:      http.StatusBadRequest,
		Title:       titleMissingParam,
		Description: fmt.Sprintf("the %q parameter is required", name),
	}
}

// InvalidParam reports a parameter value that failed coercion or a
// strict constraint check.
func InvalidParam(name string, err error) *HTTPError {
	return &HTTPError{
		Status:      http.StatusBadRequest,
		Title:       titleInvalidParam,
		Description: fmt.Sprintf("the %q parameter is invalid: %v", name, err),
	}
}

// FromError normalizes err into an HTTPError. HTTPError values pass
// through, sentinel errors map to their status with no extra detail,
// and anything else becomes a bare 500 so internals never leak.
func FromError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	for sentinel, status := range sentinelStatus {
		if errors.Is(err, sentinel) {
			return NewHTTPError(status, "")
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "")
}
