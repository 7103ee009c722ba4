package rover

import (
	"errors"
	"fmt"
)

// ErrUnreachable is wrapped by every RequestError caused by a transport
// failure (timeout, refused connection, unknown host).
var ErrUnreachable = errors.New("rover: device unreachable")

// RequestError describes a failed device request.
type RequestError struct {
	// URL is the full request URL.
	URL string

	// StatusCode is the HTTP status for non-2xx answers, zero otherwise.
	StatusCode int

	// Body is the (truncated) response text for non-2xx answers.
	Body string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rover: GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("rover: GET %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether the device answered with a non-2xx status.
func (e *RequestError) IsStatus() bool {
	return e.StatusCode != 0
}

// IsServerError returns true for HTTP 5xx answers.
func (e *RequestError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
