package rest

import (
	"errors"
	"fmt"
)

// NetworkError is any REST call failure: transport errors, non-2xx
// responses, and a tripped circuit breaker. For non-2xx responses
// StatusCode is set and Body carries a snippet of the server's reply.
type NetworkError struct {
	Op         string // method and path of the failed call
	StatusCode int    // HTTP status, 0 for transport-level failures
	Body       string // response body snippet, empty for transport failures
	Err        error  // underlying cause, nil for plain HTTP errors
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// wrapNetworkError normalizes any failure from the request path into a
// *NetworkError, passing through errors that already are one.
func wrapNetworkError(op string, err error) error {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne
	}
	return &NetworkError{Op: op, Err: err}
}
