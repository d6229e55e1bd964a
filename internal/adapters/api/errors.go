package api

import (
	"errors"
	"fmt"
)

// ErrNetwork and related errors classify gateway failures.
var (
	ErrNetwork            = errors.New("network error")
	ErrHTTP               = errors.New("http error")
	ErrTransitionRejected = errors.New("status transition rejected")
	ErrDecode             = errors.New("decode response")
)

// TransportError reports a request that never produced a response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap exposes ErrNetwork and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server's error text when the body carried one.
	Message string
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap exposes ErrHTTP.
func (e *HTTPError) Unwrap() error {
	return ErrHTTP
}
