package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TransportError is a network failure, a timeout or a non-2xx answer from a completion service.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s transport error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError is an HTTP 429 or an equivalent quota rejection.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// FromStatus classifies a failed call for which the provider reported an HTTP code
// or a status string.
func FromStatus(provider string, code int, status string, err error) error {
	if err == nil {
		return nil
	}
	if code == http.StatusTooManyRequests || strings.EqualFold(strings.TrimSpace(status), statusResourceExhausted) {
		return &RateLimitError{Provider: provider, Err: err}
	}
	return &TransportError{Provider: provider, StatusCode: code, Err: err}
}

// Classify converts any completion failure into a TransportError or a RateLimitError.
// Already classified errors are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return err
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: provider, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &TransportError{Provider: provider, Err: err}
	}
	if strings.Contains(err.Error(), statusResourceExhausted) {
		return &RateLimitError{Provider: provider, Err: err}
	}
	return &TransportError{Provider: provider, Err: err}
}

// IsRateLimit reports whether err is a RateLimitError.
func IsRateLimit(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
