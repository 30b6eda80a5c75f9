package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error codes carried by ProviderError.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeAuthFailed     = "AUTH_FAILED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeNetwork        = "NETWORK"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnsupported    = "UNSUPPORTED"
	CodeUnknown        = "UNKNOWN"
)

var (
	// ErrUnsupported is returned for operations a provider does not offer.
	ErrUnsupported = errors.New("provider: operation not supported")
	// ErrNotConfigured is returned before Configure succeeded.
	ErrNotConfigured = errors.New("provider: not configured")
)

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Is matches ErrUnsupported for unsupported-code errors.
func (e *ProviderError) Is(target error) bool {
	return target == ErrUnsupported && e.Code == CodeUnsupported
}

// Transient reports whether retrying later may succeed.
func (e *ProviderError) Transient() bool {
	switch e.Code {
	case CodeRateLimited, CodeUnavailable, CodeNetwork:
		return true
	}
	return false
}

// NotFound builds a NOT_FOUND error.
func NotFound(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Invalid builds an INVALID_REQUEST error.
func Invalid(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Unsupported builds an UNSUPPORTED error that matches ErrUnsupported.
func Unsupported(provider, what string) error {
	return &ProviderError{Provider: provider, Code: CodeUnsupported, Message: provider + " does not support " + what}
}

// Code extracts the ProviderError code from err, or "" when err is not a
// provider error.
func Code(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND provider error.
func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

// IsTransient reports whether err is worth retrying later. Network errors
// that never reached the provider count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// FromStatus maps an HTTP status to a provider error. retryAfter is in
// seconds and only used for 429 responses.
func FromStatus(provider string, status int, retryAfter int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ProviderError{Provider: provider, Code: CodeAuthFailed, Message: fmt.Sprintf("%s authentication failed (%d)", provider, status)}
	case status == http.StatusNotFound:
		return &ProviderError{Provider: provider, Code: CodeNotFound, Message: fmt.Sprintf("%s: not found", provider)}
	case status == http.StatusTooManyRequests:
		if retryAfter <= 0 {
			retryAfter = 10
		}
		return &ProviderError{Provider: provider, Code: CodeRateLimited, Message: fmt.Sprintf("%s rate limit exceeded", provider), Retry: true, RetryAfter: retryAfter}
	case status >= 500:
		return &ProviderError{Provider: provider, Code: CodeUnavailable, Message: fmt.Sprintf("%s service unavailable (%d)", provider, status), Retry: true, RetryAfter: 30}
	case status >= 400:
		return &ProviderError{Provider: provider, Code: CodeInvalidRequest, Message: fmt.Sprintf("%s rejected request (%d)", provider, status)}
	}
	return nil
}

// MapError classifies an SDK error by its message. Context errors pass
// through unchanged.
func MapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	var ne net.Error
	switch {
	case errors.As(err, &ne), strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"), strings.Contains(lower, "timeout"):
		return &ProviderError{Provider: provider, Code: CodeNetwork, Message: msg, Retry: true, RetryAfter: 5}
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"):
		return &ProviderError{Provider: provider, Code: CodeAuthFailed, Message: provider + " authentication failed: " + msg}
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many"), strings.Contains(lower, "limit reached"):
		return &ProviderError{Provider: provider, Code: CodeRateLimited, Message: msg, Retry: true, RetryAfter: 10}
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return &ProviderError{Provider: provider, Code: CodeNotFound, Message: msg}
	case strings.Contains(lower, "503"), strings.Contains(lower, "unavailable"):
		return &ProviderError{Provider: provider, Code: CodeUnavailable, Message: msg, Retry: true, RetryAfter: 30}
	}
	return &ProviderError{Provider: provider, Code: CodeUnknown, Message: provider + " error: " + msg}
}
