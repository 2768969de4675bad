package llm

import (
	"errors"
	"fmt"
)

// Common errors returned by the gateway client.
var (
	// ErrAuth indicates an authentication failure (bad credentials or an
	// expired token the server refused to honor).
	ErrAuth = errors.New("gateway authentication failed")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("gateway rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with gateway")

	// ErrInvalidResponse indicates an unexpected gateway response.
	ErrInvalidResponse = errors.New("invalid response from gateway")
)

// APIError represents an HTTP-level error from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the error is transient: transport failures,
// rate limiting, and server-side errors are worth another attempt; client
// errors are not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}
