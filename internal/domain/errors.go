package domain

import (
	"errors"
	"fmt"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrCredentialNotFound = errors.New("credential not found")

// TransportError covers network-level failures: unreachable host, timeout,
// TLS. Always retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TokenExpiredError means the API rejected the current tokens. The caller
// re-authenticates and retries exactly once.
type TokenExpiredError struct {
	Err error
}

func (e *TokenExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("access tokens rejected: %v", e.Err)
	}
	return "access tokens rejected"
}

func (e *TokenExpiredError) Unwrap() error {
	return e.Err
}

// AuthenticationError means the identity provider rejected the configured
// credentials, or none are configured. Surfaced to the user, never retried
// automatically.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ReauthRequiredError means the refresh token is dead and the session cannot
// be recovered without the user re-entering credentials. A persistent
// needs-attention state, not a transient failure.
type ReauthRequiredError struct {
	Reason string
}

func (e *ReauthRequiredError) Error() string {
	return fmt.Sprintf("re-authentication required: %s", e.Reason)
}

// ServiceUnavailableError covers provider-side 429/5xx responses. Retryable
// with backoff.
type ServiceUnavailableError struct {
	StatusCode int
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service unavailable (status %d)", e.StatusCode)
}

// APIError carries a GraphQL-level rejection unrelated to auth. Treated as a
// permanent request-shape problem and not retried.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// IsRetryable reports whether an error is transient enough to retry within
// the same refresh cycle.
func IsRetryable(err error) bool {
	var transport *TransportError
	var unavailable *ServiceUnavailableError
	return errors.As(err, &transport) || errors.As(err, &unavailable)
}
