// Package errors provides the unified error taxonomy for the authentication
// core. It implements a structured error type with machine-readable codes,
// HTTP status mapping, and retryable detection, so host applications can map
// failures onto their own transport without string matching.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified authentication error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message. Credential failures use a
	// fixed message so the external shape never distinguishes unknown
	// identity from wrong password.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error. Never contains
	// secret material.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is lets errors.Is match two AppErrors by code, so sentinel AppError
// values can be used as comparison targets.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors per taxonomy ---

// InvalidConfig creates a configuration error. These are fatal at startup
// and never produced by per-call paths.
func InvalidConfig(component, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("%s: %s", component, reason),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"component": component},
	}
}

// InvalidCredentials creates the single credential failure error. The
// message is fixed: unknown identity and wrong password are
// indistinguishable to the caller.
func InvalidCredentials() *AppError {
	return &AppError{
		Code: ErrCodeInvalidCredentials, Message: "Invalid credentials.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// WeakPassword creates an error for a password that fails policy checks.
func WeakPassword(reason string) *AppError {
	return &AppError{
		Code: ErrCodeWeakPassword, Message: reason,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Token creates a token error with the given code.
func Token(code ErrorCode, message string) *AppError {
	return &AppError{
		Code: code, Message: message,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// TokenRevoked creates an error for a revoked token or chain.
func TokenRevoked() *AppError {
	return Token(ErrCodeTokenRevoked, "Token has been revoked.")
}

// TokenReuse creates the security-incident error surfaced after a rotated
// refresh token is replayed and its chain has been revoked.
func TokenReuse(chainID string) *AppError {
	return Token(ErrCodeTokenReuse, "Refresh token reuse detected; session revoked.").
		WithDetail("chain_id", chainID)
}

// StateMismatch creates the CSRF failure error for OAuth2 callbacks.
func StateMismatch() *AppError {
	return &AppError{
		Code: ErrCodeStateMismatch, Message: "OAuth2 state parameter does not match.",
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// StateExpired creates the error for an expired or already-consumed flow state.
func StateExpired() *AppError {
	return &AppError{
		Code: ErrCodeStateExpired, Message: "OAuth2 flow state has expired.",
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Provider creates an error for a non-2xx provider response. Responses with
// a 5xx status are retryable; 4xx responses are not.
func Provider(endpoint string, status int) *AppError {
	return &AppError{
		Code:       ErrCodeProviderError,
		Message:    fmt.Sprintf("OAuth2 provider %s endpoint returned status %d.", endpoint, status),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  status >= 500,
		Details:    map[string]any{"endpoint": endpoint, "provider_status": status},
	}
}

// ProviderUnreachable creates a retryable error for a transport-level
// failure reaching the provider.
func ProviderUnreachable(endpoint string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeProviderError,
		Message:    fmt.Sprintf("OAuth2 provider %s endpoint is unreachable.", endpoint),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Details:    map[string]any{"endpoint": endpoint},
		Cause:      cause,
	}
}

// IdentityConflict creates an error for a provider subject already linked
// to a different local identity.
func IdentityConflict(provider string) *AppError {
	return &AppError{
		Code:       ErrCodeIdentityConflict,
		Message:    "This external account is already linked to a different identity.",
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"provider": provider},
	}
}

// AutoProvisionDisabled creates an error for a first federated login when
// provisioning policy forbids creating a new identity.
func AutoProvisionDisabled(provider string) *AppError {
	return &AppError{
		Code:       ErrCodeAutoProvisionDisabled,
		Message:    "No identity exists for this external account.",
		HTTPStatus: http.StatusForbidden, Retryable: false,
		Details: map[string]any{"provider": provider},
	}
}

// NotFound creates an error for a record that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Conflict creates an error for a uniqueness or state conflict.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// Backend creates an error for a storage backend failure.
func Backend(cause error) *AppError {
	return &AppError{
		Code: ErrCodeBackend, Message: "A storage backend error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
