package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors (fatal at startup)
const (
	// ErrCodeInvalidConfig indicates invalid configuration (bad cost
	// parameters, missing key material, malformed endpoints).
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Credential errors
const (
	// ErrCodeInvalidCredentials covers both unknown identity and wrong
	// password. The two cases share one code so callers cannot enumerate
	// registered identities.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrCodeWeakPassword indicates the password fails policy checks.
	ErrCodeWeakPassword ErrorCode = "WEAK_PASSWORD"
)

// Token errors
const (
	// ErrCodeTokenMalformed indicates the token could not be parsed.
	ErrCodeTokenMalformed ErrorCode = "TOKEN_MALFORMED"
	// ErrCodeTokenSignature indicates the signature did not verify.
	ErrCodeTokenSignature ErrorCode = "TOKEN_SIGNATURE_INVALID"
	// ErrCodeTokenExpired indicates exp is in the past.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	// ErrCodeTokenNotYetValid indicates nbf is in the future.
	ErrCodeTokenNotYetValid ErrorCode = "TOKEN_NOT_YET_VALID"
	// ErrCodeTokenUnsupportedAlg indicates the token was signed with an
	// algorithm outside the configured allow-list (including "none").
	ErrCodeTokenUnsupportedAlg ErrorCode = "TOKEN_UNSUPPORTED_ALGORITHM"
	// ErrCodeTokenRevoked indicates the token or its chain was revoked.
	ErrCodeTokenRevoked ErrorCode = "TOKEN_REVOKED"
	// ErrCodeTokenReuse indicates a rotated refresh token was presented
	// again. Treated as a security incident: the whole chain is revoked
	// before this code is surfaced.
	ErrCodeTokenReuse ErrorCode = "TOKEN_REUSE_DETECTED"
	// ErrCodeTokenWrongType indicates an access token was presented where
	// a refresh token is required, or vice versa.
	ErrCodeTokenWrongType ErrorCode = "TOKEN_WRONG_TYPE"
)

// OAuth2 federation errors
const (
	// ErrCodeStateMismatch indicates the callback state did not match the
	// issued flow state (possible CSRF).
	ErrCodeStateMismatch ErrorCode = "OAUTH_STATE_MISMATCH"
	// ErrCodeStateExpired indicates the flow state timed out or was
	// already consumed.
	ErrCodeStateExpired ErrorCode = "OAUTH_STATE_EXPIRED"
	// ErrCodeProviderError indicates a non-2xx response from the
	// provider's token or userinfo endpoint.
	ErrCodeProviderError ErrorCode = "OAUTH_PROVIDER_ERROR"
	// ErrCodeIdentityConflict indicates the provider subject is already
	// linked to a different local identity.
	ErrCodeIdentityConflict ErrorCode = "OAUTH_IDENTITY_CONFLICT"
	// ErrCodeAutoProvisionDisabled indicates no identity exists for the
	// federated subject and provisioning policy forbids creating one.
	ErrCodeAutoProvisionDisabled ErrorCode = "OAUTH_AUTO_PROVISION_DISABLED"
)

// Repository errors
const (
	// ErrCodeNotFound indicates the requested record was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a uniqueness or state conflict.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeBackend indicates a storage backend failure. Non-retryable
	// by default; the caller decides whether to retry.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"
)

// Retryability is code-level only for codes that are always or never
// retryable. Provider errors carry per-error retryability derived from the
// upstream HTTP status.
var retryableCodes = map[ErrorCode]bool{}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
