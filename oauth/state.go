package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"io"
	"sync/atomic"
	"time"
)

// GenerateState creates a cryptographically secure random state string for
// CSRF protection. Returns a 32-byte hex-encoded string (64 characters).
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PKCE holds a Proof Key for Code Exchange challenge/verifier pair.
// The challenge travels in the authorization URL, the verifier in the
// token exchange.
type PKCE struct {
	// CodeVerifier is the random secret sent during exchange.
	CodeVerifier string

	// CodeChallenge is the SHA-256 hash of the verifier.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// NewPKCE generates a PKCE pair using the S256 method. The verifier is a
// 32-byte random value, base64url-encoded (43 characters).
func NewPKCE() (*PKCE, error) {
	verifier := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, verifier); err != nil {
		return nil, err
	}

	verifierStr := base64.RawURLEncoding.EncodeToString(verifier)
	h := sha256.Sum256([]byte(verifierStr))
	challenge := base64.RawURLEncoding.EncodeToString(h[:])

	return &PKCE{
		CodeVerifier:        verifierStr,
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
	}, nil
}

// FlowState is the per-attempt secret material the caller persists for the
// duration of the redirect round-trip. It is single-use: Complete consumes
// it whether it succeeds or fails, so a replayed callback cannot reuse it.
//
// FlowState must be passed by pointer; copying it breaks the single-use
// guarantee.
type FlowState struct {
	Provider     string
	State        string
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time

	consumed atomic.Bool
}

// consume marks the state used. Returns false if it was already consumed.
func (s *FlowState) consume() bool {
	return s.consumed.CompareAndSwap(false, true)
}

// matches compares the callback state value in constant time.
func (s *FlowState) matches(state string) bool {
	return subtle.ConstantTimeCompare([]byte(s.State), []byte(state)) == 1
}
