// Package secret provides a wrapper for sensitive byte payloads such as
// passwords, signing keys, and bearer tokens.
//
// A Secret never leaks its payload through formatting or serialization:
// String, GoString, Format, and MarshalJSON all render a fixed redacted
// placeholder. Comparisons are constant-time. Wipe overwrites the backing
// memory with zeros and must be called when the value leaves scope,
// including on error paths:
//
//	pw := secret.FromString(req.Password)
//	defer pw.Wipe()
package secret

import (
	"crypto/subtle"
	"fmt"
)

// Redacted is the placeholder rendered in place of the payload.
const Redacted = "[REDACTED]"

// Secret holds sensitive bytes. The zero value is an empty secret.
// A Secret is owned by a single call path and must not be shared across
// goroutines; copy with Clone when a second owner is needed.
type Secret struct {
	data []byte
}

// New wraps a copy of b. The caller keeps ownership of b and should zero
// it separately if it holds sensitive data.
func New(b []byte) *Secret {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Secret{data: cp}
}

// FromString wraps a copy of s. The original string cannot be zeroed
// (Go strings are immutable), so prefer New with a byte slice when the
// payload originates from I/O.
func FromString(s string) *Secret {
	return &Secret{data: []byte(s)}
}

// Bytes returns the backing slice without copying. The returned slice is
// borrowed: it becomes invalid after Wipe.
func (s *Secret) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

// Clone returns an independently owned copy.
func (s *Secret) Clone() *Secret {
	if s == nil {
		return nil
	}
	return New(s.data)
}

// Len returns the payload length in bytes.
func (s *Secret) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// IsZero reports whether the secret is empty or has been wiped.
func (s *Secret) IsZero() bool {
	return s.Len() == 0
}

// Equal compares two secrets in constant time.
func (s *Secret) Equal(other *Secret) bool {
	return s.EqualBytes(other.Bytes())
}

// EqualBytes compares the payload against b in constant time.
func (s *Secret) EqualBytes(b []byte) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), b) == 1
}

// Wipe overwrites the backing memory with zeros and detaches it.
// Safe to call multiple times and on a nil receiver.
func (s *Secret) Wipe() {
	if s == nil {
		return
	}
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}

// String implements fmt.Stringer and always returns the redacted placeholder.
func (s *Secret) String() string { return Redacted }

// GoString prevents %#v from exposing the payload.
func (s *Secret) GoString() string { return "secret.Secret(" + Redacted + ")" }

// Format implements fmt.Formatter so every verb renders the placeholder.
func (s *Secret) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, Redacted)
}

// MarshalJSON renders the redacted placeholder, never the payload.
func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// MarshalText renders the redacted placeholder, never the payload.
func (s *Secret) MarshalText() ([]byte, error) {
	return []byte(Redacted), nil
}
