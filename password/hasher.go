// Package password hashes and verifies credentials with argon2id, a
// memory-hard function resistant to GPU brute force.
//
// Hash produces an immutable Record carrying the algorithm identifier, cost
// parameters, a fresh random salt, and the digest. Verify recomputes the
// digest with the record's own parameters and compares in constant time,
// failing closed on any malformed record.
//
// Hashing is deliberately slow. Callers on latency-sensitive paths should
// dispatch Hash and Verify off that path (a goroutine per call is enough —
// the hasher itself is stateless and safe for concurrent use).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/secret"
)

// Hasher hashes and verifies passwords with argon2id.
type Hasher struct {
	cfg Config
}

// NewHasher creates a Hasher, validating cost parameters against the safe
// floor and ceiling. Out-of-range parameters are a configuration error, not
// a per-call error.
func NewHasher(cfg *Config) (*Hasher, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, autherr.InvalidConfig("password", err.Error()).WithCause(err)
	}
	return &Hasher{cfg: c}, nil
}

// Hash derives a new credential hash record from the password using a fresh
// cryptographically random salt. Two calls with the same password yield
// different salts and different digests.
func (h *Hasher) Hash(password *secret.Secret) (*Record, error) {
	if password.Len() < h.cfg.MinPasswordLength {
		return nil, autherr.WeakPassword(fmt.Sprintf(
			"password must be at least %d bytes", h.cfg.MinPasswordLength))
	}

	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("password: generate salt: %w", err)
	}

	digest := argon2.IDKey(password.Bytes(), salt,
		h.cfg.Time, h.cfg.Memory, h.cfg.Threads, h.cfg.KeyLength)

	return &Record{
		Algorithm: AlgorithmArgon2id,
		Time:      h.cfg.Time,
		Memory:    h.cfg.Memory,
		Threads:   h.cfg.Threads,
		Salt:      salt,
		Digest:    digest,
	}, nil
}

// Verify recomputes the digest with the record's stored salt and parameters
// and compares in constant time. Any malformed record — unknown algorithm,
// empty salt, wrong digest length — yields false rather than an error, so
// garbage data can never pass as a match.
func (h *Hasher) Verify(password *secret.Secret, rec *Record) bool {
	if password.IsZero() || rec == nil {
		return false
	}
	if rec.Algorithm != AlgorithmArgon2id {
		return false
	}
	if len(rec.Salt) < minSaltLen || len(rec.Digest) < minKeyLen {
		return false
	}
	if rec.Time == 0 || rec.Memory == 0 || rec.Threads == 0 {
		return false
	}

	computed := argon2.IDKey(password.Bytes(), rec.Salt,
		rec.Time, rec.Memory, rec.Threads, uint32(len(rec.Digest)))

	return subtle.ConstantTimeCompare(computed, rec.Digest) == 1
}

// VerifyEncoded parses a PHC-encoded record and verifies the password
// against it. Parse failures fail closed.
func (h *Hasher) VerifyEncoded(password *secret.Secret, encoded string) bool {
	rec, err := ParseRecord(encoded)
	if err != nil {
		return false
	}
	return h.Verify(password, rec)
}
