package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Algorithm identifies a password hashing algorithm.
type Algorithm string

// AlgorithmArgon2id is the only algorithm this package produces. Unknown
// algorithm identifiers in stored records fail verification closed.
const AlgorithmArgon2id Algorithm = "argon2id"

// Record is an immutable credential hash record: algorithm identifier, cost
// parameters, salt, and digest. A password change replaces the record
// wholesale; records are never mutated in place.
type Record struct {
	Algorithm Algorithm
	Time      uint32
	Memory    uint32
	Threads   uint8
	Salt      []byte
	Digest    []byte
}

// ErrMalformedRecord is returned by ParseRecord for inputs that do not
// decode as a PHC argon2id string.
var ErrMalformedRecord = errors.New("password: malformed hash record")

// Encode renders the record in PHC string format:
//
//	$argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$DIGEST
func (r *Record) Encode() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		r.Memory, r.Time, r.Threads,
		base64.RawStdEncoding.EncodeToString(r.Salt),
		base64.RawStdEncoding.EncodeToString(r.Digest),
	)
}

// String implements fmt.Stringer. The encoded form is safe to log in
// principle but still a credential derivative, so only the parameters are
// rendered.
func (r *Record) String() string {
	return fmt.Sprintf("argon2id(m=%d,t=%d,p=%d)", r.Memory, r.Time, r.Threads)
}

// ParseRecord decodes a PHC argon2id string into a Record.
func ParseRecord(encoded string) (*Record, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrMalformedRecord
	}
	if parts[1] != string(AlgorithmArgon2id) {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrMalformedRecord, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedRecord, version)
	}

	rec := &Record{Algorithm: AlgorithmArgon2id}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &rec.Memory, &rec.Time, &rec.Threads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	rec.Salt = salt
	rec.Digest = digest
	return rec, nil
}
