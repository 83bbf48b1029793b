package session

import (
	"context"
	"sync"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
)

// RevocationStore is the revocation-state collaborator the manager drives.
// It is the only storage the token lifecycle needs; the manager itself
// holds no long-lived state.
//
// MarkRotated is the concurrency-critical primitive: it must atomically
// test-and-set the rotated mark for a token id, failing with a CONFLICT
// error when the id is already rotated or revoked. Two concurrent refresh
// calls presenting the same token must see exactly one success.
//
// Revocation records must outlive the natural lifetime of the tokens they
// cover; deleting them early reopens the replay window.
type RevocationStore interface {
	// IsRevoked reports whether the token or chain id carries a
	// revocation record.
	IsRevoked(ctx context.Context, id string) (bool, error)

	// MarkRotated atomically marks the token id as rotated, recording its
	// successor. Fails with CONFLICT if the id is already rotated or
	// revoked.
	MarkRotated(ctx context.Context, tokenID, successorID string) error

	// MarkRevoked marks a token or chain id revoked. Idempotent.
	MarkRevoked(ctx context.Context, id string) error

	// RevokeSubject invalidates every token issued to the subject before
	// the given instant (logout-all, account disabled).
	RevokeSubject(ctx context.Context, subjectID string, at time.Time) error

	// IsSubjectRevoked reports whether a token issued to the subject at
	// issuedAt falls under a subject-wide revocation.
	IsSubjectRevoked(ctx context.Context, subjectID string, issuedAt time.Time) (bool, error)
}

// MemoryRevocations is a thread-safe in-memory RevocationStore for tests
// and single-process deployments.
type MemoryRevocations struct {
	mu       sync.Mutex
	revoked  map[string]time.Time
	rotated  map[string]string // token id -> successor token id
	subjects map[string]time.Time
}

// NewMemoryRevocations creates an empty in-memory revocation store.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		revoked:  make(map[string]time.Time),
		rotated:  make(map[string]string),
		subjects: make(map[string]time.Time),
	}
}

// IsRevoked implements RevocationStore.
func (s *MemoryRevocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok, nil
}

// MarkRotated implements RevocationStore. The mutex makes the
// check-then-set atomic.
func (s *MemoryRevocations) MarkRotated(ctx context.Context, tokenID, successorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.revoked[tokenID]; gone {
		return autherr.Conflict("Token is revoked.")
	}
	if _, done := s.rotated[tokenID]; done {
		return autherr.Conflict("Token is already rotated.")
	}
	s.rotated[tokenID] = successorID
	return nil
}

// MarkRevoked implements RevocationStore.
func (s *MemoryRevocations) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[id]; !ok {
		s.revoked[id] = time.Now().UTC()
	}
	return nil
}

// RevokeSubject implements RevocationStore.
func (s *MemoryRevocations) RevokeSubject(ctx context.Context, subjectID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subjects[subjectID]; !ok || at.After(existing) {
		s.subjects[subjectID] = at
	}
	return nil
}

// IsSubjectRevoked implements RevocationStore.
func (s *MemoryRevocations) IsSubjectRevoked(ctx context.Context, subjectID string, issuedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff, ok := s.subjects[subjectID]
	if !ok {
		return false, nil
	}
	return issuedAt.Before(cutoff), nil
}
