package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/session"
)

// RevocationStore implements session.RevocationStore over SQLite.
type RevocationStore struct {
	db *sql.DB
}

var _ session.RevocationStore = (*RevocationStore)(nil)

// IsRevoked implements session.RevocationStore.
func (s *RevocationStore) IsRevoked(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revoked_tokens WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, autherr.Backend(err)
	}
	return n > 0, nil
}

// MarkRotated implements session.RevocationStore. The rotated mark is a
// primary-key insert guarded by a revocation check in the same
// transaction, so concurrent rotations of one token see exactly one
// success.
func (s *RevocationStore) MarkRotated(ctx context.Context, tokenID, successorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return autherr.Backend(err)
	}
	defer tx.Rollback()

	var revoked int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revoked_tokens WHERE id = ?", tokenID).Scan(&revoked); err != nil {
		return autherr.Backend(err)
	}
	if revoked > 0 {
		return autherr.Conflict("Token is revoked.")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO rotated_tokens (token_id, successor_id, rotated_at) VALUES (?, ?, ?)",
		tokenID, successorID, toMillis(time.Now()))
	if isConstraintErr(err) {
		return autherr.Conflict("Token is already rotated.")
	}
	if err != nil {
		return autherr.Backend(err)
	}
	if err := tx.Commit(); err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// MarkRevoked implements session.RevocationStore. Idempotent.
func (s *RevocationStore) MarkRevoked(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO revoked_tokens (id, revoked_at) VALUES (?, ?)",
		id, toMillis(time.Now()))
	if err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// RevokeSubject implements session.RevocationStore. Only a later cutoff
// replaces an existing one.
func (s *RevocationStore) RevokeSubject(ctx context.Context, subjectID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subject_revocations (subject_id, cutoff) VALUES (?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET cutoff = excluded.cutoff
		 WHERE excluded.cutoff > cutoff`,
		subjectID, toMillis(at))
	if err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// IsSubjectRevoked implements session.RevocationStore.
func (s *RevocationStore) IsSubjectRevoked(ctx context.Context, subjectID string, issuedAt time.Time) (bool, error) {
	var cutoff int64
	err := s.db.QueryRowContext(ctx,
		"SELECT cutoff FROM subject_revocations WHERE subject_id = ?", subjectID).Scan(&cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, autherr.Backend(err)
	}
	return issuedAt.Before(fromMillis(cutoff)), nil
}
