// Package sqlite provides SQLite-backed persistence for identities,
// federated links, and token revocation state.
//
// A single database file backs both stores so identity writes and
// revocation writes share the same visibility boundaries.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id TEXT PRIMARY KEY,
	lookup_key TEXT NOT NULL UNIQUE,
	credential_hash TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	last_authenticated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS federated_links (
	provider TEXT NOT NULL,
	subject TEXT NOT NULL,
	identity_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	email TEXT NOT NULL DEFAULT '',
	linked_at INTEGER NOT NULL,
	PRIMARY KEY (provider, subject),
	UNIQUE (provider, identity_id)
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
	id TEXT PRIMARY KEY,
	revoked_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rotated_tokens (
	token_id TEXT PRIMARY KEY,
	successor_id TEXT NOT NULL,
	rotated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subject_revocations (
	subject_id TEXT PRIMARY KEY,
	cutoff INTEGER NOT NULL
);
`

// Store owns the database handle. Use Identities and Revocations for the
// typed views over it.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the raw handle for callers that need it.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Identities returns the identity.Repository view.
func (s *Store) Identities() *IdentityStore { return &IdentityStore{db: s.db} }

// Revocations returns the session.RevocationStore view.
func (s *Store) Revocations() *RevocationStore { return &RevocationStore{db: s.db} }

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// isConstraintErr reports whether err is a SQLite constraint violation
// (duplicate key, unique index, foreign key). The low byte of the
// extended result code is the primary code.
func isConstraintErr(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
