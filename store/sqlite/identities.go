package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/identity"
)

// IdentityStore implements identity.Repository over SQLite.
type IdentityStore struct {
	db *sql.DB
}

var _ identity.Repository = (*IdentityStore)(nil)

const identityColumns = "id, lookup_key, credential_hash, display_name, created_at, last_authenticated_at"

func scanIdentity(row *sql.Row) (*identity.Identity, error) {
	var ident identity.Identity
	var createdAt, lastAuth int64
	err := row.Scan(&ident.ID, &ident.LookupKey, &ident.CredentialHash,
		&ident.DisplayName, &createdAt, &lastAuth)
	if err != nil {
		return nil, err
	}
	ident.CreatedAt = fromMillis(createdAt)
	ident.LastAuthenticatedAt = fromMillis(lastAuth)
	return &ident, nil
}

// FindByID implements identity.Repository.
func (s *IdentityStore) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE id = ?", id)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NotFound("identity", id)
	}
	if err != nil {
		return nil, autherr.Backend(err)
	}
	return ident, nil
}

// FindByLookupKey implements identity.Repository.
func (s *IdentityStore) FindByLookupKey(ctx context.Context, key string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE lookup_key = ?", key)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NotFound("identity", key)
	}
	if err != nil {
		return nil, autherr.Backend(err)
	}
	return ident, nil
}

// Create implements identity.Repository.
func (s *IdentityStore) Create(ctx context.Context, ident *identity.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (id, lookup_key, credential_hash, display_name, created_at, last_authenticated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ident.ID, ident.LookupKey, ident.CredentialHash, ident.DisplayName,
		toMillis(ident.CreatedAt), toMillis(ident.LastAuthenticatedAt))
	if isConstraintErr(err) {
		return autherr.Conflict("Identity id or lookup key is already taken.")
	}
	if err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// Delete implements identity.Repository. Federated links go with the
// identity via ON DELETE CASCADE.
func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM identities WHERE id = ?", id)
	if err != nil {
		return autherr.Backend(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return autherr.Backend(err)
	} else if n == 0 {
		return autherr.NotFound("identity", id)
	}
	return nil
}

// UpdateCredentialHash implements identity.Repository. Clearing the hash is
// refused inside the transaction when the identity holds no federated
// links, which would otherwise lock the account out.
func (s *IdentityStore) UpdateCredentialHash(ctx context.Context, id, encodedHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return autherr.Backend(err)
	}
	defer tx.Rollback()

	if encodedHash == "" {
		var links int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM federated_links WHERE identity_id = ?", id).Scan(&links)
		if err != nil {
			return autherr.Backend(err)
		}
		if links == 0 {
			return autherr.Conflict("Cannot remove the only credential of an identity with no federated links.")
		}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE identities SET credential_hash = ? WHERE id = ?", encodedHash, id)
	if err != nil {
		return autherr.Backend(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return autherr.Backend(err)
	} else if n == 0 {
		return autherr.NotFound("identity", id)
	}
	if err := tx.Commit(); err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// TouchLastAuthenticated implements identity.Repository.
func (s *IdentityStore) TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE identities SET last_authenticated_at = ? WHERE id = ?", toMillis(at), id)
	if err != nil {
		return autherr.Backend(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return autherr.Backend(err)
	} else if n == 0 {
		return autherr.NotFound("identity", id)
	}
	return nil
}

// FindFederatedLink implements identity.Repository.
func (s *IdentityStore) FindFederatedLink(ctx context.Context, provider, subject string) (*identity.FederatedLink, error) {
	var link identity.FederatedLink
	var linkedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT provider, subject, identity_id, email, linked_at
		 FROM federated_links WHERE provider = ? AND subject = ?`,
		provider, subject).
		Scan(&link.Provider, &link.Subject, &link.IdentityID, &link.Email, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NotFound("federated link", provider+"/"+subject)
	}
	if err != nil {
		return nil, autherr.Backend(err)
	}
	link.LinkedAt = fromMillis(linkedAt)
	return &link, nil
}

// CreateFederatedLink implements identity.Repository. The schema enforces
// both uniqueness rules: one identity per (provider, subject) and one link
// per provider per identity.
func (s *IdentityStore) CreateFederatedLink(ctx context.Context, link *identity.FederatedLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO federated_links (provider, subject, identity_id, email, linked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.Provider, link.Subject, link.IdentityID, link.Email, toMillis(link.LinkedAt))
	if isConstraintErr(err) {
		return autherr.Conflict("Federated link already exists.")
	}
	if err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// DeleteFederatedLink implements identity.Repository.
func (s *IdentityStore) DeleteFederatedLink(ctx context.Context, provider, identityID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM federated_links WHERE provider = ? AND identity_id = ?",
		provider, identityID)
	if err != nil {
		return autherr.Backend(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return autherr.Backend(err)
	} else if n == 0 {
		return autherr.NotFound("federated link", provider+"/"+identityID)
	}
	return nil
}

// ListFederatedLinks implements identity.Repository.
func (s *IdentityStore) ListFederatedLinks(ctx context.Context, identityID string) ([]identity.FederatedLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, subject, identity_id, email, linked_at
		 FROM federated_links WHERE identity_id = ? ORDER BY provider`,
		identityID)
	if err != nil {
		return nil, autherr.Backend(err)
	}
	defer rows.Close()

	var links []identity.FederatedLink
	for rows.Next() {
		var link identity.FederatedLink
		var linkedAt int64
		if err := rows.Scan(&link.Provider, &link.Subject, &link.IdentityID, &link.Email, &linkedAt); err != nil {
			return nil, autherr.Backend(err)
		}
		link.LinkedAt = fromMillis(linkedAt)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, autherr.Backend(err)
	}
	return links, nil
}
