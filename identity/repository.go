package identity

import (
	"context"
	"time"
)

// Repository persists identities and federated links. Implementations must
// return the error taxonomy's NOT_FOUND, CONFLICT, and BACKEND_ERROR codes
// distinctly (see the errors package); the core treats backend failures as
// non-retryable by default but surfaces them so the caller may retry.
//
// All methods honor context cancellation where the backing store supports it.
type Repository interface {
	// FindByID returns the identity with the given stable id.
	FindByID(ctx context.Context, id string) (*Identity, error)

	// FindByLookupKey returns the identity registered under the given
	// credential login handle.
	FindByLookupKey(ctx context.Context, key string) (*Identity, error)

	// Create persists a new identity. Fails with CONFLICT when the id or
	// lookup key is already taken.
	Create(ctx context.Context, ident *Identity) error

	// Delete removes the identity and every federated link it holds.
	Delete(ctx context.Context, id string) error

	// UpdateCredentialHash replaces the identity's credential hash record
	// wholesale. An empty hash is rejected for identities with no
	// federated links, which would otherwise be locked out.
	UpdateCredentialHash(ctx context.Context, id, encodedHash string) error

	// TouchLastAuthenticated records a successful authentication.
	TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error

	// FindFederatedLink resolves a (provider, subject) pair.
	FindFederatedLink(ctx context.Context, provider, subject string) (*FederatedLink, error)

	// CreateFederatedLink persists a new link. Fails with CONFLICT when
	// the (provider, subject) pair is already linked, or when the identity
	// already holds a link for the provider.
	CreateFederatedLink(ctx context.Context, link *FederatedLink) error

	// DeleteFederatedLink removes the identity's link for the provider.
	DeleteFederatedLink(ctx context.Context, provider, identityID string) error

	// ListFederatedLinks returns all links held by the identity.
	ListFederatedLinks(ctx context.Context, identityID string) ([]FederatedLink, error)
}
