// Package identity defines the identity data model and the repository
// contract the authentication core consumes. Persistence itself belongs to
// the host application; MemoryRepository is the reference implementation
// and store/sqlite ships a durable one.
package identity

import (
	"time"
)

// Identity is a local account. The ID is stable and opaque; LookupKey is
// the credential login handle (username or email).
//
// Invariant: a non-federated identity carries exactly one credential hash
// record; a federated-only identity carries none. The hash is stored in
// PHC-encoded form and replaced wholesale on password change.
type Identity struct {
	ID        string
	LookupKey string

	// CredentialHash is the PHC-encoded password hash record, empty for
	// federated-only identities.
	CredentialHash string

	// DisplayName is an optional human-readable name, typically filled
	// from a federated profile.
	DisplayName string

	CreatedAt           time.Time
	LastAuthenticatedAt time.Time
}

// Federated reports whether the identity has no password credential and
// can only authenticate through a federated provider.
func (i *Identity) Federated() bool {
	return i.CredentialHash == ""
}

// FederatedLink ties a provider subject to a local identity.
// The (Provider, Subject) pair is unique across the system; an identity may
// hold at most one link per provider.
type FederatedLink struct {
	Provider   string
	Subject    string
	IdentityID string

	// Email is the provider-reported address at link time, if any.
	Email string

	LinkedAt time.Time
}
