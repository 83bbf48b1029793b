package identity

import (
	"context"
	"sync"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
)

// MemoryRepository is a thread-safe in-memory Repository. It backs tests
// and single-process deployments; durable storage lives in store/sqlite or
// in the host application.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*Identity
	byLookup map[string]string          // lookup key -> id
	links    map[string]*FederatedLink  // provider + "\x00" + subject -> link
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*Identity),
		byLookup: make(map[string]string),
		links:    make(map[string]*FederatedLink),
	}
}

func linkKey(provider, subject string) string {
	return provider + "\x00" + subject
}

// FindByID implements Repository.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.byID[id]
	if !ok {
		return nil, autherr.NotFound("identity", id)
	}
	cp := *ident
	return &cp, nil
}

// FindByLookupKey implements Repository.
func (r *MemoryRepository) FindByLookupKey(ctx context.Context, key string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byLookup[key]
	if !ok {
		return nil, autherr.NotFound("identity", "")
	}
	cp := *r.byID[id]
	return &cp, nil
}

// Create implements Repository.
func (r *MemoryRepository) Create(ctx context.Context, ident *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[ident.ID]; exists {
		return autherr.Conflict("An identity with this id already exists.")
	}
	if ident.LookupKey != "" {
		if _, exists := r.byLookup[ident.LookupKey]; exists {
			return autherr.Conflict("An identity with this lookup key already exists.")
		}
	}
	cp := *ident
	r.byID[cp.ID] = &cp
	if cp.LookupKey != "" {
		r.byLookup[cp.LookupKey] = cp.ID
	}
	return nil
}

// Delete implements Repository.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return autherr.NotFound("identity", id)
	}
	delete(r.byID, id)
	if ident.LookupKey != "" {
		delete(r.byLookup, ident.LookupKey)
	}
	for key, link := range r.links {
		if link.IdentityID == id {
			delete(r.links, key)
		}
	}
	return nil
}

// UpdateCredentialHash implements Repository.
func (r *MemoryRepository) UpdateCredentialHash(ctx context.Context, id, encodedHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return autherr.NotFound("identity", id)
	}
	if encodedHash == "" && !r.hasLinkLocked(id) {
		return autherr.Conflict("Removing the only credential would lock the identity out.")
	}
	ident.CredentialHash = encodedHash
	return nil
}

// TouchLastAuthenticated implements Repository.
func (r *MemoryRepository) TouchLastAuthenticated(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return autherr.NotFound("identity", id)
	}
	ident.LastAuthenticatedAt = at
	return nil
}

// FindFederatedLink implements Repository.
func (r *MemoryRepository) FindFederatedLink(ctx context.Context, provider, subject string) (*FederatedLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[linkKey(provider, subject)]
	if !ok {
		return nil, autherr.NotFound("federated link", "")
	}
	cp := *link
	return &cp, nil
}

// CreateFederatedLink implements Repository.
func (r *MemoryRepository) CreateFederatedLink(ctx context.Context, link *FederatedLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.links[linkKey(link.Provider, link.Subject)]; exists {
		return autherr.Conflict("This external account is already linked.")
	}
	if _, exists := r.byID[link.IdentityID]; !exists {
		return autherr.NotFound("identity", link.IdentityID)
	}
	for _, existing := range r.links {
		if existing.IdentityID == link.IdentityID && existing.Provider == link.Provider {
			return autherr.Conflict("The identity already holds a link for this provider.")
		}
	}
	cp := *link
	r.links[linkKey(cp.Provider, cp.Subject)] = &cp
	return nil
}

// DeleteFederatedLink implements Repository.
func (r *MemoryRepository) DeleteFederatedLink(ctx context.Context, provider, identityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, link := range r.links {
		if link.Provider == provider && link.IdentityID == identityID {
			delete(r.links, key)
			return nil
		}
	}
	return autherr.NotFound("federated link", "")
}

// ListFederatedLinks implements Repository.
func (r *MemoryRepository) ListFederatedLinks(ctx context.Context, identityID string) ([]FederatedLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FederatedLink
	for _, link := range r.links {
		if link.IdentityID == identityID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (r *MemoryRepository) hasLinkLocked(identityID string) bool {
	for _, link := range r.links {
		if link.IdentityID == identityID {
			return true
		}
	}
	return false
}
