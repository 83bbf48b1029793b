package identity

import (
	"context"
	"testing"
	"time"

	autherr "github.com/skillsenselab/authcore/errors"
)

func TestMemoryRepository_Create_FindByID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	ident := &Identity{ID: "id-1", LookupKey: "alice@example.com", CredentialHash: "$argon2id$..."}
	if err := repo.Create(ctx, ident); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.LookupKey != "alice@example.com" {
		t.Errorf("unexpected lookup key: %s", got.LookupKey)
	}

	// Returned values are copies; mutating them must not touch the store.
	got.LookupKey = "mutated"
	again, _ := repo.FindByID(ctx, "id-1")
	if again.LookupKey != "alice@example.com" {
		t.Error("repository must hand out copies")
	}
}

func TestMemoryRepository_Create_ConflictOnLookupKey(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if err := repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &Identity{ID: "id-2", LookupKey: "alice@example.com"})
	if autherr.CodeOf(err) != autherr.ErrCodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

func TestMemoryRepository_FindByLookupKey_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.FindByLookupKey(context.Background(), "nobody@example.com")
	if autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestMemoryRepository_UpdateCredentialHash_Wholesale(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com", CredentialHash: "old"})

	if err := repo.UpdateCredentialHash(ctx, "id-1", "new"); err != nil {
		t.Fatalf("UpdateCredentialHash: %v", err)
	}
	got, _ := repo.FindByID(ctx, "id-1")
	if got.CredentialHash != "new" {
		t.Errorf("hash should be replaced, got %s", got.CredentialHash)
	}
}

func TestMemoryRepository_UpdateCredentialHash_RefusesLockout(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com", CredentialHash: "old"})

	err := repo.UpdateCredentialHash(ctx, "id-1", "")
	if autherr.CodeOf(err) != autherr.ErrCodeConflict {
		t.Errorf("clearing the only credential should conflict, got %v", err)
	}

	// With a federated link present the credential may be dropped.
	repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "google", Subject: "g-1", IdentityID: "id-1"})
	if err := repo.UpdateCredentialHash(ctx, "id-1", ""); err != nil {
		t.Errorf("clearing credential with a link present should succeed, got %v", err)
	}
}

func TestMemoryRepository_FederatedLink_Uniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com"})
	repo.Create(ctx, &Identity{ID: "id-2", LookupKey: "bob@example.com"})

	link := &FederatedLink{Provider: "google", Subject: "g-1", IdentityID: "id-1", LinkedAt: time.Now()}
	if err := repo.CreateFederatedLink(ctx, link); err != nil {
		t.Fatalf("CreateFederatedLink: %v", err)
	}

	// Same (provider, subject) pair cannot link twice, even elsewhere.
	err := repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "google", Subject: "g-1", IdentityID: "id-2"})
	if autherr.CodeOf(err) != autherr.ErrCodeConflict {
		t.Errorf("expected CONFLICT for duplicate subject, got %v", err)
	}

	// One link per provider per identity.
	err = repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "google", Subject: "g-2", IdentityID: "id-1"})
	if autherr.CodeOf(err) != autherr.ErrCodeConflict {
		t.Errorf("expected CONFLICT for second google link, got %v", err)
	}

	// A different provider is fine.
	if err := repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "github", Subject: "gh-1", IdentityID: "id-1"}); err != nil {
		t.Errorf("second provider link should succeed, got %v", err)
	}

	links, err := repo.ListFederatedLinks(ctx, "id-1")
	if err != nil {
		t.Fatalf("ListFederatedLinks: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected 2 links, got %d", len(links))
	}
}

func TestMemoryRepository_DeleteFederatedLink(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com", CredentialHash: "h"})
	repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "google", Subject: "g-1", IdentityID: "id-1"})

	if err := repo.DeleteFederatedLink(ctx, "google", "id-1"); err != nil {
		t.Fatalf("DeleteFederatedLink: %v", err)
	}
	if _, err := repo.FindFederatedLink(ctx, "google", "g-1"); autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("link should be gone, got %v", err)
	}
	if err := repo.DeleteFederatedLink(ctx, "google", "id-1"); autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("double delete should be NOT_FOUND, got %v", err)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com"})
	repo.CreateFederatedLink(ctx, &FederatedLink{Provider: "google", Subject: "g-1", IdentityID: "id-1"})

	if err := repo.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "id-1"); autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("identity should be gone, got %v", err)
	}
	if _, err := repo.FindFederatedLink(ctx, "google", "g-1"); autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("links should go with the identity, got %v", err)
	}

	// The lookup key is free for reuse.
	if err := repo.Create(ctx, &Identity{ID: "id-2", LookupKey: "alice@example.com"}); err != nil {
		t.Errorf("lookup key should be reusable after delete, got %v", err)
	}

	if err := repo.Delete(ctx, "missing"); autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestMemoryRepository_TouchLastAuthenticated(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Create(ctx, &Identity{ID: "id-1", LookupKey: "alice@example.com"})

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.TouchLastAuthenticated(ctx, "id-1", at); err != nil {
		t.Fatalf("TouchLastAuthenticated: %v", err)
	}
	got, _ := repo.FindByID(ctx, "id-1")
	if !got.LastAuthenticatedAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, got.LastAuthenticatedAt)
	}
}
