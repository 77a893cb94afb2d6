package vaultstore

import (
	"context"
	"strings"
	"testing"

	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

func testVault(id, name string, order int) *vaultcore.Vault {
	v := &vaultcore.Vault{
		Name:         name,
		PublicKeys:   vaultcore.PublicKeys{ECDSA: id, EdDSA: "eddsa-" + id},
		HexChainCode: strings.Repeat("cd", 32),
		Signers:      []string{"party-a", "party-b"},
		LocalPartyID: "party-a",
		KeyShares: map[vaultcore.Algorithm][]byte{
			vaultcore.ECDSA: []byte("share-ecdsa"),
			vaultcore.EdDSA: []byte("share-eddsa"),
		},
		LibType: vaultcore.LibDKLS,
		Order:   order,
	}
	v.ID = id
	return v
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(0))

	v := testVault("vault-1", "First", 0)
	if err := s.Put(ctx, v); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "vault-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Name != "First" {
		t.Fatalf("unexpected get result: %+v", got)
	}

	if err := s.Delete(ctx, "vault-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.Get(ctx, "vault-1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(0))

	a := testVault("vault-a", "Vault A", 2)
	b := testVault("vault-b", "Vault B", 1)
	c := testVault("vault-c", "Vault C", 1)
	c.CreatedAt = 100
	b.CreatedAt = 200

	for _, v := range []*vaultcore.Vault{a, b, c} {
		if err := s.Put(ctx, v); err != nil {
			t.Fatalf("put %s: %v", v.ID, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 vaults, got %d", len(list))
	}
	// Order ascending first (b, c both order 1; a order 2), ties by CreatedAt.
	if list[0].ID != "vault-c" || list[1].ID != "vault-b" || list[2].ID != "vault-a" {
		ids := make([]string, len(list))
		for i, v := range list {
			ids[i] = v.ID
		}
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestStoreActiveVaultPointer(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(0))

	active, err := s.GetActive(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active != "" {
		t.Fatalf("expected no active vault initially, got %s", active)
	}

	if err := s.SetActive(ctx, "vault-1"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	active, err = s.GetActive(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active != "vault-1" {
		t.Fatalf("expected vault-1, got %s", active)
	}
}
