package vaultstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

const (
	vaultKeyPrefix   = "vault:"
	activeVaultIDKey = "activeVaultId"
)

// record is the JSON-encoded value stored per vault key, combining the
// domain Vault with the UI-ordering metadata spec §3 assigns to it.
type record struct {
	Vault        *vaultcore.Vault `json:"vault"`
	Order        int              `json:"order"`
	CreatedAt    int64            `json:"createdAt"`
	LastModified int64            `json:"lastModified"`
	IsBackedUp   bool             `json:"isBackedUp"`
}

// Store implements C1 (spec §4.1) as a strictly pass-through layer over a
// Backend: no caching, so the backend remains the single source of truth.
type Store struct {
	backend Backend
}

// New wraps a Backend with the vault store's key scheme and ordering.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put persists v, keyed by its id. Re-putting an existing id overwrites it
// in place (spec invariant I4); order/createdAt/isBackedUp are preserved
// across an overwrite unless this is the vault's first Put.
func (s *Store) Put(ctx context.Context, v *vaultcore.Vault) error {
	if err := vaultcore.Validate(v); err != nil {
		return errs.Wrap(errs.InvalidInput, "invalid vault", err)
	}

	if prev, ok, err := s.backend.Get(ctx, vaultKeyPrefix+v.ID); err == nil && ok {
		var old record
		if json.Unmarshal(prev, &old) == nil {
			v.Order, v.CreatedAt, v.IsBackedUp = old.Order, old.CreatedAt, old.IsBackedUp
		}
	}

	rec := record{
		Vault:        v,
		Order:        v.Order,
		CreatedAt:    v.CreatedAt,
		LastModified: v.LastModified,
		IsBackedUp:   v.IsBackedUp,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal vault record", err)
	}

	if err := s.backend.Set(ctx, vaultKeyPrefix+v.ID, data); err != nil {
		if e, ok := err.(*errs.Error); ok {
			return e
		}
		return errs.Wrap(errs.StorageUnavailable, "write vault record", err)
	}
	return nil
}

// Get returns the vault stored under id, or (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, id string) (*vaultcore.Vault, error) {
	data, ok, err := s.backend.Get(ctx, vaultKeyPrefix+id)
	if err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, "read vault record", err)
	}
	if !ok {
		return nil, nil
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap(errs.CorruptedData, "unmarshal vault record", err)
	}
	return rec.Vault, nil
}

// List returns every stored vault, ordered ascending by Order, ties
// broken by CreatedAt ascending (spec §4.1, property 4).
func (s *Store) List(ctx context.Context) ([]*vaultcore.Vault, error) {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, "list backend keys", err)
	}

	var records []record
	for _, k := range keys {
		if !isVaultKey(k) {
			continue
		}
		data, ok, err := s.backend.Get(ctx, k)
		if err != nil {
			return nil, errs.Wrap(errs.StorageUnavailable, "read vault record", err)
		}
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errs.Wrap(errs.CorruptedData, "unmarshal vault record", err)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Order != records[j].Order {
			return records[i].Order < records[j].Order
		}
		return records[i].CreatedAt < records[j].CreatedAt
	})

	out := make([]*vaultcore.Vault, len(records))
	for i, rec := range records {
		out[i] = rec.Vault
	}
	return out, nil
}

// Delete removes the vault with id. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.backend.Remove(ctx, vaultKeyPrefix+id); err != nil {
		return errs.Wrap(errs.StorageUnavailable, "remove vault record", err)
	}
	return nil
}

// SetActive records id as the active vault pointer. Passing "" clears it.
func (s *Store) SetActive(ctx context.Context, id string) error {
	if id == "" {
		return s.backend.Remove(ctx, activeVaultIDKey)
	}
	if err := s.backend.Set(ctx, activeVaultIDKey, []byte(id)); err != nil {
		return errs.Wrap(errs.StorageUnavailable, "write active vault pointer", err)
	}
	return nil
}

// GetActive returns the active vault id, or "" if unset.
func (s *Store) GetActive(ctx context.Context) (string, error) {
	data, ok, err := s.backend.Get(ctx, activeVaultIDKey)
	if err != nil {
		return "", errs.Wrap(errs.StorageUnavailable, "read active vault pointer", err)
	}
	if !ok {
		return "", nil
	}
	return string(data), nil
}

// isVaultKey filters List() to keys of the form "vault:<id>" with exactly
// one colon, so cache entries under other prefixes are never picked up.
func isVaultKey(key string) bool {
	if !strings.HasPrefix(key, vaultKeyPrefix) {
		return false
	}
	return strings.Count(key, ":") == 1
}
