// Package vaultstore implements C1: content-addressed persistence of
// encrypted vault records and the active-vault pointer, over a pluggable
// key/value Backend (spec §4.1, §6.6).
package vaultstore

import (
	"context"
	"sync"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
)

// Backend is the consumer-facing storage adapter from spec §6.6. It is
// intentionally minimal: no transactions, no listing filters beyond a
// flat key space.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Usage(ctx context.Context) (int64, error)
	Quota(ctx context.Context) (int64, error)
}

// MemoryBackend is an in-memory Backend, used as the package's reference
// implementation and by the test suite. Real deployments plug in whatever
// platform storage they have (IndexedDB, disk, secure enclave, ...).
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
}

// NewMemoryBackend returns an empty MemoryBackend. A quota of 0 means
// unlimited.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		var used int64
		for k, v := range m.data {
			if k != key {
				used += int64(len(v))
			}
		}
		if used+int64(len(value)) > m.quota {
			return errs.New(errs.StorageQuotaExceeded, "backend quota exceeded")
		}
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func (m *MemoryBackend) Usage(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var used int64
	for _, v := range m.data {
		used += int64(len(v))
	}
	return used, nil
}

func (m *MemoryBackend) Quota(_ context.Context) (int64, error) {
	return m.quota, nil
}
