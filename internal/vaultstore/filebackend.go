package vaultstore

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
)

// FileBackend is a Backend that stores each key as one file under dir,
// for the CLI's local persistence (spec §6.6's "real deployments plug
// in whatever platform storage they have"). Keys are base64url-encoded
// into file names so colons and slashes in vault IDs never collide
// with path separators.
type FileBackend struct {
	mu  sync.Mutex
	dir string
}

// NewFileBackend returns a FileBackend rooted at dir, creating it if
// it doesn't already exist.
func NewFileBackend(dir string) *FileBackend {
	// #nosec G301 - vault store directory, not world-readable by default umask
	_ = os.MkdirAll(dir, 0o750)
	return &FileBackend{dir: dir}
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// #nosec G304 - path is derived from an encoded key under our own dir
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.StorageUnavailable, "read vault file", err)
	}
	return data, true, nil
}

func (f *FileBackend) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.path(key), value, 0o600); err != nil {
		return errs.Wrap(errs.StorageUnavailable, "write vault file", err)
	}
	return nil
}

func (f *FileBackend) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.StorageUnavailable, "remove vault file", err)
	}
	return nil
}

func (f *FileBackend) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, "list vault directory", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		decoded, err := base64.RawURLEncoding.DecodeString(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, string(decoded))
	}
	return keys, nil
}

func (f *FileBackend) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return errs.Wrap(errs.StorageUnavailable, "list vault directory", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			return errs.Wrap(errs.StorageUnavailable, "clear vault file", err)
		}
	}
	return nil
}

func (f *FileBackend) Usage(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, errs.Wrap(errs.StorageUnavailable, "list vault directory", err)
	}
	var used int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		used += info.Size()
	}
	return used, nil
}

// Quota is unbounded for a FileBackend; disk space is the only limit.
func (f *FileBackend) Quota(_ context.Context) (int64, error) {
	return 0, nil
}
