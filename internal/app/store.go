package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corey/mixdown/internal/adapters/boltcache"
	"github.com/corey/mixdown/internal/adapters/sqlcache"
	"github.com/corey/mixdown/internal/ports"
)

// OpenStore returns the dedup store for a cache path. An empty path gets a
// per-run in-memory set; a .bolt extension selects the bbolt backend; any
// other path is SQLite. reset deletes the existing file first.
func OpenStore(path string, reset bool) (ports.DedupStore, error) {
	if path == "" {
		return NewMemStore(), nil
	}
	if reset {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: reset %s: %v", ErrStoreCorrupt, path, err)
		}
	}
	var (
		store ports.DedupStore
		err   error
	)
	if strings.EqualFold(filepath.Ext(path), ".bolt") {
		store, err = boltcache.Open(path)
	} else {
		store, err = sqlcache.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return store, nil
}

// MemStore is the in-memory dedup store used when no cache path is given.
// It lives for one run only.
type MemStore struct {
	set map[ports.Fingerprint]struct{}
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{set: make(map[ports.Fingerprint]struct{})}
}

// AddIfAbsent inserts fp, reporting true when it was not already present.
func (m *MemStore) AddIfAbsent(fp ports.Fingerprint) (bool, error) {
	if _, ok := m.set[fp]; ok {
		return false, nil
	}
	m.set[fp] = struct{}{}
	return true, nil
}

// Contains reports presence for each fingerprint, positionally.
func (m *MemStore) Contains(fps []ports.Fingerprint) ([]bool, error) {
	out := make([]bool, len(fps))
	for i, fp := range fps {
		_, out[i] = m.set[fp]
	}
	return out, nil
}

// Len returns the number of stored fingerprints.
func (m *MemStore) Len() (int, error) {
	return len(m.set), nil
}

// Close is a no-op.
func (m *MemStore) Close() error {
	return nil
}
