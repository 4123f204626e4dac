package grib

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrCacheMiss indicates a sidecar that is absent, unreadable, or stale.
// Loads translate every structural failure into this value so the miss path
// is an ordinary branch, never a propagated fault.
var ErrCacheMiss = errors.New("cache miss")

// ErrInvalidKey indicates a sidecar key that would escape the cache root.
var ErrInvalidKey = errors.New("invalid cache key")

// -----------------------------------------------------------------------------
// Cache store
// -----------------------------------------------------------------------------

// CacheStore persists derived sidecar files. Implementations may target the
// local filesystem or memory; keys are flat file names within one cache
// namespace.
//
// Unlike source GRIB files, sidecars are replaceable: Put overwrites any
// existing entry (a rebuilt index supersedes a stale one).
type CacheStore interface {
	// Get retrieves a sidecar payload. Returns ErrCacheMiss when absent.
	Get(key string) ([]byte, error)

	// Put writes a sidecar payload, replacing any existing entry.
	Put(key string, data []byte) error

	// Delete removes the entry if present. Missing entries are not an error.
	Delete(key string) error
}

// -----------------------------------------------------------------------------
// Filesystem cache
// -----------------------------------------------------------------------------

// fsCache implements CacheStore under a root directory.
type fsCache struct {
	root string
}

// NewFSCache creates a filesystem-backed CacheStore rooted at dir. The
// directory is created if missing.
func NewFSCache(dir string) (CacheStore, error) {
	if dir == "" {
		return nil, errors.New("grib: cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fsCache{root: dir}, nil
}

func (f *fsCache) Get(key string) ([]byte, error) {
	p, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Put writes via a temp file and rename so readers never observe a
// half-written sidecar.
func (f *fsCache) Put(key string, data []byte) error {
	p, err := f.safePath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".sidecar-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (f *fsCache) Delete(key string) error {
	p, err := f.safePath(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// safePath validates a key and resolves it under the cache root. Keys are
// flat names; separators and traversal are rejected.
func (f *fsCache) safePath(key string) (string, error) {
	if key == "" || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	if strings.ContainsAny(key, "/\\") {
		return "", ErrInvalidKey
	}
	return filepath.Join(f.root, key), nil
}

// -----------------------------------------------------------------------------
// Memory cache
// -----------------------------------------------------------------------------

// memCache implements CacheStore in memory. Safe for concurrent use.
type memCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemCache creates an in-memory CacheStore, useful for tests and for
// processes that want index reuse without touching disk.
func NewMemCache() CacheStore {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(key string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *memCache) Put(key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	m.data[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *memCache) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
