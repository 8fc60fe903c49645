// Package cache persists fetched registry manifests with TTL-based
// freshness. A fresh entry is served without network I/O; a stale or
// missing entry triggers a blocking re-fetch through the owning
// registry resolver. Concurrent fetches for the same registry are
// collapsed into one (single-flight).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/forge-stack/forge/internal/fsx"
	"github.com/forge-stack/forge/internal/manifest"
)

// Entry is one cached registry manifest on disk.
type Entry struct {
	// URL is the manifest URL the entry was fetched from.
	URL string `json:"url"`

	// Manifest is the parsed, validated registry manifest.
	Manifest *manifest.RegistryManifest `json:"manifest"`

	// FetchedAt is when the manifest was fetched. The zero value marks
	// an explicitly invalidated entry.
	FetchedAt time.Time `json:"fetched_at"`

	// TTLSeconds is the freshness window recorded at fetch time.
	TTLSeconds int `json:"ttl_seconds"`
}

// Store persists cache entries, one JSON file per registry name.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir (e.g., ~/.forge/registry/cache).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the cache file path for a registry.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads the entry for a registry. Returns (nil, nil) when absent.
func (s *Store) Load(name string) (*Entry, error) {
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}
	return &e, nil
}

// Put writes the entry for a registry atomically, so concurrent CLI
// invocations never observe a torn file.
func (s *Store) Put(name string, e *Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if err := fsx.WriteFileAtomic(s.Path(name), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Invalidate force-expires an entry so the next Get re-fetches. The
// manifest itself is kept for allow-stale fallback. No-op if absent.
func (s *Store) Invalidate(name string) error {
	e, err := s.Load(name)
	if err != nil || e == nil {
		return err
	}
	e.FetchedAt = time.Time{}
	return s.Put(name, e)
}

// InvalidateAll force-expires every entry in the store.
func (s *Store) InvalidateAll() error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache dir: %w", err)
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(de.Name(), ".json")
		if err := s.Invalidate(name); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a cached entry entirely.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// FetchFunc retrieves raw registry manifest bytes from the network.
// The registry resolver supplies this; the cache owns parsing and
// persistence.
type FetchFunc func(ctx context.Context) ([]byte, error)

// GetOptions control a single Get call.
type GetOptions struct {
	// AllowStale returns the expired cached copy when the re-fetch
	// fails, instead of propagating the network error.
	AllowStale bool
}

// flight is one in-progress fetch shared by concurrent callers.
type flight struct {
	done chan struct{}
	man  *manifest.RegistryManifest
	err  error
}

// Manager serves manifests through the store, refreshing stale entries.
type Manager struct {
	store *Store

	mu       sync.Mutex
	inFlight map[string]*flight

	// now is replaceable for tests.
	now func() time.Time
}

// NewManager creates a cache manager over the given store.
func NewManager(store *Store) *Manager {
	return &Manager{
		store:    store,
		inFlight: make(map[string]*flight),
		now:      time.Now,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Fresh reports whether e is within its freshness window.
func (m *Manager) fresh(e *Entry, ttl time.Duration) bool {
	if e == nil || e.FetchedAt.IsZero() {
		return false
	}
	return m.now().Sub(e.FetchedAt) < ttl
}

// Get returns the manifest for a registry. A fresh cache entry is
// returned without I/O. Otherwise one fetch runs (shared across
// concurrent callers), is validated, persisted, and returned. On fetch
// failure with a stale entry present, the stale copy is returned only
// when opts.AllowStale is set.
func (m *Manager) Get(ctx context.Context, name, url string, ttl time.Duration, fetch FetchFunc, opts GetOptions) (*manifest.RegistryManifest, error) {
	entry, err := m.store.Load(name)
	if err != nil {
		return nil, err
	}
	if m.fresh(entry, ttl) {
		return entry.Manifest, nil
	}

	man, fetchErr := m.refresh(ctx, name, url, ttl, fetch)
	if fetchErr == nil {
		return man, nil
	}

	if opts.AllowStale {
		// Re-read: another invocation may have refreshed meanwhile.
		if stale, lerr := m.store.Load(name); lerr == nil && stale != nil && stale.Manifest != nil {
			return stale.Manifest, nil
		}
	}
	return nil, fetchErr
}

// refresh performs (or joins) the single-flight fetch for a registry.
func (m *Manager) refresh(ctx context.Context, name, url string, ttl time.Duration, fetch FetchFunc) (*manifest.RegistryManifest, error) {
	m.mu.Lock()
	if f, ok := m.inFlight[name]; ok {
		m.mu.Unlock()
		select {
		case <-f.done:
			return f.man, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	m.inFlight[name] = f
	m.mu.Unlock()

	f.man, f.err = m.doFetch(ctx, name, url, ttl, fetch)

	m.mu.Lock()
	delete(m.inFlight, name)
	m.mu.Unlock()
	close(f.done)

	return f.man, f.err
}

// doFetch fetches, validates, and persists one manifest.
func (m *Manager) doFetch(ctx context.Context, name, url string, ttl time.Duration, fetch FetchFunc) (*manifest.RegistryManifest, error) {
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	man, err := manifest.ParseRegistryManifest(data)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		URL:        url,
		Manifest:   man,
		FetchedAt:  m.now(),
		TTLSeconds: int(ttl / time.Second),
	}
	if err := m.store.Put(name, entry); err != nil {
		return nil, err
	}

	return man, nil
}

// Invalidate force-expires one registry's entry.
func (m *Manager) Invalidate(name string) error {
	return m.store.Invalidate(name)
}

// InvalidateAll force-expires every cached entry.
func (m *Manager) InvalidateAll() error {
	return m.store.InvalidateAll()
}
