// Package namespace resolves, validates, and materializes namespaces, and
// caches their store handles behind a bounded LRU so a long-running
// server doesn't keep every namespace's SQLite/bleve/hnsw handles open at
// once.
package namespace

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// DefaultNamespace is auto-created on first reference.
const DefaultNamespace = "default"

const markerFile = ".initialized"

// Manager resolves namespace names to open store.Store handles.
type Manager struct {
	dataDir   string
	autoCreate bool

	mu    sync.Mutex
	cache *lru.Cache[string, *store.Store]
}

// New constructs a Manager rooted at dataDir/namespaces, with an LRU cache
// bounded at maxOpenNamespaces concurrently-open store handles.
func New(dataDir string, maxOpenNamespaces int, autoCreate bool) (*Manager, error) {
	m := &Manager{dataDir: dataDir, autoCreate: autoCreate}
	cache, err := lru.NewWithEvict(maxOpenNamespaces, func(_ string, s *store.Store) {
		_ = s.Close()
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "constructing namespace cache", err)
	}
	m.cache = cache
	return m, nil
}

// Resolve validates a requested namespace name and applies the
// precedence order: explicit request value, else process env override,
// else DefaultNamespace.
func Resolve(requested, envOverride string) (string, error) {
	ns := requested
	if ns == "" {
		ns = envOverride
	}
	if ns == "" {
		ns = DefaultNamespace
	}
	if err := model.ValidateNamespace(ns); err != nil {
		return "", err
	}
	return ns, nil
}

func (m *Manager) root(ns string) string {
	return filepath.Join(m.dataDir, "namespaces", ns)
}

// Exists reports whether ns has been materialized on disk.
func (m *Manager) Exists(ns string) bool {
	_, err := os.Stat(filepath.Join(m.root(ns), markerFile))
	return err == nil
}

// Create materializes ns's storage root. Idempotent.
func (m *Manager) Create(ns string) error {
	if err := model.ValidateNamespace(ns); err != nil {
		return err
	}
	root := m.root(ns)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return apperr.Wrap(apperr.IOError, "creating namespace root", err)
	}
	marker := filepath.Join(root, markerFile)
	if _, err := os.Stat(marker); err == nil {
		return nil
	}
	if err := os.WriteFile(marker, []byte("1"), 0o644); err != nil {
		return apperr.Wrap(apperr.IOError, "writing namespace marker", err)
	}
	return nil
}

// List returns every materialized namespace, with DefaultNamespace first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dataDir, "namespaces"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{DefaultNamespace}, nil
		}
		return nil, apperr.Wrap(apperr.IOError, "listing namespaces", err)
	}
	var rest []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == DefaultNamespace {
			continue
		}
		rest = append(rest, e.Name())
	}
	return append([]string{DefaultNamespace}, rest...), nil
}

// Handle returns the open store.Store for ns, opening (and, if needed,
// creating) it on first reference. Eviction under LRU pressure closes the
// handle transparently; the next Handle call reopens it.
func (m *Manager) Handle(ctx context.Context, ns string) (*store.Store, error) {
	if err := model.ValidateNamespace(ns); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache.Get(ns); ok {
		return s, nil
	}

	if !m.Exists(ns) {
		if !m.autoCreate {
			return nil, apperr.Newf(apperr.NamespaceUnknown, "namespace %q does not exist and auto_create_namespaces is disabled", ns)
		}
		if err := m.Create(ns); err != nil {
			return nil, err
		}
	}

	root := m.root(ns)
	s, err := store.Open(ns, filepath.Join(root, "store.db"), filepath.Join(root, "bleve.idx"))
	if err != nil {
		return nil, err
	}
	m.cache.Add(ns, s)
	return s, nil
}

// Delete removes a namespace's storage root entirely, evicting any open
// handle first. The caller is responsible for confirming no surviving
// references exist.
func (m *Manager) Delete(ns string) error {
	m.mu.Lock()
	m.cache.Remove(ns) // triggers the evict callback, closing the handle
	m.mu.Unlock()
	if err := os.RemoveAll(m.root(ns)); err != nil {
		return apperr.Wrap(apperr.IOError, "removing namespace root", err)
	}
	return nil
}

// Close shuts down every cached handle, for graceful server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
}
