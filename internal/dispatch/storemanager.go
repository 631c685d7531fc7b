package dispatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/mapknit/geocache/internal/geoerr"
	"github.com/mapknit/geocache/pkg/store"
)

// StoreManager owns the single on-disk store handle for one path,
// keeping it stable across the atomic rename that marks a freshly
// packed replacement. Concurrent reopens of the same path collapse
// into one via singleflight; repeated reopen failures against a
// missing or corrupt file trip a circuit breaker rather than retrying
// every request.
type StoreManager struct {
	path          string
	memoCacheSize int
	logger        *slog.Logger
	breaker       *geoerr.CircuitBreaker
	group         singleflight.Group

	mu      sync.Mutex
	current *store.DiskStore
	pins    int
	stale   *store.DiskStore // superseded handle, closed once its pins drain
}

// NewStoreManager opens path and returns a manager for it.
func NewStoreManager(path string, memoCacheSize int, logger *slog.Logger) (*StoreManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &StoreManager{
		path:          path,
		memoCacheSize: memoCacheSize,
		logger:        logger,
		breaker:       geoerr.NewCircuitBreaker("store-manager:" + path),
	}
	if err := m.reopen(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreManager) reopen() error {
	_, err, _ := m.group.Do("reopen", func() (any, error) {
		return nil, m.breaker.Execute(func() error {
			disk, err := store.OpenDiskStore(m.path, m.memoCacheSize)
			if err != nil {
				return geoerr.StoreOpen(geoerr.CodeStoreOpenFailed, "opening on-disk store "+m.path, err)
			}

			m.mu.Lock()
			old := m.current
			m.current = disk
			if old != nil {
				m.stale = old
			}
			m.mu.Unlock()
			return nil
		})
	})
	return err
}

// Acquire pins and returns the current handle. Release must be called
// exactly once per successful Acquire.
func (m *StoreManager) Acquire() (*store.DiskStore, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		if err := m.reopen(); err != nil {
			return nil, err
		}
		m.mu.Lock()
		cur = m.current
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.pins++
	m.mu.Unlock()
	return cur, nil
}

// Release drops one pin taken by Acquire. The manager keeps a single
// pin count across its current and superseded handles; a superseded
// handle is closed once that count reaches zero.
func (m *StoreManager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pins > 0 {
		m.pins--
	}
	if m.pins == 0 && m.stale != nil {
		_ = m.stale.Close()
		m.stale = nil
	}
}

// Watch watches the store file's directory for the rename that
// replaces it, reopening the store on each such event. It blocks until
// ctx is cancelled or the watcher fails to start.
func (m *StoreManager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return geoerr.Internal("creating store watcher", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return geoerr.Internal("watching store directory "+dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if err := m.reopen(); err != nil {
				m.logger.Warn("store reopen failed", "path", m.path, "error", err)
			} else {
				m.logger.Debug("store reopened", "path", m.path)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("store watcher error", "path", m.path, "error", watchErr)
		}
	}
}

// Close closes the current handle and any superseded one immediately,
// whether or not readers that called Acquire still hold them.
func (m *StoreManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.current != nil {
		err = m.current.Close()
		m.current = nil
	}
	if m.stale != nil {
		_ = m.stale.Close()
		m.stale = nil
	}
	return err
}
