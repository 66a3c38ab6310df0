// Package tenantfile owns the physical SQLite file of every tenant database
// and the process-wide cache of open handles to them.
package tenantfile

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

// Registry maps database IDs to open handles on their storage files. At most
// one handle exists per ID; eviction holds the registry lock so no acquisition
// can reopen a file mid-delete.
type Registry struct {
	dir    string
	logger zerolog.Logger

	mu      sync.Mutex
	handles map[string]*sql.DB
	opening singleflight.Group
}

func NewRegistry(dir string, logger zerolog.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create databases dir: %w", err)
	}
	return &Registry{
		dir:     dir,
		logger:  logger,
		handles: make(map[string]*sql.DB),
	}, nil
}

// Path returns the deterministic storage path for a database ID.
func (r *Registry) Path(databaseID string) string {
	return filepath.Join(r.dir, "db_"+databaseID+".sqlite")
}

// Acquire returns the cached handle for the database, opening it on first
// use. Concurrent first acquisitions are collapsed so the file is never
// double-opened.
func (r *Registry) Acquire(databaseID string) (*sql.DB, error) {
	r.mu.Lock()
	if h, ok := r.handles[databaseID]; ok {
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()

	v, err, _ := r.opening.Do(databaseID, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if h, ok := r.handles[databaseID]; ok {
			return h, nil
		}
		h, err := openFile(r.Path(databaseID))
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", databaseID, err)
		}
		r.handles[databaseID] = h
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// Evict closes and drops the cached handle. It is a no-op when no handle is
// cached.
func (r *Registry) Evict(databaseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[databaseID]; ok {
		if err := h.Close(); err != nil {
			r.logger.Warn().Err(err).Str("database_id", databaseID).Msg("close tenant handle")
		}
		delete(r.handles, databaseID)
	}
}

// OpenHandles reports the number of currently cached handles.
func (r *Registry) OpenHandles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// CreatePhysical creates an empty storage file in WAL mode and returns its
// initial size. The handle used for creation is not cached.
func (r *Registry) CreatePhysical(databaseID string) (int64, error) {
	h, err := openFile(r.Path(databaseID))
	if err != nil {
		return 0, fmt.Errorf("create database file %s: %w", databaseID, err)
	}
	if err := h.Close(); err != nil {
		return 0, fmt.Errorf("close new database file %s: %w", databaseID, err)
	}
	return r.Size(databaseID), nil
}

// DeletePhysical evicts any live handle and removes the primary file and
// the WAL/shared-memory side files, tolerating their absence. The close and
// the removals happen in one critical section: Acquire opens under the same
// lock, so no acquisition can reopen the file mid-delete.
func (r *Registry) DeletePhysical(databaseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[databaseID]; ok {
		if err := h.Close(); err != nil {
			r.logger.Warn().Err(err).Str("database_id", databaseID).Msg("close tenant handle")
		}
		delete(r.handles, databaseID)
	}

	path := r.Path(databaseID)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Size returns the current size of the primary storage file, 0 if absent.
func (r *Registry) Size(databaseID string) int64 {
	info, err := os.Stat(r.Path(databaseID))
	if err != nil {
		return 0
	}
	return info.Size()
}

// TableCount returns the number of user tables, excluding SQLite's internal
// catalog tables.
func (r *Registry) TableCount(databaseID string) (int, error) {
	h, err := r.Acquire(databaseID)
	if err != nil {
		return 0, err
	}
	var count int
	err = h.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tables in %s: %w", databaseID, err)
	}
	return count, nil
}

// RowCount returns the number of rows in the given table.
func (r *Registry) RowCount(databaseID, table string) (int64, error) {
	h, err := r.Acquire(databaseID)
	if err != nil {
		return 0, err
	}
	var count int64
	query := fmt.Sprintf(`SELECT count(*) FROM "%s"`, sanitizeIdentifier(table))
	if err := h.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s.%s: %w", databaseID, table, err)
	}
	return count, nil
}

// Close evicts every cached handle. Used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.handles {
		if err := h.Close(); err != nil {
			r.logger.Warn().Err(err).Str("database_id", id).Msg("close tenant handle")
		}
		delete(r.handles, id)
	}
}

// openFile opens a SQLite file in WAL mode with a single connection, so all
// statements against one tenant file serialize on its one handle.
func openFile(path string) (*sql.DB, error) {
	h, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	h.SetMaxOpenConns(1)
	if _, err := h.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		h.Close()
		return nil, err
	}
	if _, err := h.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func sanitizeIdentifier(identifier string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, identifier)
}
