// Package db opens and migrates the control-plane metadata store: the single
// SQLite file holding accounts, API keys, database records, and query logs.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the subset of database/sql used by the core services. Both *sql.DB
// and *sql.Tx satisfy it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens the metadata store, creating its parent directory when missing.
// A single connection in WAL mode keeps counter read-modify-writes serial.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	metaDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	metaDB.SetMaxOpenConns(1)

	if _, err := metaDB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		metaDB.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := metaDB.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		metaDB.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := metaDB.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		metaDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return metaDB, nil
}
