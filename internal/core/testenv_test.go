package core

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

// testEnv wires real services against a temp-dir metadata database and
// tenant file registry, so service tests run against actual SQLite.
type testEnv struct {
	svc      *Services
	cfg      *config.Config
	metaDB   *sql.DB
	registry *tenantfile.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ServiceName:              "tenantdb-test",
		DataDir:                  dir,
		DatabasesDir:             filepath.Join(dir, "databases"),
		MetadataDBPath:           filepath.Join(dir, "metadata.db"),
		APIKeyPrefix:             "sk_sqlite_",
		DefaultMaxDatabases:      10,
		DefaultStorageLimitBytes: 1073741824,
		DefaultMaxDBSizeBytes:    104857600,
		DefaultMaxTables:         100,
		DefaultMaxRowsPerTable:   100000,
		DefaultQueriesPerHour:    10000,
		QueryTimeout:             5 * time.Second,
		MaxQueryLength:           100000,
	}

	metaDB, err := db.Open(cfg.MetadataDBPath)
	require.NoError(t, err)
	t.Cleanup(func() { metaDB.Close() })
	require.NoError(t, db.Migrate(metaDB))

	registry, err := tenantfile.NewRegistry(cfg.DatabasesDir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	return &testEnv{
		svc:      NewServices(metaDB, registry, cfg, zerolog.Nop()),
		cfg:      cfg,
		metaDB:   metaDB,
		registry: registry,
	}
}

var accountSeq int

func (e *testEnv) createAccount(t *testing.T) *model.Account {
	t.Helper()
	accountSeq++
	account, err := e.svc.Auth.CreateAccount(context.Background(),
		fmt.Sprintf("account-%d", accountSeq),
		fmt.Sprintf("user%d@example.com", accountSeq),
		"")
	require.NoError(t, err)
	return account
}

func (e *testEnv) createDatabase(t *testing.T, accountID, name string) *model.Database {
	t.Helper()
	d, err := e.svc.Database.Create(context.Background(), accountID, request.CreateDatabase{Name: name})
	require.NoError(t, err)
	return d
}

func (e *testEnv) exec(t *testing.T, accountID, databaseID, query string, params ...any) model.QueryResult {
	t.Helper()
	_, err := e.svc.Database.GetOwned(context.Background(), accountID, databaseID)
	require.NoError(t, err)
	result, err := e.svc.Query.Execute(context.Background(), databaseID, request.Query{Query: query, Params: params})
	require.NoError(t, err)
	return result
}
