package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sk_sqlite_", cfg.APIKeyPrefix)
	assert.Equal(t, 10, cfg.DefaultMaxDatabases)
	assert.Equal(t, int64(1073741824), cfg.DefaultStorageLimitBytes)
	assert.Equal(t, int64(104857600), cfg.DefaultMaxDBSizeBytes)
	assert.Equal(t, 100, cfg.DefaultMaxTables)
	assert.Equal(t, 100000, cfg.DefaultMaxRowsPerTable)
	assert.Equal(t, 10000, cfg.DefaultQueriesPerHour)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 100000, cfg.MaxQueryLength)
}

func TestLoad_DerivedPaths(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/tenantdb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/srv/tenantdb", "databases"), cfg.DatabasesDir)
	assert.Equal(t, filepath.Join("/srv/tenantdb", "metadata.db"), cfg.MetadataDBPath)
}

func TestLoad_ExplicitPathsWin(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/tenantdb")
	t.Setenv("DATABASES_DIR", "/mnt/files")
	t.Setenv("METADATA_DB_PATH", "/mnt/meta.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/mnt/files", cfg.DatabasesDir)
	assert.Equal(t, "/mnt/meta.db", cfg.MetadataDBPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_LISTEN_ADDR", ":9000")
	t.Setenv("DEFAULT_MAX_DATABASES_PER_ACCOUNT", "3")
	t.Setenv("QUERY_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPListenAddr)
	assert.Equal(t, 3, cfg.DefaultMaxDatabases)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
}
