package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName    string `env:"SERVICE_NAME" envDefault:"tenantdb-api"`
	HTTPListenAddr string `env:"HTTP_LISTEN_ADDR" envDefault:":8090"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// DataDir is the root for all persisted state. DatabasesDir and
	// MetadataDBPath derive from it unless set explicitly.
	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	DatabasesDir   string `env:"DATABASES_DIR"`
	MetadataDBPath string `env:"METADATA_DB_PATH"`

	APIKeyPrefix string `env:"API_KEY_PREFIX" envDefault:"sk_sqlite_"`

	// Per-account and per-database quota defaults, applied when a create
	// request leaves the corresponding limit unset.
	DefaultMaxDatabases      int   `env:"DEFAULT_MAX_DATABASES_PER_ACCOUNT" envDefault:"10"`
	DefaultStorageLimitBytes int64 `env:"DEFAULT_TOTAL_STORAGE_LIMIT_BYTES" envDefault:"1073741824"`
	DefaultMaxDBSizeBytes    int64 `env:"DEFAULT_MAX_DB_SIZE_BYTES" envDefault:"104857600"`
	DefaultMaxTables         int   `env:"DEFAULT_MAX_TABLES_PER_DB" envDefault:"100"`
	DefaultMaxRowsPerTable   int   `env:"DEFAULT_MAX_ROWS_PER_TABLE" envDefault:"100000"`
	DefaultQueriesPerHour    int   `env:"DEFAULT_QUERIES_PER_HOUR" envDefault:"10000"`

	QueryTimeout    time.Duration `env:"QUERY_TIMEOUT" envDefault:"30s"`
	MaxQueryLength  int           `env:"MAX_QUERY_LENGTH" envDefault:"100000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DatabasesDir == "" {
		cfg.DatabasesDir = filepath.Join(cfg.DataDir, "databases")
	}
	if cfg.MetadataDBPath == "" {
		cfg.MetadataDBPath = filepath.Join(cfg.DataDir, "metadata.db")
	}

	return cfg, nil
}
