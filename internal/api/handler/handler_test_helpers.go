package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	mw "github.com/edvin/tenantdb/internal/api/middleware"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/core"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

// testEnv backs handlers with real services over a temp-dir SQLite setup.
type testEnv struct {
	services *core.Services
	cfg      *config.Config
	account  *model.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
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

	services := core.NewServices(metaDB, registry, cfg, zerolog.Nop())

	account, err := services.Auth.CreateAccount(context.Background(), "test", "test@example.com", "")
	require.NoError(t, err)

	return &testEnv{services: services, cfg: cfg, account: account}
}

// newRequest creates an authenticated JSON request.
func (e *testEnv) newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.WithAccount(r.Context(), e.account))
}

// newRequestRaw creates an authenticated request with a raw string body.
func (e *testEnv) newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.WithAccount(r.Context(), e.account))
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeEnvelope parses a response body into its envelope parts.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (bool, map[string]any, map[string]any) {
	t.Helper()
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Success, body.Data, body.Error
}

func (e *testEnv) createDatabase(t *testing.T, name string) *model.Database {
	t.Helper()
	h := NewDatabase(e.services.Database)
	rec := httptest.NewRecorder()
	r := e.newRequest(http.MethodPost, "/databases", map[string]any{"name": name})
	h.Create(rec, r)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data model.Database `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return &body.Data
}
