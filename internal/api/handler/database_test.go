package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCreate(t *testing.T) {
	env := newTestEnv(t)
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	h.Create(rec, env.newRequest(http.MethodPost, "/databases", map[string]any{
		"name":       "app-data",
		"max_tables": 5,
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	success, data, _ := decodeEnvelope(t, rec)
	assert.True(t, success)
	assert.Equal(t, "app-data", data["name"])
	assert.Equal(t, float64(5), data["max_tables"])
}

func TestDatabaseCreate_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	h.Create(rec, env.newRequestRaw(http.MethodPost, "/databases", "{bad json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, env.newRequest(http.MethodPost, "/databases", map[string]any{"name": "has space"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, _, errBody := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestDatabaseList(t *testing.T) {
	env := newTestEnv(t)
	env.createDatabase(t, "one")
	env.createDatabase(t, "two")
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	h.List(rec, env.newRequest(http.MethodGet, "/databases", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	_, data, _ := decodeEnvelope(t, rec)
	assert.Equal(t, float64(2), data["total"])
}

func TestDatabaseGet_NotFound(t *testing.T) {
	env := newTestEnv(t)
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	r := env.newRequest(http.MethodGet, "/databases/missing", nil)
	h.Get(rec, withChiURLParam(r, "id", "missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	success, _, errBody := decodeEnvelope(t, rec)
	assert.False(t, success)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
}

func TestDatabaseUpdate(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDatabase(t, "before")
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	r := env.newRequest(http.MethodPatch, "/databases/"+d.ID, map[string]any{"name": "after"})
	h.Update(rec, withChiURLParam(r, "id", d.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	_, data, _ := decodeEnvelope(t, rec)
	assert.Equal(t, "after", data["name"])
}

func TestDatabaseDelete(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDatabase(t, "doomed")
	h := NewDatabase(env.services.Database)

	rec := httptest.NewRecorder()
	r := env.newRequest(http.MethodDelete, "/databases/"+d.ID, nil)
	h.Delete(rec, withChiURLParam(r, "id", d.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r = env.newRequest(http.MethodGet, "/databases/"+d.ID, nil)
	h.Get(rec, withChiURLParam(r, "id", d.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
