package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/tenantdb/internal/api/middleware"
	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/api/response"
	"github.com/edvin/tenantdb/internal/core"
	"github.com/edvin/tenantdb/internal/model"
)

// Query handles statement execution against a tenant database. Every
// endpoint resolves ownership before touching the database file.
type Query struct {
	databases *core.DatabaseService
	queries   *core.QueryService
}

func NewQuery(databases *core.DatabaseService, queries *core.QueryService) *Query {
	return &Query{databases: databases, queries: queries}
}

func (h *Query) resolve(w http.ResponseWriter, r *http.Request) (*model.Database, bool) {
	account := mw.GetAccount(r.Context())
	d, err := h.databases.GetOwned(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteAppError(w, err)
		return nil, false
	}
	return d, true
}

// Execute runs one statement. The result is returned flat, with its own
// success flag: engine-level SQL failures are 200s with success=false.
func (h *Query) Execute(w http.ResponseWriter, r *http.Request) {
	d, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req request.Query
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	result, err := h.queries.Execute(r.Context(), d.ID, req)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

// Batch runs statements sequentially without a transaction, stopping at the
// first failure.
func (h *Query) Batch(w http.ResponseWriter, r *http.Request) {
	d, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req request.Batch
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	batch, err := h.queries.ExecuteBatch(r.Context(), d.ID, req.Queries)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, batch)
}

// Migrate runs statements in a single transaction. The envelope's success
// flag reflects whether every statement committed.
func (h *Query) Migrate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req request.Migrate
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	batch, err := h.queries.ExecuteMigration(r.Context(), d.ID, req.Queries)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	allOk := true
	for _, result := range batch.Results {
		if !result.Success {
			allOk = false
			break
		}
	}

	response.WriteJSON(w, http.StatusOK, response.Envelope{Success: allOk, Data: batch})
}
