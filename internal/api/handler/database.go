package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/tenantdb/internal/api/middleware"
	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/api/response"
	"github.com/edvin/tenantdb/internal/core"
)

// Database handles tenant database lifecycle endpoints.
type Database struct {
	svc *core.DatabaseService
}

func NewDatabase(svc *core.DatabaseService) *Database {
	return &Database{svc: svc}
}

func (h *Database) Create(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	var req request.CreateDatabase
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	d, err := h.svc.Create(r.Context(), account.ID, req)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusCreated, d)
}

func (h *Database) List(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	databases, err := h.svc.List(r.Context(), account.ID)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, map[string]any{
		"databases": databases,
		"total":     len(databases),
	})
}

func (h *Database) Get(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	d, err := h.svc.Get(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, d)
}

func (h *Database) Update(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	var req request.UpdateDatabase
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	d, err := h.svc.Update(r.Context(), account.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, d)
}

func (h *Database) Delete(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	if err := h.svc.Delete(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, map[string]any{"message": "Database deleted"})
}
