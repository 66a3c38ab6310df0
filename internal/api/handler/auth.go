package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/tenantdb/internal/api/middleware"
	"github.com/edvin/tenantdb/internal/api/request"
	"github.com/edvin/tenantdb/internal/api/response"
	"github.com/edvin/tenantdb/internal/core"
)

// Auth handles account registration and API key management.
type Auth struct {
	svc *core.AuthService
}

func NewAuth(svc *core.AuthService) *Auth {
	return &Auth{svc: svc}
}

// Register creates an account and issues its first API key. The plaintext
// key appears in this response and nowhere else.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req request.Register
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	key, err := h.svc.CreateAPIKey(r.Context(), account.ID, nil, nil)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusCreated, map[string]any{
		"account": account,
		"api_key": key,
	})
}

// CreateKey issues an additional API key for the authenticated account.
func (h *Auth) CreateKey(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	var req request.CreateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteValidationError(w, err)
		return
	}

	key, err := h.svc.CreateAPIKey(r.Context(), account.ID, req.Name, req.ExpiresAt)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusCreated, key)
}

// ListKeys returns the account's active keys, without secrets.
func (h *Auth) ListKeys(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())

	keys, err := h.svc.ListAPIKeys(r.Context(), account.ID)
	if err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"total": len(keys),
	})
}

// RevokeKey permanently deactivates one of the account's keys.
func (h *Auth) RevokeKey(w http.ResponseWriter, r *http.Request) {
	account := mw.GetAccount(r.Context())
	keyID := chi.URLParam(r, "id")

	if err := h.svc.RevokeAPIKey(r.Context(), account.ID, keyID); err != nil {
		response.WriteAppError(w, err)
		return
	}

	response.WriteData(w, http.StatusOK, map[string]any{"message": "API key revoked"})
}
