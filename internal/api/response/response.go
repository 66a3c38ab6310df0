package response

import (
	"encoding/json"
	"net/http"

	"github.com/edvin/tenantdb/internal/apperr"
)

// Envelope is the uniform response shape. Successful responses carry data,
// failures carry a machine-readable error body, never both.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in a success envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Envelope{Success: true, Data: v})
}

// WriteAppError maps err onto its HTTP status and error envelope. Errors
// without a taxonomy code become opaque 500s.
func WriteAppError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	WriteJSON(w, appErr.Status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: appErr.Code, Message: appErr.Message},
	})
}

// WriteValidationError reports a malformed or invalid request body.
func WriteValidationError(w http.ResponseWriter, err error) {
	WriteAppError(w, apperr.Validation(err.Error()))
}
