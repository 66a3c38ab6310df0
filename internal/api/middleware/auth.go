package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edvin/tenantdb/internal/api/response"
	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/core"
	"github.com/edvin/tenantdb/internal/model"
)

type contextKey string

const accountKey contextKey = "account"

// Auth returns a middleware that validates the bearer API key and attaches
// the owning account to the request context.
func Auth(auth *core.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				response.WriteAppError(w, apperr.Unauthorized("Missing or invalid Authorization header"))
				return
			}

			account, err := auth.ValidateAPIKey(r.Context(), token)
			if err != nil {
				response.WriteAppError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount returns the authenticated account, or nil outside the auth
// middleware.
func GetAccount(ctx context.Context) *model.Account {
	account, _ := ctx.Value(accountKey).(*model.Account)
	return account
}

// WithAccount is a test hook for exercising handlers without the full
// middleware chain.
func WithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}
