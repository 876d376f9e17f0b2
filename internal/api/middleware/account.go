// Package middleware holds the HTTP middleware for the API surface.
package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const accountKey contextKey = "account_id"

// HeaderAccountID is set by the session frontend after it resolves the
// authenticated account. This service trusts it; it never sees sessions.
const HeaderAccountID = "X-Account-ID"

// AccountScope rejects requests that carry no account header and stores the
// account id in the request context for handlers to read.
func AccountScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get(HeaderAccountID)
		if accountID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Missing account scope"}`))
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountID returns the scoped account id, or "" outside AccountScope.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountKey).(string)
	return id
}
