package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	// UserIDHeader carries the authenticated user's ID. It is set by the
	// authenticating gateway in front of this service and must be stripped
	// from client requests there.
	UserIDHeader = "X-User-ID"

	// UserIDContextKey is the context key for the authenticated user ID
	UserIDContextKey contextKey = "user_id"
)

// WithUser stores the user ID from UserIDHeader in the request context when
// present. Requests without a valid header continue anonymously.
func WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := postgres.ParseUUID(r.Header.Get(UserIDHeader))
		if !id.Valid {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, id)
		logger := GetLogger(ctx).With("user_id", postgres.UUIDString(id))
		next.ServeHTTP(w, r.WithContext(WithLogger(ctx, logger)))
	})
}

// RequireUser rejects requests without an authenticated user with 401.
// It must run after WithUser.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID returns the authenticated user ID from the context.
func GetUserID(ctx context.Context) (pgtype.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(pgtype.UUID)
	return id, ok && id.Valid
}

// respondUnauthorized mirrors handler.UnauthorizedResponse for JSON clients.
// The handler package imports middleware, so it cannot be called here.
func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	GetLogger(r.Context()).Info("unauthenticated request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    domain.EUNAUTHORIZED,
			"message": "Authentication required",
		},
	})
}
