package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/mercato/internal/domain"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler that reports 200 while the database answers and
// 503 otherwise.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			ErrorResponse(w, r, domain.WrapError(err, domain.ETXABORTED, "health", "database unavailable"))
			return
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
