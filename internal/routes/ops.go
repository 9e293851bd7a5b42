package routes

import (
	"github.com/dukerupert/mercato/internal/router"
)

// RegisterOpsRoutes registers metrics and health endpoints. They carry no
// authentication; restrict them at the network edge in production.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle("GET", "/metrics", deps.Metrics)
	r.Get("/healthz", deps.Health)
}
