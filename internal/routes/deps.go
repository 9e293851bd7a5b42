package routes

import (
	"net/http"

	"github.com/dukerupert/mercato/internal/handler/api"
)

// WebhookDeps contains dependencies for provider webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for operational routes
type OpsDeps struct {
	// Metrics serves the Prometheus registry
	Metrics http.Handler

	// Health reports whether the process can serve traffic
	Health http.HandlerFunc
}

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	Handler *api.Handler
}
