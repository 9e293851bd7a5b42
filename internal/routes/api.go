package routes

import (
	"github.com/dukerupert/mercato/internal/middleware"
	"github.com/dukerupert/mercato/internal/router"
)

// RegisterAPIRoutes registers the JSON API.
//
// Users are authenticated upstream and identified by middleware.UserIDHeader.
// Everything except checkout creation requires a user.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	h := deps.Handler

	public := r.Group(middleware.WithUser, middleware.MaxBodySize())
	public.Post("/api/stores/{id}/checkouts", h.CreateCheckout)

	authed := public.Group(middleware.RequireUser)

	// Stores
	authed.Post("/api/stores", h.CreateStore)
	authed.Get("/api/stores", h.ListStores)
	authed.Get("/api/stores/active", h.GetActiveStore)
	authed.Get("/api/stores/{id}", h.GetStore)
	authed.Post("/api/stores/{id}/activate", h.ActivateStore)
	authed.Post("/api/stores/{id}/account", h.CreateStoreAccount)
	authed.Post("/api/stores/{id}/account-link", h.CreateAccountLink)

	// Catalog
	authed.Post("/api/stores/{id}/products", h.CreateProduct)
	authed.Get("/api/stores/{id}/products", h.ListProducts)
	authed.Get("/api/products/{id}", h.GetProduct)
	authed.Patch("/api/products/{id}", h.UpdateProduct)
	authed.Post("/api/products/{id}/archive", h.ArchiveProduct)
	authed.Post("/api/products/{id}/unarchive", h.UnarchiveProduct)
	authed.Post("/api/products/{id}/prices/{priceID}/archive", h.ArchivePrice)

	// Discounts
	authed.Post("/api/discounts", h.CreateDiscount)
	authed.Get("/api/stores/{id}/discounts", h.ListDiscounts)
	authed.Get("/api/discounts/{id}", h.GetDiscount)
	authed.Delete("/api/discounts/{id}", h.DeleteDiscount)

	// Checkouts
	authed.Get("/api/stores/{id}/checkouts", h.ListCheckouts)
	authed.Get("/api/checkouts/{id}", h.GetCheckout)
}
