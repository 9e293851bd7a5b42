package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
)

type priceRequest struct {
	Type              string `json:"type"`
	RecurringInterval string `json:"recurring_interval"`
	AmountType        string `json:"amount_type"`
	Currency          string `json:"currency"`
	Amount            *int64 `json:"amount"`
	MinimumAmount     *int64 `json:"minimum_amount"`
	MaximumAmount     *int64 `json:"maximum_amount"`
	PresetAmount      *int64 `json:"preset_amount"`
}

func (p priceRequest) spec() domain.PriceSpec {
	return domain.PriceSpec{
		Type:              domain.PriceType(p.Type),
		RecurringInterval: domain.RecurringInterval(p.RecurringInterval),
		AmountType:        domain.AmountType(p.AmountType),
		Currency:          p.Currency,
		Amount:            p.Amount,
		MinimumAmount:     p.MinimumAmount,
		MaximumAmount:     p.MaximumAmount,
		PresetAmount:      p.PresetAmount,
	}
}

type createProductRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Prices      []priceRequest `json:"prices"`
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// CreateProduct handles POST /api/stores/{id}/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_product"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req createProductRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}

	specs := make([]domain.PriceSpec, len(req.Prices))
	for i, p := range req.Prices {
		specs[i] = p.spec()
	}
	product, err := h.catalog.CreateProduct(r.Context(), storeID, service.CreateProductParams{
		Name:           req.Name,
		Description:    req.Description,
		Prices:         specs,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newProductView(product), nil)
}

// ListProducts handles GET /api/stores/{id}/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_products"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}
	products, err := h.catalog.ListProducts(r.Context(), storeID)
	respond(w, r, http.StatusOK, mapList(products, newProductView), err)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_product"

	productID, err := pathUUID(r, "id", op, "product")
	if err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.ownedProduct(r.Context(), op, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProductView(product), nil)
}

// UpdateProduct handles PATCH /api/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_product"

	productID, err := pathUUID(r, "id", op, "product")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req updateProductRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedProduct(r.Context(), op, productID); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), productID, service.UpdateProductParams{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProductView(product), nil)
}

// ArchiveProduct handles POST /api/products/{id}/archive.
func (h *Handler) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, "api.archive_product", h.catalog.ArchiveProduct)
}

// UnarchiveProduct handles POST /api/products/{id}/unarchive.
func (h *Handler) UnarchiveProduct(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, "api.unarchive_product", h.catalog.UnarchiveProduct)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, op string, apply func(ctx context.Context, productID pgtype.UUID) (*domain.Product, error)) {
	productID, err := pathUUID(r, "id", op, "product")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedProduct(r.Context(), op, productID); err != nil {
		respondError(w, r, err)
		return
	}
	product, err := apply(r.Context(), productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newProductView(product), nil)
}

// ArchivePrice handles POST /api/products/{id}/prices/{priceID}/archive.
// The price must belong to the product.
func (h *Handler) ArchivePrice(w http.ResponseWriter, r *http.Request) {
	const op = "api.archive_price"

	productID, err := pathUUID(r, "id", op, "product")
	if err != nil {
		respondError(w, r, err)
		return
	}
	priceID, err := pathUUID(r, "priceID", op, "price")
	if err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.ownedProduct(r.Context(), op, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !slices.ContainsFunc(product.Prices, func(p domain.ProductPrice) bool { return p.ID == priceID }) {
		respondError(w, r, errNotOwned(op, "price", priceID))
		return
	}

	price, err := h.catalog.ArchivePrice(r.Context(), priceID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newPriceView(price), nil)
}
