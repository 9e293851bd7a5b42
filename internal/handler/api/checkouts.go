package api

import (
	"net/http"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/service"
)

type createCheckoutRequest struct {
	ProductID      string            `json:"product_id"`
	ProductPriceID string            `json:"product_price_id"`
	DiscountID     string            `json:"discount_id"`
	DiscountCode   string            `json:"discount_code"`
	Amount         *int64            `json:"amount"`
	CustomerEmail  string            `json:"customer_email"`
	SuccessURL     string            `json:"success_url"`
	CancelURL      string            `json:"cancel_url"`
	Metadata       map[string]string `json:"metadata"`
}

// CreateCheckout handles POST /api/stores/{id}/checkouts. Buyers may be
// anonymous; a signed-in buyer is billed as their provider customer.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_checkout"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req createCheckoutRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var verr error
	params := service.CreateCheckoutParams{
		ProductID:      parseUUIDField(&verr, "product_id", req.ProductID),
		ProductPriceID: parseUUIDField(&verr, "product_price_id", req.ProductPriceID),
		DiscountID:     parseUUIDField(&verr, "discount_id", req.DiscountID),
		DiscountCode:   req.DiscountCode,
		Amount:         req.Amount,
		UserID:         userID(r),
		CustomerEmail:  req.CustomerEmail,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKey(r),
	}
	if verr != nil {
		respondError(w, r, verr)
		return
	}

	checkout, err := h.checkouts.Create(r.Context(), storeID, params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newCheckoutView(checkout), nil)
}

// ListCheckouts handles GET /api/stores/{id}/checkouts, optionally filtered
// by ?product_id=.
func (h *Handler) ListCheckouts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_checkouts"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var verr error
	productID := parseUUIDField(&verr, "product_id", r.URL.Query().Get("product_id"))
	if verr != nil {
		respondError(w, r, verr)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}

	checkouts, err := h.checkouts.List(r.Context(), storeID, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mapList(checkouts, newCheckoutView), nil)
}

// GetCheckout handles GET /api/checkouts/{id}. Store owners see every
// checkout of their stores; buyers see their own.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_checkout"

	checkoutID, err := pathUUID(r, "id", op, "checkout")
	if err != nil {
		respondError(w, r, err)
		return
	}
	checkout, err := h.checkouts.Get(r.Context(), checkoutID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if checkout.UserID.Valid && checkout.UserID == userID(r) {
		respond(w, r, http.StatusOK, newCheckoutView(checkout), nil)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, checkout.StoreID); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			err = domain.NotFound(op, "checkout", postgres.UUIDString(checkoutID))
		}
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newCheckoutView(checkout), nil)
}
