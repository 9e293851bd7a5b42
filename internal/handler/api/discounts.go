package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
)

type createDiscountRequest struct {
	Name             string     `json:"name"`
	Code             string     `json:"code"`
	Type             string     `json:"type"`
	BasisPoints      int32      `json:"basis_points"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Duration         string     `json:"duration"`
	DurationInMonths *int32     `json:"duration_in_months"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	MaxRedemptions   *int32     `json:"max_redemptions"`
	ProductIDs       []string   `json:"product_ids"`
}

// CreateDiscount handles POST /api/discounts. The discount is created in the
// user's active store.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_discount"

	var req createDiscountRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var verr error
	productIDs := make([]pgtype.UUID, len(req.ProductIDs))
	for i, raw := range req.ProductIDs {
		productIDs[i] = parseUUIDField(&verr, "product_ids", raw)
	}
	if verr != nil {
		respondError(w, r, verr)
		return
	}

	discount, err := h.discounts.Create(r.Context(), userID(r), service.CreateDiscountParams{
		Name:             req.Name,
		Code:             req.Code,
		Type:             domain.DiscountType(req.Type),
		BasisPoints:      req.BasisPoints,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Duration:         domain.DiscountDuration(req.Duration),
		DurationInMonths: req.DurationInMonths,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		MaxRedemptions:   req.MaxRedemptions,
		ProductIDs:       productIDs,
		IdempotencyKey:   idempotencyKey(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newDiscountView(discount), nil)
}

// ListDiscounts handles GET /api/stores/{id}/discounts.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_discounts"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}
	discounts, err := h.discounts.List(r.Context(), storeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mapList(discounts, newDiscountView), nil)
}

// GetDiscount handles GET /api/discounts/{id}.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_discount"

	discountID, err := pathUUID(r, "id", op, "discount")
	if err != nil {
		respondError(w, r, err)
		return
	}
	discount, err := h.ownedDiscount(r.Context(), op, discountID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newDiscountView(discount), nil)
}

// DeleteDiscount handles DELETE /api/discounts/{id}.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_discount"

	discountID, err := pathUUID(r, "id", op, "discount")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedDiscount(r.Context(), op, discountID); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.discounts.Delete(r.Context(), discountID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ownedDiscount(ctx context.Context, op string, discountID pgtype.UUID) (*domain.Discount, error) {
	discount, err := h.discounts.GetByID(ctx, discountID)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedStore(ctx, op, discount.StoreID); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, errNotOwned(op, "discount", discountID)
		}
		return nil, err
	}
	return discount, nil
}
