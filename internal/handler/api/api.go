// Package api serves the JSON API for store owners and buyers. Users are
// authenticated upstream; see middleware.WithUser.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/handler"
	"github.com/dukerupert/mercato/internal/middleware"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
)

// IdempotencyKeyHeader lets clients make provider-mirroring requests safe
// to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler serves the API endpoints.
type Handler struct {
	stores    service.StoreService
	catalog   service.CatalogService
	discounts service.DiscountService
	checkouts service.CheckoutService
	customers service.CustomerService
	logger    *slog.Logger
}

// NewHandler creates an API handler over svc.
func NewHandler(svc *service.Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		stores:    svc.Stores,
		catalog:   svc.Catalog,
		discounts: svc.Discounts,
		checkouts: svc.Checkouts,
		customers: svc.Customers,
		logger:    logger.With("handler", "api"),
	}
}

// errNotOwned hides resources of other users behind a plain not found.
func errNotOwned(op, resource string, id pgtype.UUID) error {
	return domain.NotFound(op, resource, postgres.UUIDString(id))
}

// ownedStore loads a store and checks it belongs to the request's user.
func (h *Handler) ownedStore(ctx context.Context, op string, storeID pgtype.UUID) (*domain.Store, error) {
	userID, _ := middleware.GetUserID(ctx)
	store, err := h.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.UserID != userID {
		return nil, errNotOwned(op, "store", storeID)
	}
	return store, nil
}

// ownedProduct loads a product of one of the user's stores.
func (h *Handler) ownedProduct(ctx context.Context, op string, productID pgtype.UUID) (*domain.Product, error) {
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedStore(ctx, op, product.StoreID); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, errNotOwned(op, "product", productID)
		}
		return nil, err
	}
	return product, nil
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid(op, "request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid(op, "request body too large")
		}
		return domain.Invalid(op, "invalid JSON body: "+err.Error())
	}
	return nil
}

// pathUUID parses a UUID path value. A malformed ID cannot exist, so it is
// reported as not found.
func pathUUID(r *http.Request, name, op, resource string) (pgtype.UUID, error) {
	raw := r.PathValue(name)
	id := postgres.ParseUUID(raw)
	if !id.Valid {
		return id, domain.NotFound(op, resource, raw)
	}
	return id, nil
}

// parseUUIDField parses an optional UUID body field, collecting failures
// as field errors on err.
func parseUUIDField(err *error, field, raw string) pgtype.UUID {
	if raw == "" {
		return pgtype.UUID{}
	}
	id := postgres.ParseUUID(raw)
	if !id.Valid {
		*err = domain.AddFieldError(*err, field, "must be a UUID")
	}
	return id
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
}

// respond writes err if set, otherwise v with status.
func respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	handler.JSON(w, status, v)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	handler.ErrorResponse(w, r, err)
}

func userID(r *http.Request) pgtype.UUID {
	id, _ := middleware.GetUserID(r.Context())
	return id
}
