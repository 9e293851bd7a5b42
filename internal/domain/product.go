package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// Product is a sellable item of a store, mirrored as a provider product.
// This is the domain type - implementations map from repository types.
type Product struct {
	ID          pgtype.UUID
	StoreID     pgtype.UUID
	Name        string
	Description string

	// ProviderProductID is empty until the product has been synced.
	ProviderProductID string

	IsArchived bool
	Prices     []ProductPrice

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductPrice is one price of a product, mirrored as a provider price.
// Financial fields always come from the provider's view of the price.
type ProductPrice struct {
	ID                pgtype.UUID
	ProductID         pgtype.UUID
	Type              PriceType
	RecurringInterval RecurringInterval
	AmountType        AmountType
	Currency          string

	// Amount is set for fixed prices and zero for free prices.
	Amount *int64

	// Custom amount bounds, set together for custom prices only.
	MinimumAmount *int64
	MaximumAmount *int64
	PresetAmount  *int64

	ProviderPriceID string
	IsArchived      bool
	CreatedAt       time.Time
}

// IsRecurring reports whether the price bills on an interval.
func (p ProductPrice) IsRecurring() bool {
	return p.Type == PriceTypeRecurring
}

// ChargeAmount resolves the amount a payer is charged for this price.
//
// Free prices charge zero and fixed prices their amount; a requested amount
// is ignored for both. Custom prices charge the requested amount, which must
// lie within the price's bounds, or the preset when none is requested.
func (p ProductPrice) ChargeAmount(op string, requested *int64) (int64, error) {
	switch p.AmountType {
	case AmountTypeFree:
		return 0, nil
	case AmountTypeFixed:
		if p.Amount == nil {
			return 0, Internal(nil, op, "fixed price has no amount")
		}
		return *p.Amount, nil
	case AmountTypeCustom:
		if requested == nil {
			if p.PresetAmount == nil {
				return 0, NewValidationError(op, "Amount", "amount is required for this price")
			}
			return *p.PresetAmount, nil
		}
		if p.MinimumAmount != nil && *requested < *p.MinimumAmount {
			return 0, NewValidationError(op, "Amount", "amount is less than the minimum of the price")
		}
		if p.MaximumAmount != nil && *requested > *p.MaximumAmount {
			return 0, NewValidationError(op, "Amount", "amount is greater than the maximum of the price")
		}
		return *requested, nil
	default:
		return 0, Internal(nil, op, "unknown amount type "+string(p.AmountType))
	}
}

// ActivePrices returns the prices that are not archived, in creation order.
func (p *Product) ActivePrices() []ProductPrice {
	active := make([]ProductPrice, 0, len(p.Prices))
	for _, price := range p.Prices {
		if !price.IsArchived {
			active = append(active, price)
		}
	}
	return active
}
