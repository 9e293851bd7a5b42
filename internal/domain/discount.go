package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Discount is a store's reduction mirrored as a provider coupon.
// A discount row only exists once its provider coupon does.
type Discount struct {
	ID      pgtype.UUID
	StoreID pgtype.UUID
	Name    string
	Code    string // empty when the discount is not code-redeemable

	Type        DiscountType
	BasisPoints int32 // percentage discounts, 1/100th of a percent
	Amount      int64 // fixed discounts, smallest currency unit
	Currency    string

	Duration         DiscountDuration
	DurationInMonths *int32

	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxRedemptions *int32

	// ProductIDs scopes the discount to products. Scoped lookups only
	// find a discount through a product in this set.
	ProductIDs []pgtype.UUID

	ProviderCouponID string
	CreatedAt        time.Time
}

// IsRedeemable reports whether the discount can be redeemed at now, given how
// many times it has been redeemed. A discount is redeemable unless its window
// has not opened yet, has already closed, or its redemption cap is reached.
// A discount without a window or cap is always redeemable.
func (d *Discount) IsRedeemable(now time.Time, redemptions int64) bool {
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return false
	}
	if d.EndsAt != nil && d.EndsAt.Before(now) {
		return false
	}
	if d.MaxRedemptions != nil && redemptions >= int64(*d.MaxRedemptions) {
		return false
	}
	return true
}

// PercentFromBasisPoints converts basis points to the percentage the
// provider expects, e.g. 1250 -> 12.5.
func PercentFromBasisPoints(basisPoints int32) float64 {
	return decimal.New(int64(basisPoints), -2).InexactFloat64()
}

// DiscountRedemption records one use of a discount. Rows are never updated.
type DiscountRedemption struct {
	ID         pgtype.UUID
	DiscountID pgtype.UUID
	CheckoutID pgtype.UUID
	RedeemedAt time.Time
}
