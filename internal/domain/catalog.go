package domain

// =============================================================================
// CATALOG DOMAIN TYPES
// =============================================================================

// PriceType distinguishes one-off charges from subscriptions.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

// RecurringInterval is the billing period of a recurring price.
type RecurringInterval string

const (
	RecurringIntervalDay   RecurringInterval = "day"
	RecurringIntervalWeek  RecurringInterval = "week"
	RecurringIntervalMonth RecurringInterval = "month"
	RecurringIntervalYear  RecurringInterval = "year"
)

// AmountType describes how the charged amount of a price is determined.
type AmountType string

const (
	AmountTypeFree   AmountType = "free"   // Zero amount, no bounds
	AmountTypeFixed  AmountType = "fixed"  // Fixed unit amount
	AmountTypeCustom AmountType = "custom" // Payer picks an amount within bounds
)

// PriceSpec is the caller's description of a price to create.
// Local price rows are never built from a PriceSpec directly; they are derived
// from the provider's response to creating it.
type PriceSpec struct {
	Type              PriceType         `validate:"required,oneof=one_time recurring"`
	RecurringInterval RecurringInterval `validate:"required_if=Type recurring,omitempty,oneof=day week month year"`
	AmountType        AmountType        `validate:"required,oneof=free fixed custom"`
	Currency          string            `validate:"required,len=3,lowercase"`

	// Amount is required for fixed prices, in the smallest currency unit.
	Amount *int64 `validate:"required_if=AmountType fixed,omitempty,gt=0"`

	// MinimumAmount, MaximumAmount and PresetAmount are required together
	// for custom prices.
	MinimumAmount *int64 `validate:"required_if=AmountType custom,omitempty,gte=0"`
	MaximumAmount *int64 `validate:"required_if=AmountType custom,omitempty,gt=0"`
	PresetAmount  *int64 `validate:"required_if=AmountType custom,omitempty,gte=0"`
}

// CheckInvariants enforces the amount-type rules that struct tags cannot
// express: only custom prices carry bounds, only fixed prices carry an
// amount, and a preset sits between the bounds.
func (p PriceSpec) CheckInvariants(op string) error {
	var err error
	hasBounds := p.MinimumAmount != nil || p.MaximumAmount != nil || p.PresetAmount != nil

	switch p.AmountType {
	case AmountTypeFree:
		if p.Amount != nil && *p.Amount != 0 {
			err = AddFieldError(err, "Amount", "free prices cannot carry an amount")
		}
		if hasBounds {
			err = AddFieldError(err, "MinimumAmount", "free prices cannot carry custom bounds")
		}
	case AmountTypeFixed:
		if hasBounds {
			err = AddFieldError(err, "MinimumAmount", "fixed prices cannot carry custom bounds")
		}
	case AmountTypeCustom:
		if p.Amount != nil {
			err = AddFieldError(err, "Amount", "custom prices cannot carry a fixed amount")
		}
		if p.MinimumAmount != nil && p.MaximumAmount != nil && *p.MaximumAmount <= *p.MinimumAmount {
			err = AddFieldError(err, "MaximumAmount", "maximum must be greater than minimum")
		}
		if p.PresetAmount != nil && p.MinimumAmount != nil && p.MaximumAmount != nil &&
			(*p.PresetAmount < *p.MinimumAmount || *p.PresetAmount > *p.MaximumAmount) {
			err = AddFieldError(err, "PresetAmount", "preset must be within minimum and maximum")
		}
	}

	if p.Type == PriceTypeOneTime && p.RecurringInterval != "" {
		err = AddFieldError(err, "RecurringInterval", "one-time prices cannot have an interval")
	}

	if ve, ok := err.(*ValidationError); ok {
		ve.Op = op
		return ve
	}
	return err
}

// =============================================================================
// DISCOUNT DOMAIN TYPES
// =============================================================================

// DiscountType selects how a discount reduces the price.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountDuration controls how long a discount applies to a subscription.
type DiscountDuration string

const (
	DiscountDurationOnce      DiscountDuration = "once"
	DiscountDurationForever   DiscountDuration = "forever"
	DiscountDurationRepeating DiscountDuration = "repeating"
)

// =============================================================================
// CHECKOUT DOMAIN TYPES
// =============================================================================

// CheckoutStatus is the lifecycle state of a local checkout record.
type CheckoutStatus string

const (
	CheckoutStatusOpen      CheckoutStatus = "open"
	CheckoutStatusSucceeded CheckoutStatus = "succeeded"
	CheckoutStatusExpired   CheckoutStatus = "expired"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)
