package billing

import (
	"fmt"

	"github.com/dukerupert/mercato/internal/domain"
)

// PriceParamsFromSpec translates a validated price specification into
// provider price-creation parameters for the given provider product.
func PriceParamsFromSpec(productID string, spec domain.PriceSpec) (CreatePriceParams, error) {
	params := CreatePriceParams{
		ProductID: productID,
		Currency:  spec.Currency,
	}

	switch spec.AmountType {
	case domain.AmountTypeFree:
		zero := int64(0)
		params.UnitAmount = &zero
	case domain.AmountTypeFixed:
		if spec.Amount == nil {
			return CreatePriceParams{}, fmt.Errorf("fixed price requires an amount")
		}
		amount := *spec.Amount
		params.UnitAmount = &amount
	case domain.AmountTypeCustom:
		if spec.MinimumAmount == nil || spec.MaximumAmount == nil || spec.PresetAmount == nil {
			return CreatePriceParams{}, fmt.Errorf("custom price requires minimum, maximum and preset amounts")
		}
		params.CustomUnitAmount = &CustomUnitAmount{
			Minimum: *spec.MinimumAmount,
			Maximum: *spec.MaximumAmount,
			Preset:  *spec.PresetAmount,
		}
	default:
		return CreatePriceParams{}, fmt.Errorf("unknown amount type %q", spec.AmountType)
	}

	switch spec.Type {
	case domain.PriceTypeOneTime:
	case domain.PriceTypeRecurring:
		if spec.RecurringInterval == "" {
			return CreatePriceParams{}, fmt.Errorf("recurring price requires an interval")
		}
		params.RecurringInterval = string(spec.RecurringInterval)
	default:
		return CreatePriceParams{}, fmt.Errorf("unknown price type %q", spec.Type)
	}

	return params, nil
}

// DeriveAmountType computes the amount type of a provider price.
// Zero unit amount is free, any other unit amount is fixed, and a custom
// amount configuration is custom. Anything else cannot be mapped.
func DeriveAmountType(p *Price) (domain.AmountType, error) {
	switch {
	case p.UnitAmount != nil && *p.UnitAmount == 0:
		return domain.AmountTypeFree, nil
	case p.UnitAmount != nil:
		return domain.AmountTypeFixed, nil
	case p.CustomUnitAmount != nil:
		return domain.AmountTypeCustom, nil
	default:
		return "", fmt.Errorf("%w: price %s", ErrUnmappablePrice, p.ID)
	}
}

// PriceType reports whether a provider price is recurring.
func (p *Price) PriceType() domain.PriceType {
	if p.RecurringInterval != "" {
		return domain.PriceTypeRecurring
	}
	return domain.PriceTypeOneTime
}
