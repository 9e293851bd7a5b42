package service

import (
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// =============================================================================
// Repository row → domain mappers
// =============================================================================

func storeFromRow(s repository.Store) *domain.Store {
	return &domain.Store{
		ID:                s.ID,
		UserID:            s.UserID,
		Name:              s.Name,
		URL:               s.Url.String,
		Description:       s.Description.String,
		Currency:          s.Currency,
		Country:           s.Country,
		AutomaticTax:      s.AutomaticTax,
		Active:            s.Active,
		ProviderAccountID: s.ProviderAccountID.String,
		CreatedAt:         s.CreatedAt.Time,
		UpdatedAt:         s.UpdatedAt.Time,
	}
}

func productFromRow(p repository.Product, prices []repository.ProductPrice) *domain.Product {
	product := &domain.Product{
		ID:                p.ID,
		StoreID:           p.StoreID,
		Name:              p.Name,
		Description:       p.Description.String,
		ProviderProductID: p.ProviderProductID.String,
		IsArchived:        p.IsArchived,
		Prices:            make([]domain.ProductPrice, 0, len(prices)),
		CreatedAt:         p.CreatedAt.Time,
		UpdatedAt:         p.UpdatedAt.Time,
	}
	for _, price := range prices {
		product.Prices = append(product.Prices, *priceFromRow(price))
	}
	return product
}

func priceFromRow(p repository.ProductPrice) *domain.ProductPrice {
	return &domain.ProductPrice{
		ID:                p.ID,
		ProductID:         p.ProductID,
		Type:              domain.PriceType(p.Type),
		RecurringInterval: domain.RecurringInterval(p.RecurringInterval.String),
		AmountType:        domain.AmountType(p.AmountType),
		Currency:          p.PriceCurrency,
		Amount:            postgres.Int8Value(p.PriceAmount),
		MinimumAmount:     postgres.Int8Value(p.MinimumAmount),
		MaximumAmount:     postgres.Int8Value(p.MaximumAmount),
		PresetAmount:      postgres.Int8Value(p.PresetAmount),
		ProviderPriceID:   p.ProviderPriceID,
		IsArchived:        p.IsArchived,
		CreatedAt:         p.CreatedAt.Time,
	}
}

func discountFromRow(d repository.Discount, productIDs []pgtype.UUID) *domain.Discount {
	return &domain.Discount{
		ID:               d.ID,
		StoreID:          d.StoreID,
		Name:             d.Name,
		Code:             d.Code.String,
		Type:             domain.DiscountType(d.Type),
		BasisPoints:      d.BasisPoints.Int32,
		Amount:           d.Amount.Int64,
		Currency:         d.Currency.String,
		Duration:         domain.DiscountDuration(d.Duration),
		DurationInMonths: postgres.Int4Value(d.DurationInMonths),
		StartsAt:         postgres.TimeValue(d.StartsAt),
		EndsAt:           postgres.TimeValue(d.EndsAt),
		MaxRedemptions:   postgres.Int4Value(d.MaxRedemptions),
		ProductIDs:       productIDs,
		ProviderCouponID: d.ProviderCouponID,
		CreatedAt:        d.CreatedAt.Time,
	}
}

func redemptionFromRow(r repository.DiscountRedemption) *domain.DiscountRedemption {
	return &domain.DiscountRedemption{
		ID:         r.ID,
		DiscountID: r.DiscountID,
		CheckoutID: r.CheckoutID,
		RedeemedAt: r.RedeemedAt.Time,
	}
}

func customerFromRow(c repository.Customer) *domain.Customer {
	return &domain.Customer{
		ID:                 c.ID,
		StoreID:            c.StoreID,
		UserID:             c.UserID,
		Email:              c.Email,
		Name:               c.Name.String,
		ProviderCustomerID: c.ProviderCustomerID.String,
		CreatedAt:          c.CreatedAt.Time,
	}
}

func checkoutFromRow(c repository.Checkout) *domain.Checkout {
	return &domain.Checkout{
		ID:                 c.ID,
		StoreID:            c.StoreID,
		ProductID:          c.ProductID,
		ProductPriceID:     c.ProductPriceID,
		DiscountID:         c.DiscountID,
		CustomerID:         c.CustomerID,
		UserID:             c.UserID,
		CustomerEmail:      c.CustomerEmail.String,
		Amount:             c.Amount.Int64,
		Currency:           c.Currency,
		Status:             domain.CheckoutStatus(c.Status),
		ProviderSessionID:  c.ProviderSessionID.String,
		ProviderSessionURL: c.ProviderSessionUrl.String,
		CreatedAt:          c.CreatedAt.Time,
		UpdatedAt:          c.UpdatedAt.Time,
	}
}

func subscriptionFromRow(s repository.Subscription) *domain.Subscription {
	return &domain.Subscription{
		ID:                     s.ID,
		ProviderSubscriptionID: s.ProviderSubscriptionID,
		ProviderCustomerID:     s.ProviderCustomerID,
		ProviderPriceID:        s.ProviderPriceID.String,
		Status:                 s.Status,
		CollectionMethod:       s.CollectionMethod,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		UpdatedAt:              s.UpdatedAt.Time,
	}
}
