package api

import (
	"time"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
)

type storeView struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	URL               string    `json:"url,omitempty"`
	Description       string    `json:"description,omitempty"`
	Currency          string    `json:"currency"`
	Country           string    `json:"country"`
	AutomaticTax      bool      `json:"automatic_tax"`
	Active            bool      `json:"active"`
	ProviderAccountID string    `json:"provider_account_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newStoreView(s *domain.Store) storeView {
	return storeView{
		ID:                postgres.UUIDString(s.ID),
		Name:              s.Name,
		URL:               s.URL,
		Description:       s.Description,
		Currency:          s.Currency,
		Country:           s.Country,
		AutomaticTax:      s.AutomaticTax,
		Active:            s.Active,
		ProviderAccountID: s.ProviderAccountID,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

type priceView struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
	AmountType        string `json:"amount_type"`
	Currency          string `json:"currency"`
	Amount            *int64 `json:"amount,omitempty"`
	MinimumAmount     *int64 `json:"minimum_amount,omitempty"`
	MaximumAmount     *int64 `json:"maximum_amount,omitempty"`
	PresetAmount      *int64 `json:"preset_amount,omitempty"`
	ProviderPriceID   string `json:"provider_price_id"`
	IsArchived        bool   `json:"is_archived"`
}

func newPriceView(p *domain.ProductPrice) priceView {
	return priceView{
		ID:                postgres.UUIDString(p.ID),
		Type:              string(p.Type),
		RecurringInterval: string(p.RecurringInterval),
		AmountType:        string(p.AmountType),
		Currency:          p.Currency,
		Amount:            p.Amount,
		MinimumAmount:     p.MinimumAmount,
		MaximumAmount:     p.MaximumAmount,
		PresetAmount:      p.PresetAmount,
		ProviderPriceID:   p.ProviderPriceID,
		IsArchived:        p.IsArchived,
	}
}

type productView struct {
	ID                string      `json:"id"`
	StoreID           string      `json:"store_id"`
	Name              string      `json:"name"`
	Description       string      `json:"description,omitempty"`
	ProviderProductID string      `json:"provider_product_id"`
	IsArchived        bool        `json:"is_archived"`
	Prices            []priceView `json:"prices"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func newProductView(p *domain.Product) productView {
	prices := make([]priceView, len(p.Prices))
	for i := range p.Prices {
		prices[i] = newPriceView(&p.Prices[i])
	}
	return productView{
		ID:                postgres.UUIDString(p.ID),
		StoreID:           postgres.UUIDString(p.StoreID),
		Name:              p.Name,
		Description:       p.Description,
		ProviderProductID: p.ProviderProductID,
		IsArchived:        p.IsArchived,
		Prices:            prices,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type discountView struct {
	ID               string     `json:"id"`
	StoreID          string     `json:"store_id"`
	Name             string     `json:"name"`
	Code             string     `json:"code,omitempty"`
	Type             string     `json:"type"`
	BasisPoints      int32      `json:"basis_points,omitempty"`
	Amount           int64      `json:"amount,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	Duration         string     `json:"duration"`
	DurationInMonths *int32     `json:"duration_in_months,omitempty"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	MaxRedemptions   *int32     `json:"max_redemptions,omitempty"`
	ProductIDs       []string   `json:"product_ids"`
	ProviderCouponID string     `json:"provider_coupon_id"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newDiscountView(d *domain.Discount) discountView {
	productIDs := make([]string, len(d.ProductIDs))
	for i, id := range d.ProductIDs {
		productIDs[i] = postgres.UUIDString(id)
	}
	return discountView{
		ID:               postgres.UUIDString(d.ID),
		StoreID:          postgres.UUIDString(d.StoreID),
		Name:             d.Name,
		Code:             d.Code,
		Type:             string(d.Type),
		BasisPoints:      d.BasisPoints,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Duration:         string(d.Duration),
		DurationInMonths: d.DurationInMonths,
		StartsAt:         d.StartsAt,
		EndsAt:           d.EndsAt,
		MaxRedemptions:   d.MaxRedemptions,
		ProductIDs:       productIDs,
		ProviderCouponID: d.ProviderCouponID,
		CreatedAt:        d.CreatedAt,
	}
}

type checkoutView struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	ProductID      string    `json:"product_id"`
	ProductPriceID string    `json:"product_price_id"`
	DiscountID     string    `json:"discount_id,omitempty"`
	CustomerID     string    `json:"customer_id,omitempty"`
	CustomerEmail  string    `json:"customer_email,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	URL            string    `json:"url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newCheckoutView(c *domain.Checkout) checkoutView {
	return checkoutView{
		ID:             postgres.UUIDString(c.ID),
		StoreID:        postgres.UUIDString(c.StoreID),
		ProductID:      postgres.UUIDString(c.ProductID),
		ProductPriceID: postgres.UUIDString(c.ProductPriceID),
		DiscountID:     postgres.UUIDString(c.DiscountID),
		CustomerID:     postgres.UUIDString(c.CustomerID),
		CustomerEmail:  c.CustomerEmail,
		Amount:         c.Amount,
		Currency:       c.Currency,
		Status:         string(c.Status),
		URL:            c.ProviderSessionURL,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// listView wraps list responses so they can grow pagination later.
type listView[T any] struct {
	Items []T `json:"items"`
}

func mapList[S, T any](in []S, fn func(*S) T) listView[T] {
	out := make([]T, len(in))
	for i := range in {
		out[i] = fn(&in[i])
	}
	return listView[T]{Items: out}
}
