package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Checkout ties a purchase attempt to the provider checkout session serving it.
type Checkout struct {
	ID             pgtype.UUID
	StoreID        pgtype.UUID
	ProductID      pgtype.UUID
	ProductPriceID pgtype.UUID
	DiscountID     pgtype.UUID // invalid when no discount applies
	CustomerID     pgtype.UUID // set once the checkout completes
	UserID         pgtype.UUID
	CustomerEmail  string

	// Amount is the charged amount before discounts and tax.
	Amount   int64
	Currency string
	Status   CheckoutStatus

	ProviderSessionID  string
	ProviderSessionURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the checkout can no longer change status.
func (c *Checkout) IsTerminal() bool {
	return c.Status != CheckoutStatusOpen
}
