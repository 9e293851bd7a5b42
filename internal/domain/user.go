package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// =============================================================================
// USER, STORE AND CUSTOMER DOMAIN TYPES
// =============================================================================

// User is an authenticated account. Authentication itself happens upstream;
// this package only carries what billing needs.
type User struct {
	ID    pgtype.UUID
	Email string
	Name  string

	// ProviderCustomerID caches the provider customer created for the user.
	// Set once by the customer bridge.
	ProviderCustomerID string

	CreatedAt time.Time
}

// Store is a merchant's shop. Each owner has at most one active store.
type Store struct {
	ID           pgtype.UUID
	UserID       pgtype.UUID
	Name         string
	URL          string
	Description  string
	Currency     string
	Country      string
	AutomaticTax bool
	Active       bool

	// ProviderAccountID is the connected account receiving store payouts.
	ProviderAccountID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Customer is a purchaser of a store, optionally linked to a user.
type Customer struct {
	ID                 pgtype.UUID
	StoreID            pgtype.UUID
	UserID             pgtype.UUID // invalid when not linked
	Email              string
	Name               string
	ProviderCustomerID string
	CreatedAt          time.Time
}

// IsLinked reports whether the customer is linked to a user.
func (c *Customer) IsLinked() bool {
	return c.UserID.Valid
}
