package domain

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// InvoiceStatus mirrors the provider's invoice states the billing flows act on.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

// Subscription is the local record of a provider-owned subscription. Only
// what is needed to reconcile billing events is tracked.
type Subscription struct {
	ID                     pgtype.UUID
	ProviderSubscriptionID string
	ProviderCustomerID     string
	ProviderPriceID        string
	Status                 string
	CollectionMethod       string
	CancelAtPeriodEnd      bool
	UpdatedAt              time.Time
}

// SubscriptionStatusDeleted is recorded when the provider deletes a subscription.
const SubscriptionStatusDeleted = "canceled"
