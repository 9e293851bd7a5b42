package service

import (
	"context"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
)

// SubscriptionService orchestrates provider subscriptions and invoices that
// are settled outside the provider ("out of band").
//
// Out-of-band invoices move through one linear sequence per call:
//
//	created → metadata updated → finalized → paid out of band | left open
//
// A step is never retried within a call. Re-invoking a call with the same
// idempotency key is safe: every provider sub-step derives its own key from
// the caller's key by appending a fixed suffix.
type SubscriptionService interface {
	// CreateOutOfBandSubscription creates a send_invoice subscription with a
	// single price and drives its latest invoice through
	// PayOutOfBandSubscriptionInvoice.
	//
	// Flow:
	//  1. Resolve the provider customer (directly or through the user)
	//  2. Create the subscription, due immediately, with its latest invoice
	//  3. Pay the latest invoice out of band
	//
	// Returns ErrMissingLatestInvoice if the provider returns no latest invoice.
	CreateOutOfBandSubscription(ctx context.Context, params CreateOutOfBandSubscriptionParams) (*OutOfBandResult, error)

	// PayOutOfBandSubscriptionInvoice updates the invoice metadata,
	// finalizes the invoice, and marks it paid out of band only if the
	// finalized invoice is open. An invoice in any other status is returned
	// as finalized; that is not an error.
	PayOutOfBandSubscriptionInvoice(ctx context.Context, params PayOutOfBandInvoiceParams) (*billing.Invoice, error)

	// UpdateOutOfBandSubscription moves a subscription to send_invoice
	// billing with the items planned by PlanPriceMigration, then pays its
	// latest invoice out of band.
	UpdateOutOfBandSubscription(ctx context.Context, params UpdateOutOfBandSubscriptionParams) (*OutOfBandResult, error)

	// MigrateSubscriptionPrice replaces subscription items as planned by
	// PlanPriceMigration. ErrorIfIncomplete makes the provider reject the
	// change when the resulting payment cannot complete.
	MigrateSubscriptionPrice(ctx context.Context, params MigrateSubscriptionPriceParams) (*billing.Subscription, error)

	// SetSubscriptionToChargeAutomatically switches a subscription away from
	// invoice billing, optionally pinning a default payment method.
	SetSubscriptionToChargeAutomatically(ctx context.Context, params ChargeAutomaticallyParams) (*billing.Subscription, error)

	// CreateOutOfBandInvoice bills one price on a standalone invoice and
	// pays it out of band.
	//
	// Flow:
	//  1. Create a draft invoice
	//  2. Add the price at quantity 1
	//  3. Finalize
	//  4. Pay out of band if open
	CreateOutOfBandInvoice(ctx context.Context, params CreateOutOfBandInvoiceParams) (*billing.Invoice, error)

	// CancelSubscription cancels a subscription at the end of its period.
	CancelSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error)

	// ReconcileSubscription records the provider's view of a subscription
	// locally. Called from webhooks; safe to repeat.
	ReconcileSubscription(ctx context.Context, sub *billing.Subscription) (*domain.Subscription, error)
}

// CreateOutOfBandSubscriptionParams contains parameters for creating an
// out-of-band subscription.
type CreateOutOfBandSubscriptionParams struct {
	// CustomerID is the provider customer. When empty, the customer of
	// UserID is resolved (and created if needed).
	CustomerID string
	UserID     pgtype.UUID

	// PriceID is the provider price billed at quantity 1.
	PriceID  string `validate:"required"`
	Currency string `validate:"required,len=3,lowercase"`

	// CouponID is an optional provider coupon.
	CouponID     string
	AutomaticTax bool

	// Metadata is set on the subscription and on its latest invoice.
	Metadata map[string]string

	IdempotencyKey string
}

// PayOutOfBandInvoiceParams contains parameters for paying an invoice out of band.
type PayOutOfBandInvoiceParams struct {
	InvoiceID      string `validate:"required"`
	Metadata       map[string]string
	IdempotencyKey string
}

// UpdateOutOfBandSubscriptionParams contains parameters for updating an
// out-of-band subscription.
type UpdateOutOfBandSubscriptionParams struct {
	SubscriptionID string `validate:"required"`
	OldPriceID     string `validate:"required"`
	NewPriceID     string `validate:"required"`

	CouponID     string
	AutomaticTax bool
	Metadata     map[string]string

	// AllowMultiItem lifts the single-item precondition.
	AllowMultiItem bool

	IdempotencyKey string
}

// MigrateSubscriptionPriceParams contains parameters for a price migration.
type MigrateSubscriptionPriceParams struct {
	SubscriptionID string `validate:"required"`
	OldPriceID     string `validate:"required"`
	NewPriceID     string `validate:"required"`

	// ErrorIfIncomplete selects error_if_incomplete over allow_incomplete.
	ErrorIfIncomplete bool

	// AllowMultiItem lifts the single-item precondition.
	AllowMultiItem bool

	IdempotencyKey string
}

// ChargeAutomaticallyParams contains parameters for switching a subscription
// to automatic charging.
type ChargeAutomaticallyParams struct {
	SubscriptionID string `validate:"required"`

	// PaymentMethodID optionally becomes the subscription's default.
	PaymentMethodID string

	IdempotencyKey string
}

// CreateOutOfBandInvoiceParams contains parameters for a standalone
// out-of-band invoice.
type CreateOutOfBandInvoiceParams struct {
	// CustomerID is the provider customer. When empty, the customer of
	// UserID is resolved (and created if needed).
	CustomerID string
	UserID     pgtype.UUID

	PriceID      string `validate:"required"`
	Currency     string `validate:"required,len=3,lowercase"`
	CouponID     string
	AutomaticTax bool
	Metadata     map[string]string

	IdempotencyKey string
}

// OutOfBandResult is a subscription with the invoice that settled it.
type OutOfBandResult struct {
	Subscription *billing.Subscription
	Invoice      *billing.Invoice
}

// PlanPriceMigration computes the item set of a price migration.
//
// An item on oldPriceID is kept by item id. Every other item is replaced by
// newPriceID at quantity 1. Unless allowMultiItem is set, the subscription
// must have exactly one item.
func PlanPriceMigration(sub *billing.Subscription, oldPriceID, newPriceID string, allowMultiItem bool) ([]billing.SubscriptionItemParams, error) {
	if !allowMultiItem && len(sub.Items) != 1 {
		return nil, ErrMultiItemSubscription
	}

	items := make([]billing.SubscriptionItemParams, 0, len(sub.Items))
	for _, item := range sub.Items {
		if item.PriceID == oldPriceID {
			items = append(items, billing.SubscriptionItemParams{ID: item.ID})
			continue
		}
		items = append(items, billing.SubscriptionItemParams{PriceID: newPriceID, Quantity: 1})
	}
	return items, nil
}
