package billing

import (
	"context"
	"time"
)

// Provider defines the interface for the payment provider whose objects are
// mirrored locally. Implementations convert SDK types into the
// provider-neutral types of this package.
//
// Mutating calls accept an IdempotencyKey; when set, repeating the call with
// the same key has a single effect at the provider.
type Provider interface {
	// Catalog

	// CreateProduct creates a provider product mirroring a local product.
	CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error)

	// UpdateProduct changes the name or description of a provider product.
	UpdateProduct(ctx context.Context, productID string, params UpdateProductParams) (*Product, error)

	// SetProductActive archives or restores a provider product.
	SetProductActive(ctx context.Context, productID string, active bool) (*Product, error)

	// CreatePrice creates a provider price and returns the provider's
	// authoritative view of it.
	CreatePrice(ctx context.Context, params CreatePriceParams) (*Price, error)

	// SetPriceActive archives or restores a provider price.
	SetPriceActive(ctx context.Context, priceID string, active bool) (*Price, error)

	// Discounts

	// CreateCoupon creates a provider coupon.
	CreateCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error)

	// DeleteCoupon deletes a provider coupon.
	DeleteCoupon(ctx context.Context, couponID string) error

	// Customers and connected accounts

	// CreateCustomer creates a customer record in the billing provider.
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)

	// GetCustomer retrieves an existing customer.
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)

	// CreateAccount creates a connected account that receives store payouts.
	CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error)

	// CreateAccountLink returns an onboarding URL for a connected account.
	CreateAccountLink(ctx context.Context, params CreateAccountLinkParams) (*AccountLink, error)

	// Checkout

	// CreateCheckoutSession creates a hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSession retrieves a checkout session.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// Subscriptions and invoices

	// CreateSubscription creates a subscription. The latest invoice is expanded.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)

	// GetSubscription retrieves a subscription with its items.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// UpdateSubscription changes items, collection method or cancellation.
	// The latest invoice is expanded.
	UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*Subscription, error)

	// CreateInvoice creates a draft invoice for a customer.
	CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)

	// AddInvoiceItem attaches a price to a draft invoice.
	AddInvoiceItem(ctx context.Context, params AddInvoiceItemParams) error

	// UpdateInvoice replaces the metadata of a draft invoice.
	UpdateInvoice(ctx context.Context, invoiceID string, params UpdateInvoiceParams) (*Invoice, error)

	// FinalizeInvoice moves a draft invoice to its next status.
	FinalizeInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error)

	// PayInvoice marks an open invoice as paid outside the provider.
	PayInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error)

	// Webhooks

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// =============================================================================
// Catalog
// =============================================================================

// CreateProductParams contains parameters for creating a provider product.
type CreateProductParams struct {
	Name           string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// UpdateProductParams contains the product fields that can change.
// Nil fields are left unchanged.
type UpdateProductParams struct {
	Name        *string
	Description *string
}

// Product represents a provider product.
type Product struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Metadata    map[string]string
}

// CreatePriceParams contains parameters for creating a provider price.
// Exactly one of UnitAmount or CustomUnitAmount is set, except for free
// prices where UnitAmount points at zero.
type CreatePriceParams struct {
	ProductID         string
	Currency          string
	UnitAmount        *int64
	CustomUnitAmount  *CustomUnitAmount
	RecurringInterval string // empty for one-time prices
	Metadata          map[string]string
	IdempotencyKey    string
}

// CustomUnitAmount describes a payer-chosen amount range.
type CustomUnitAmount struct {
	Minimum int64
	Maximum int64
	Preset  int64
}

// Price represents a provider price as the provider reports it.
type Price struct {
	ID                string
	ProductID         string
	Currency          string
	UnitAmount        *int64 // nil when the price has a custom amount
	CustomUnitAmount  *CustomUnitAmount
	RecurringInterval string // empty for one-time prices
	Active            bool
}

// =============================================================================
// Discounts
// =============================================================================

// CreateCouponParams contains parameters for creating a provider coupon.
// Exactly one of PercentOff or AmountOff is set.
type CreateCouponParams struct {
	Name             string
	PercentOff       *float64
	AmountOff        *int64
	Currency         string // required with AmountOff
	Duration         string // once, forever, repeating
	DurationInMonths *int64
	MaxRedemptions   *int64
	RedeemBy         *time.Time
	ProductIDs       []string // provider product ids the coupon applies to
	Metadata         map[string]string
	IdempotencyKey   string
}

// Coupon represents a provider coupon.
type Coupon struct {
	ID             string
	Name           string
	Valid          bool
	TimesRedeemed  int64
	MaxRedemptions int64
}

// =============================================================================
// Customers and accounts
// =============================================================================

// CreateCustomerParams contains parameters for creating a customer.
type CreateCustomerParams struct {
	Email          string
	Name           string
	Metadata       map[string]string
	IdempotencyKey string
}

// Customer represents a billing provider customer.
type Customer struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]string
}

// CreateAccountParams contains parameters for creating a connected account.
type CreateAccountParams struct {
	Email          string
	Country        string
	Metadata       map[string]string
	IdempotencyKey string
}

// Account represents a connected account.
type Account struct {
	ID               string
	Country          string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// CreateAccountLinkParams contains parameters for an onboarding link.
type CreateAccountLinkParams struct {
	AccountID  string
	ReturnURL  string
	RefreshURL string
}

// AccountLink is a short-lived onboarding URL.
type AccountLink struct {
	URL       string
	ExpiresAt time.Time
}

// =============================================================================
// Checkout
// =============================================================================

// CreateCheckoutSessionParams contains parameters for a hosted checkout session.
// CustomerID and CustomerEmail identify the payer; CustomerID wins when both
// are set.
//
// UnitAmount pins the charged amount of a custom-amount price. The line item
// is then built inline from ProductID, Currency and RecurringInterval
// instead of PriceID, so the payer cannot choose a different amount.
type CreateCheckoutSessionParams struct {
	PriceID              string
	ProductID            string
	Currency             string
	RecurringInterval    string
	UnitAmount           *int64
	SuccessURL           string
	CancelURL            string
	CustomerID           string
	CustomerEmail        string
	CouponID             string
	IsSubscription       bool
	IsTaxApplicable      bool
	Metadata             map[string]string
	SubscriptionMetadata map[string]string
	IdempotencyKey       string
}

// CheckoutSession represents a provider checkout session.
type CheckoutSession struct {
	ID             string
	URL            string
	Status         string // open, complete, expired
	PaymentStatus  string
	CustomerID     string
	CustomerEmail  string
	CustomerName   string
	SubscriptionID string
	AmountTotal    int64
	Currency       string
	Metadata       map[string]string
}

// =============================================================================
// Subscriptions and invoices
// =============================================================================

// Collection methods.
const (
	CollectionSendInvoice         = "send_invoice"
	CollectionChargeAutomatically = "charge_automatically"
)

// Payment behaviors applied when subscription items change.
const (
	PaymentBehaviorErrorIfIncomplete = "error_if_incomplete"
	PaymentBehaviorAllowIncomplete   = "allow_incomplete"
)

// CreateSubscriptionParams contains parameters for creating a subscription.
type CreateSubscriptionParams struct {
	CustomerID       string
	PriceID          string
	CouponID         string
	Currency         string
	CollectionMethod string
	DaysUntilDue     *int64
	AutomaticTax     bool
	Metadata         map[string]string
	IdempotencyKey   string
}

// SubscriptionItemParams describes one item of a subscription update.
// An item with ID set keeps an existing item; an item with PriceID set adds one.
type SubscriptionItemParams struct {
	ID       string
	PriceID  string
	Quantity int64
}

// UpdateSubscriptionParams contains the subscription fields that can change.
// Zero-valued fields are left unchanged.
type UpdateSubscriptionParams struct {
	Items                []SubscriptionItemParams
	CollectionMethod     string
	DaysUntilDue         *int64
	AutomaticTax         *bool
	CouponID             string
	DefaultPaymentMethod string
	CancelAtPeriodEnd    *bool
	PaymentBehavior      string
	Metadata             map[string]string
	IdempotencyKey       string
}

// SubscriptionItem is one priced line of a subscription.
type SubscriptionItem struct {
	ID       string
	PriceID  string
	Quantity int64
}

// Subscription represents a provider subscription.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	CollectionMethod  string
	CancelAtPeriodEnd bool
	Items             []SubscriptionItem
	LatestInvoice     *Invoice // only the ID is set unless expanded
	Metadata          map[string]string
}

// CreateInvoiceParams contains parameters for a standalone invoice.
type CreateInvoiceParams struct {
	CustomerID       string
	Currency         string
	CouponID         string
	CollectionMethod string
	DaysUntilDue     *int64
	AutomaticTax     bool
	Metadata         map[string]string
	IdempotencyKey   string
}

// AddInvoiceItemParams attaches a price to a draft invoice.
type AddInvoiceItemParams struct {
	CustomerID     string
	InvoiceID      string
	PriceID        string
	Quantity       int64
	IdempotencyKey string
}

// UpdateInvoiceParams contains parameters for updating a draft invoice.
type UpdateInvoiceParams struct {
	Metadata       map[string]string
	IdempotencyKey string
}

// Invoice represents a provider invoice.
type Invoice struct {
	ID               string
	CustomerID       string
	Status           string
	AmountDue        int64
	AmountPaid       int64
	Currency         string
	HostedInvoiceURL string
	Metadata         map[string]string
}
