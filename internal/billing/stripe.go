package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/client"
	"github.com/stripe/stripe-go/v83/webhook"
)

// CallObserver is notified after every Stripe API call.
type CallObserver interface {
	ObserveProviderCall(operation string, duration time.Duration, err error)
}

// StripeProvider implements Provider using Stripe.
type StripeProvider struct {
	api      *client.API
	config   StripeConfig
	observer CallObserver
	logger   *slog.Logger
}

// NewStripeProvider creates a new Stripe billing provider.
// The SDK client is scoped to this provider; no package-level key is set.
func NewStripeProvider(config StripeConfig, observer CallObserver, logger *slog.Logger) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := config.withDefaults()
	maxRetries := int64(cfg.MaxRetries)
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: &maxRetries,
	})

	return &StripeProvider{
		api:      client.New(cfg.APIKey, backends),
		config:   cfg,
		observer: observer,
		logger:   logger.With("component", "stripe"),
	}, nil
}

// call times a Stripe request and converts its error.
func (s *StripeProvider) call(operation string, fn func() error) error {
	start := time.Now()
	err := convertStripeError(fn())
	if s.observer != nil {
		s.observer.ObserveProviderCall(operation, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("stripe call failed", "operation", operation, "error", err)
	}
	return err
}

// prepare attaches the request context and idempotency key to params.
func prepare(ctx context.Context, p *stripe.Params, idempotencyKey string) {
	p.Context = ctx
	if idempotencyKey != "" {
		p.SetIdempotencyKey(idempotencyKey)
	}
}

type metadataParams interface {
	AddMetadata(key string, value string)
}

func addMetadata(p metadataParams, metadata map[string]string) {
	for k, v := range metadata {
		p.AddMetadata(k, v)
	}
}

// =============================================================================
// Catalog
// =============================================================================

// CreateProduct creates a Stripe product.
func (s *StripeProvider) CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	sp := &stripe.ProductParams{Name: stripe.String(params.Name)}
	if params.Description != "" {
		sp.Description = stripe.String(params.Description)
	}
	addMetadata(sp, params.Metadata)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var p *stripe.Product
	err := s.call("product.create", func() (err error) {
		p, err = s.api.Products.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return productFromStripe(p), nil
}

// UpdateProduct updates a Stripe product's name or description.
func (s *StripeProvider) UpdateProduct(ctx context.Context, productID string, params UpdateProductParams) (*Product, error) {
	sp := &stripe.ProductParams{
		Name:        params.Name,
		Description: params.Description,
	}
	prepare(ctx, &sp.Params, "")

	var p *stripe.Product
	err := s.call("product.update", func() (err error) {
		p, err = s.api.Products.Update(productID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return productFromStripe(p), nil
}

// SetProductActive archives or restores a Stripe product.
func (s *StripeProvider) SetProductActive(ctx context.Context, productID string, active bool) (*Product, error) {
	sp := &stripe.ProductParams{Active: stripe.Bool(active)}
	prepare(ctx, &sp.Params, "")

	var p *stripe.Product
	err := s.call("product.set_active", func() (err error) {
		p, err = s.api.Products.Update(productID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return productFromStripe(p), nil
}

// CreatePrice creates a Stripe price and maps the response back.
func (s *StripeProvider) CreatePrice(ctx context.Context, params CreatePriceParams) (*Price, error) {
	sp := stripePriceParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var p *stripe.Price
	err := s.call("price.create", func() (err error) {
		p, err = s.api.Prices.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return priceFromStripe(p), nil
}

// SetPriceActive archives or restores a Stripe price.
func (s *StripeProvider) SetPriceActive(ctx context.Context, priceID string, active bool) (*Price, error) {
	sp := &stripe.PriceParams{Active: stripe.Bool(active)}
	prepare(ctx, &sp.Params, "")

	var p *stripe.Price
	err := s.call("price.set_active", func() (err error) {
		p, err = s.api.Prices.Update(priceID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return priceFromStripe(p), nil
}

// =============================================================================
// Discounts
// =============================================================================

// CreateCoupon creates a Stripe coupon.
func (s *StripeProvider) CreateCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error) {
	sp := stripeCouponParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var c *stripe.Coupon
	err := s.call("coupon.create", func() (err error) {
		c, err = s.api.Coupons.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Coupon{
		ID:             c.ID,
		Name:           c.Name,
		Valid:          c.Valid,
		TimesRedeemed:  c.TimesRedeemed,
		MaxRedemptions: c.MaxRedemptions,
	}, nil
}

// DeleteCoupon deletes a Stripe coupon.
func (s *StripeProvider) DeleteCoupon(ctx context.Context, couponID string) error {
	sp := &stripe.CouponParams{}
	prepare(ctx, &sp.Params, "")

	return s.call("coupon.delete", func() error {
		_, err := s.api.Coupons.Del(couponID, sp)
		return err
	})
}

// =============================================================================
// Customers and accounts
// =============================================================================

// CreateCustomer creates a Stripe customer.
func (s *StripeProvider) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	sp := &stripe.CustomerParams{Email: stripe.String(params.Email)}
	if params.Name != "" {
		sp.Name = stripe.String(params.Name)
	}
	addMetadata(sp, params.Metadata)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var c *stripe.Customer
	err := s.call("customer.create", func() (err error) {
		c, err = s.api.Customers.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return customerFromStripe(c), nil
}

// GetCustomer retrieves a Stripe customer. Deleted customers are not found.
func (s *StripeProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	sp := &stripe.CustomerParams{}
	prepare(ctx, &sp.Params, "")

	var c *stripe.Customer
	err := s.call("customer.get", func() (err error) {
		c, err = s.api.Customers.Get(customerID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, fmt.Errorf("%w: customer %s is deleted", ErrNotFound, customerID)
	}
	return customerFromStripe(c), nil
}

// CreateAccount creates an express connected account.
func (s *StripeProvider) CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error) {
	sp := stripeAccountParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var a *stripe.Account
	err := s.call("account.create", func() (err error) {
		a, err = s.api.Accounts.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:               a.ID,
		Country:          a.Country,
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}, nil
}

// CreateAccountLink creates an onboarding link for a connected account.
func (s *StripeProvider) CreateAccountLink(ctx context.Context, params CreateAccountLinkParams) (*AccountLink, error) {
	sp := &stripe.AccountLinkParams{
		Account:    stripe.String(params.AccountID),
		RefreshURL: stripe.String(params.RefreshURL),
		ReturnURL:  stripe.String(params.ReturnURL),
		Type:       stripe.String("account_onboarding"),
	}
	prepare(ctx, &sp.Params, "")

	var l *stripe.AccountLink
	err := s.call("account_link.create", func() (err error) {
		l, err = s.api.AccountLinks.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &AccountLink{URL: l.URL, ExpiresAt: time.Unix(l.ExpiresAt, 0)}, nil
}

// =============================================================================
// Checkout
// =============================================================================

// CreateCheckoutSession creates a Stripe Checkout session.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	sp := stripeCheckoutSessionParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var cs *stripe.CheckoutSession
	err := s.call("checkout_session.create", func() (err error) {
		cs, err = s.api.CheckoutSessions.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return checkoutSessionFromStripe(cs), nil
}

// GetCheckoutSession retrieves a Stripe Checkout session.
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	sp := &stripe.CheckoutSessionParams{}
	prepare(ctx, &sp.Params, "")

	var cs *stripe.CheckoutSession
	err := s.call("checkout_session.get", func() (err error) {
		cs, err = s.api.CheckoutSessions.Get(sessionID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return checkoutSessionFromStripe(cs), nil
}

// =============================================================================
// Subscriptions and invoices
// =============================================================================

// CreateSubscription creates a Stripe subscription with its latest invoice expanded.
func (s *StripeProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	sp := stripeSubscriptionParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var sub *stripe.Subscription
	err := s.call("subscription.create", func() (err error) {
		sub, err = s.api.Subscriptions.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subscriptionFromStripe(sub), nil
}

// GetSubscription retrieves a Stripe subscription.
func (s *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sp := &stripe.SubscriptionParams{}
	prepare(ctx, &sp.Params, "")

	var sub *stripe.Subscription
	err := s.call("subscription.get", func() (err error) {
		sub, err = s.api.Subscriptions.Get(subscriptionID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subscriptionFromStripe(sub), nil
}

// UpdateSubscription updates a Stripe subscription with its latest invoice expanded.
func (s *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*Subscription, error) {
	sp := stripeUpdateSubscriptionParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var sub *stripe.Subscription
	err := s.call("subscription.update", func() (err error) {
		sub, err = s.api.Subscriptions.Update(subscriptionID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subscriptionFromStripe(sub), nil
}

// CreateInvoice creates a draft Stripe invoice.
func (s *StripeProvider) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	sp := stripeInvoiceParams(params)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var inv *stripe.Invoice
	err := s.call("invoice.create", func() (err error) {
		inv, err = s.api.Invoices.New(sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoiceFromStripe(inv), nil
}

// AddInvoiceItem attaches a price to a draft invoice.
func (s *StripeProvider) AddInvoiceItem(ctx context.Context, params AddInvoiceItemParams) error {
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	sp := &stripe.InvoiceItemParams{
		Customer: stripe.String(params.CustomerID),
		Invoice:  stripe.String(params.InvoiceID),
		Pricing:  &stripe.InvoiceItemPricingParams{Price: stripe.String(params.PriceID)},
		Quantity: stripe.Int64(quantity),
	}
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	return s.call("invoice_item.create", func() error {
		_, err := s.api.InvoiceItems.New(sp)
		return err
	})
}

// UpdateInvoice replaces invoice metadata.
func (s *StripeProvider) UpdateInvoice(ctx context.Context, invoiceID string, params UpdateInvoiceParams) (*Invoice, error) {
	sp := &stripe.InvoiceParams{}
	addMetadata(sp, params.Metadata)
	prepare(ctx, &sp.Params, params.IdempotencyKey)

	var inv *stripe.Invoice
	err := s.call("invoice.update", func() (err error) {
		inv, err = s.api.Invoices.Update(invoiceID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoiceFromStripe(inv), nil
}

// FinalizeInvoice finalizes a draft Stripe invoice.
func (s *StripeProvider) FinalizeInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error) {
	sp := &stripe.InvoiceFinalizeInvoiceParams{}
	prepare(ctx, &sp.Params, idempotencyKey)

	var inv *stripe.Invoice
	err := s.call("invoice.finalize", func() (err error) {
		inv, err = s.api.Invoices.FinalizeInvoice(invoiceID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoiceFromStripe(inv), nil
}

// PayInvoice marks a Stripe invoice as paid out of band.
func (s *StripeProvider) PayInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error) {
	sp := &stripe.InvoicePayParams{PaidOutOfBand: stripe.Bool(true)}
	prepare(ctx, &sp.Params, idempotencyKey)

	var inv *stripe.Invoice
	err := s.call("invoice.pay", func() (err error) {
		inv, err = s.api.Invoices.Pay(invoiceID, sp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoiceFromStripe(inv), nil
}

// =============================================================================
// Webhooks
// =============================================================================

// VerifyWebhookSignature verifies a Stripe webhook signature. An empty secret
// falls back to the configured webhook secret.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if secret == "" {
		secret = s.config.WebhookSecret
	}
	_, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return nil
}

// convertStripeError converts Stripe SDK errors to StripeError.
func convertStripeError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &StripeError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			Type:          string(stripeErr.Type),
			DeclineCode:   string(stripeErr.DeclineCode),
			HTTPStatus:    stripeErr.HTTPStatusCode,
			RequestID:     stripeErr.RequestID,
			OriginalError: err,
		}
	}

	return &StripeError{Message: err.Error(), OriginalError: err}
}
