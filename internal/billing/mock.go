package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MockProvider is a mock billing provider for testing.
// Default behavior simulates Stripe in memory; set a XxxFunc field to
// override a single call.
type MockProvider struct {
	CreateProductFunc         func(ctx context.Context, params CreateProductParams) (*Product, error)
	UpdateProductFunc         func(ctx context.Context, productID string, params UpdateProductParams) (*Product, error)
	SetProductActiveFunc      func(ctx context.Context, productID string, active bool) (*Product, error)
	CreatePriceFunc           func(ctx context.Context, params CreatePriceParams) (*Price, error)
	SetPriceActiveFunc        func(ctx context.Context, priceID string, active bool) (*Price, error)
	CreateCouponFunc          func(ctx context.Context, params CreateCouponParams) (*Coupon, error)
	DeleteCouponFunc          func(ctx context.Context, couponID string) error
	CreateCustomerFunc        func(ctx context.Context, params CreateCustomerParams) (*Customer, error)
	GetCustomerFunc           func(ctx context.Context, customerID string) (*Customer, error)
	CreateAccountFunc         func(ctx context.Context, params CreateAccountParams) (*Account, error)
	CreateAccountLinkFunc     func(ctx context.Context, params CreateAccountLinkParams) (*AccountLink, error)
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)
	GetCheckoutSessionFunc    func(ctx context.Context, sessionID string) (*CheckoutSession, error)
	CreateSubscriptionFunc    func(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)
	GetSubscriptionFunc       func(ctx context.Context, subscriptionID string) (*Subscription, error)
	UpdateSubscriptionFunc    func(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*Subscription, error)
	CreateInvoiceFunc         func(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)
	AddInvoiceItemFunc        func(ctx context.Context, params AddInvoiceItemParams) error
	UpdateInvoiceFunc         func(ctx context.Context, invoiceID string, params UpdateInvoiceParams) (*Invoice, error)
	FinalizeInvoiceFunc       func(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error)
	PayInvoiceFunc            func(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	Products      map[string]*Product
	Prices        map[string]*Price
	Coupons       map[string]*Coupon
	Customers     map[string]*Customer
	Sessions      map[string]*CheckoutSession
	Subscriptions map[string]*Subscription
	Invoices      map[string]*Invoice

	// CallLog tracks method calls for test assertions
	CallLog []string

	// IdempotencyKeys records every non-empty key in call order
	IdempotencyKeys []string

	// EnforceIdempotency makes keyed create calls behave like Stripe: a
	// repeated key with the same params replays the first successful
	// result, with different params it fails with ErrIdempotencyConflict.
	EnforceIdempotency bool

	keyed map[string]keyedCall
	seq   int
}

type keyedCall struct {
	params []byte
	result any
}

// runKeyed runs call under the idempotency rules of key.
func runKeyed[R any](m *MockProvider, key string, params any, call func() (*R, error)) (*R, error) {
	if !m.EnforceIdempotency || key == "" {
		return call()
	}

	fingerprint, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	if prev, ok := m.keyed[key]; ok {
		if !bytes.Equal(prev.params, fingerprint) {
			return nil, ErrIdempotencyConflict
		}
		if r, ok := prev.result.(*R); ok {
			return r, nil
		}
	}

	r, err := call()
	entry := keyedCall{params: fingerprint}
	if err == nil {
		entry.result = r
	}
	if m.keyed == nil {
		m.keyed = make(map[string]keyedCall)
	}
	m.keyed[key] = entry
	return r, err
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Products:      make(map[string]*Product),
		Prices:        make(map[string]*Price),
		Coupons:       make(map[string]*Coupon),
		Customers:     make(map[string]*Customer),
		Sessions:      make(map[string]*CheckoutSession),
		Subscriptions: make(map[string]*Subscription),
		Invoices:      make(map[string]*Invoice),
		CallLog:       []string{},
	}
}

func (m *MockProvider) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_mock_%d", prefix, m.seq)
}

func (m *MockProvider) record(call string, idempotencyKey string) {
	m.CallLog = append(m.CallLog, call)
	if idempotencyKey != "" {
		m.IdempotencyKeys = append(m.IdempotencyKeys, idempotencyKey)
	}
}

// Calls returns the method names in CallLog, without arguments.
func (m *MockProvider) Calls() []string {
	names := make([]string, 0, len(m.CallLog))
	for _, c := range m.CallLog {
		name, _, _ := strings.Cut(c, "(")
		names = append(names, name)
	}
	return names
}

// CreateProduct creates a mock product.
func (m *MockProvider) CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	m.record(fmt.Sprintf("CreateProduct(%s)", params.Name), params.IdempotencyKey)
	return runKeyed(m, params.IdempotencyKey, params, func() (*Product, error) {
		return m.createProduct(ctx, params)
	})
}

func (m *MockProvider) createProduct(ctx context.Context, params CreateProductParams) (*Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, params)
	}

	p := &Product{
		ID:          m.nextID("prod"),
		Name:        params.Name,
		Description: params.Description,
		Active:      true,
		Metadata:    params.Metadata,
	}
	m.Products[p.ID] = p
	return p, nil
}

// UpdateProduct updates a mock product.
func (m *MockProvider) UpdateProduct(ctx context.Context, productID string, params UpdateProductParams) (*Product, error) {
	m.record(fmt.Sprintf("UpdateProduct(%s)", productID), "")
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, productID, params)
	}

	p, ok := m.Products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	return p, nil
}

// SetProductActive archives or restores a mock product.
func (m *MockProvider) SetProductActive(ctx context.Context, productID string, active bool) (*Product, error) {
	m.record(fmt.Sprintf("SetProductActive(%s, %t)", productID, active), "")
	if m.SetProductActiveFunc != nil {
		return m.SetProductActiveFunc(ctx, productID, active)
	}

	p, ok := m.Products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	p.Active = active
	return p, nil
}

// CreatePrice creates a mock price echoing the requested terms.
func (m *MockProvider) CreatePrice(ctx context.Context, params CreatePriceParams) (*Price, error) {
	m.record(fmt.Sprintf("CreatePrice(%s)", params.ProductID), params.IdempotencyKey)
	return runKeyed(m, params.IdempotencyKey, params, func() (*Price, error) {
		return m.createPrice(ctx, params)
	})
}

func (m *MockProvider) createPrice(ctx context.Context, params CreatePriceParams) (*Price, error) {
	if m.CreatePriceFunc != nil {
		return m.CreatePriceFunc(ctx, params)
	}

	p := &Price{
		ID:                m.nextID("price"),
		ProductID:         params.ProductID,
		Currency:          params.Currency,
		RecurringInterval: params.RecurringInterval,
		Active:            true,
	}
	if params.CustomUnitAmount != nil {
		c := *params.CustomUnitAmount
		p.CustomUnitAmount = &c
	} else if params.UnitAmount != nil {
		amount := *params.UnitAmount
		p.UnitAmount = &amount
	}
	m.Prices[p.ID] = p
	return p, nil
}

// SetPriceActive archives or restores a mock price.
func (m *MockProvider) SetPriceActive(ctx context.Context, priceID string, active bool) (*Price, error) {
	m.record(fmt.Sprintf("SetPriceActive(%s, %t)", priceID, active), "")
	if m.SetPriceActiveFunc != nil {
		return m.SetPriceActiveFunc(ctx, priceID, active)
	}

	p, ok := m.Prices[priceID]
	if !ok {
		return nil, ErrNotFound
	}
	p.Active = active
	return p, nil
}

// CreateCoupon creates a mock coupon.
func (m *MockProvider) CreateCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error) {
	m.record(fmt.Sprintf("CreateCoupon(%s)", params.Name), params.IdempotencyKey)
	return runKeyed(m, params.IdempotencyKey, params, func() (*Coupon, error) {
		return m.createCoupon(ctx, params)
	})
}

func (m *MockProvider) createCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error) {
	if m.CreateCouponFunc != nil {
		return m.CreateCouponFunc(ctx, params)
	}

	c := &Coupon{ID: m.nextID("coupon"), Name: params.Name, Valid: true}
	if params.MaxRedemptions != nil {
		c.MaxRedemptions = *params.MaxRedemptions
	}
	m.Coupons[c.ID] = c
	return c, nil
}

// DeleteCoupon deletes a mock coupon.
func (m *MockProvider) DeleteCoupon(ctx context.Context, couponID string) error {
	m.record(fmt.Sprintf("DeleteCoupon(%s)", couponID), "")
	if m.DeleteCouponFunc != nil {
		return m.DeleteCouponFunc(ctx, couponID)
	}

	if _, ok := m.Coupons[couponID]; !ok {
		return ErrNotFound
	}
	delete(m.Coupons, couponID)
	return nil
}

// CreateCustomer creates a mock customer.
func (m *MockProvider) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	m.record(fmt.Sprintf("CreateCustomer(%s)", params.Email), params.IdempotencyKey)
	return runKeyed(m, params.IdempotencyKey, params, func() (*Customer, error) {
		return m.createCustomer(ctx, params)
	})
}

func (m *MockProvider) createCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, params)
	}

	c := &Customer{
		ID:       m.nextID("cus"),
		Email:    params.Email,
		Name:     params.Name,
		Metadata: params.Metadata,
	}
	m.Customers[c.ID] = c
	return c, nil
}

// GetCustomer retrieves a mock customer.
func (m *MockProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	m.record(fmt.Sprintf("GetCustomer(%s)", customerID), "")
	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, customerID)
	}

	c, ok := m.Customers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// CreateAccount creates a mock connected account.
func (m *MockProvider) CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error) {
	m.record(fmt.Sprintf("CreateAccount(%s)", params.Country), params.IdempotencyKey)
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, params)
	}
	return &Account{ID: m.nextID("acct"), Country: params.Country}, nil
}

// CreateAccountLink creates a mock onboarding link.
func (m *MockProvider) CreateAccountLink(ctx context.Context, params CreateAccountLinkParams) (*AccountLink, error) {
	m.record(fmt.Sprintf("CreateAccountLink(%s)", params.AccountID), "")
	if m.CreateAccountLinkFunc != nil {
		return m.CreateAccountLinkFunc(ctx, params)
	}
	return &AccountLink{
		URL:       "https://connect.stripe.test/setup/" + params.AccountID,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

// CreateCheckoutSession creates a mock checkout session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("CreateCheckoutSession(%s)", params.PriceID), params.IdempotencyKey)
	return runKeyed(m, params.IdempotencyKey, params, func() (*CheckoutSession, error) {
		return m.createCheckoutSession(ctx, params)
	})
}

func (m *MockProvider) createCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	id := m.nextID("cs")
	cs := &CheckoutSession{
		ID:            id,
		URL:           "https://checkout.stripe.test/" + id,
		Status:        "open",
		CustomerID:    params.CustomerID,
		CustomerEmail: params.CustomerEmail,
		Currency:      params.Currency,
		Metadata:      params.Metadata,
	}
	if params.UnitAmount != nil {
		cs.AmountTotal = *params.UnitAmount
	} else if p, ok := m.Prices[params.PriceID]; ok && p.UnitAmount != nil {
		cs.AmountTotal = *p.UnitAmount
	}
	m.Sessions[cs.ID] = cs
	return cs, nil
}

// GetCheckoutSession retrieves a mock checkout session.
func (m *MockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("GetCheckoutSession(%s)", sessionID), "")
	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, sessionID)
	}

	cs, ok := m.Sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cs, nil
}

// CreateSubscription creates a mock subscription with a draft latest invoice.
func (m *MockProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	m.record(fmt.Sprintf("CreateSubscription(%s, %s)", params.CustomerID, params.PriceID), params.IdempotencyKey)
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, params)
	}

	inv := &Invoice{ID: m.nextID("in"), CustomerID: params.CustomerID, Status: "draft"}
	m.Invoices[inv.ID] = inv

	sub := &Subscription{
		ID:               m.nextID("sub"),
		CustomerID:       params.CustomerID,
		Status:           "active",
		CollectionMethod: params.CollectionMethod,
		Items:            []SubscriptionItem{{ID: m.nextID("si"), PriceID: params.PriceID, Quantity: 1}},
		LatestInvoice:    inv,
		Metadata:         params.Metadata,
	}
	m.Subscriptions[sub.ID] = sub
	return sub, nil
}

// GetSubscription retrieves a mock subscription.
func (m *MockProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	m.record(fmt.Sprintf("GetSubscription(%s)", subscriptionID), "")
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, subscriptionID)
	}

	sub, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sub, nil
}

// UpdateSubscription applies an update to a mock subscription. Items with an
// ID are kept, items with a price are added, and every other item is dropped.
func (m *MockProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*Subscription, error) {
	m.record(fmt.Sprintf("UpdateSubscription(%s)", subscriptionID), params.IdempotencyKey)
	if m.UpdateSubscriptionFunc != nil {
		return m.UpdateSubscriptionFunc(ctx, subscriptionID, params)
	}

	sub, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, ErrNotFound
	}

	if len(params.Items) > 0 {
		existing := make(map[string]SubscriptionItem, len(sub.Items))
		for _, item := range sub.Items {
			existing[item.ID] = item
		}
		items := make([]SubscriptionItem, 0, len(params.Items))
		for _, p := range params.Items {
			if p.ID != "" {
				if item, ok := existing[p.ID]; ok {
					items = append(items, item)
				}
				continue
			}
			items = append(items, SubscriptionItem{ID: m.nextID("si"), PriceID: p.PriceID, Quantity: p.Quantity})
		}
		sub.Items = items
	}
	if params.CollectionMethod != "" {
		sub.CollectionMethod = params.CollectionMethod
	}
	if params.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *params.CancelAtPeriodEnd
	}
	return sub, nil
}

// CreateInvoice creates a mock draft invoice.
func (m *MockProvider) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	m.record(fmt.Sprintf("CreateInvoice(%s)", params.CustomerID), params.IdempotencyKey)
	if m.CreateInvoiceFunc != nil {
		return m.CreateInvoiceFunc(ctx, params)
	}

	inv := &Invoice{ID: m.nextID("in"), CustomerID: params.CustomerID, Status: "draft", Metadata: params.Metadata}
	m.Invoices[inv.ID] = inv
	return inv, nil
}

// AddInvoiceItem records a mock invoice item.
func (m *MockProvider) AddInvoiceItem(ctx context.Context, params AddInvoiceItemParams) error {
	m.record(fmt.Sprintf("AddInvoiceItem(%s, %s)", params.InvoiceID, params.PriceID), params.IdempotencyKey)
	if m.AddInvoiceItemFunc != nil {
		return m.AddInvoiceItemFunc(ctx, params)
	}
	if _, ok := m.Invoices[params.InvoiceID]; !ok {
		return ErrNotFound
	}
	return nil
}

// UpdateInvoice updates mock invoice metadata.
func (m *MockProvider) UpdateInvoice(ctx context.Context, invoiceID string, params UpdateInvoiceParams) (*Invoice, error) {
	m.record(fmt.Sprintf("UpdateInvoice(%s)", invoiceID), params.IdempotencyKey)
	if m.UpdateInvoiceFunc != nil {
		return m.UpdateInvoiceFunc(ctx, invoiceID, params)
	}

	inv, ok := m.Invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	inv.Metadata = params.Metadata
	return inv, nil
}

// FinalizeInvoice moves a mock invoice from draft to open.
func (m *MockProvider) FinalizeInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error) {
	m.record(fmt.Sprintf("FinalizeInvoice(%s)", invoiceID), idempotencyKey)
	if m.FinalizeInvoiceFunc != nil {
		return m.FinalizeInvoiceFunc(ctx, invoiceID, idempotencyKey)
	}

	inv, ok := m.Invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	if inv.Status == "draft" {
		inv.Status = "open"
	}
	return inv, nil
}

// PayInvoice marks a mock invoice paid.
func (m *MockProvider) PayInvoice(ctx context.Context, invoiceID string, idempotencyKey string) (*Invoice, error) {
	m.record(fmt.Sprintf("PayInvoice(%s)", invoiceID), idempotencyKey)
	if m.PayInvoiceFunc != nil {
		return m.PayInvoiceFunc(ctx, invoiceID, idempotencyKey)
	}

	inv, ok := m.Invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	inv.Status = "paid"
	inv.AmountPaid = inv.AmountDue
	return inv, nil
}

// VerifyWebhookSignature verifies a mock webhook signature.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}

	// Default mock behavior: always verify successfully
	return nil
}

// Ensure MockProvider implements Provider interface
var _ Provider = (*MockProvider)(nil)

// Ensure StripeProvider implements Provider interface
var _ Provider = (*StripeProvider)(nil)
