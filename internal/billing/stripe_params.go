package billing

import (
	"github.com/stripe/stripe-go/v83"
)

// =============================================================================
// Request builders
// =============================================================================

func stripePriceParams(params CreatePriceParams) *stripe.PriceParams {
	sp := &stripe.PriceParams{
		Product:  stripe.String(params.ProductID),
		Currency: stripe.String(params.Currency),
	}

	if params.CustomUnitAmount != nil {
		sp.CustomUnitAmount = &stripe.PriceCustomUnitAmountParams{
			Enabled: stripe.Bool(true),
			Minimum: stripe.Int64(params.CustomUnitAmount.Minimum),
			Maximum: stripe.Int64(params.CustomUnitAmount.Maximum),
			Preset:  stripe.Int64(params.CustomUnitAmount.Preset),
		}
	} else if params.UnitAmount != nil {
		sp.UnitAmount = stripe.Int64(*params.UnitAmount)
	}

	if params.RecurringInterval != "" {
		sp.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(params.RecurringInterval),
		}
	}

	addMetadata(sp, params.Metadata)
	return sp
}

func stripeCouponParams(params CreateCouponParams) *stripe.CouponParams {
	sp := &stripe.CouponParams{
		Name:             stripe.String(params.Name),
		PercentOff:       params.PercentOff,
		AmountOff:        params.AmountOff,
		DurationInMonths: params.DurationInMonths,
		MaxRedemptions:   params.MaxRedemptions,
	}
	if params.Currency != "" && params.AmountOff != nil {
		sp.Currency = stripe.String(params.Currency)
	}
	if params.Duration != "" {
		sp.Duration = stripe.String(params.Duration)
	}
	if params.RedeemBy != nil {
		sp.RedeemBy = stripe.Int64(params.RedeemBy.Unix())
	}
	if len(params.ProductIDs) > 0 {
		sp.AppliesTo = &stripe.CouponAppliesToParams{
			Products: stripe.StringSlice(params.ProductIDs),
		}
	}
	addMetadata(sp, params.Metadata)
	return sp
}

// stripeAccountParams builds an express account with manual payouts. Accounts
// outside the US accept the recipient service agreement, which only allows
// transfers.
func stripeAccountParams(params CreateAccountParams) *stripe.AccountParams {
	sp := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval: stripe.String("manual"),
				},
			},
		},
	}
	if params.Email != "" {
		sp.Email = stripe.String(params.Email)
	}
	if params.Country != "" {
		sp.Country = stripe.String(params.Country)
		if params.Country != "US" {
			sp.TOSAcceptance = &stripe.AccountTOSAcceptanceParams{
				ServiceAgreement: stripe.String("recipient"),
			}
		}
	}
	addMetadata(sp, params.Metadata)
	return sp
}

func stripeSubscriptionParams(params CreateSubscriptionParams) *stripe.SubscriptionParams {
	sp := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(params.PriceID)},
		},
		DaysUntilDue: params.DaysUntilDue,
	}
	if params.CollectionMethod != "" {
		sp.CollectionMethod = stripe.String(params.CollectionMethod)
	}
	if params.Currency != "" {
		sp.Currency = stripe.String(params.Currency)
	}
	if params.AutomaticTax {
		sp.AutomaticTax = &stripe.SubscriptionAutomaticTaxParams{Enabled: stripe.Bool(true)}
	}
	if params.CouponID != "" {
		sp.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	addMetadata(sp, params.Metadata)
	sp.AddExpand("latest_invoice")
	return sp
}

func stripeUpdateSubscriptionParams(params UpdateSubscriptionParams) *stripe.SubscriptionParams {
	sp := &stripe.SubscriptionParams{
		DaysUntilDue:      params.DaysUntilDue,
		CancelAtPeriodEnd: params.CancelAtPeriodEnd,
	}
	for _, item := range params.Items {
		ip := &stripe.SubscriptionItemsParams{}
		if item.ID != "" {
			ip.ID = stripe.String(item.ID)
		}
		if item.PriceID != "" {
			ip.Price = stripe.String(item.PriceID)
		}
		if item.Quantity > 0 {
			ip.Quantity = stripe.Int64(item.Quantity)
		}
		sp.Items = append(sp.Items, ip)
	}
	if params.CollectionMethod != "" {
		sp.CollectionMethod = stripe.String(params.CollectionMethod)
	}
	if params.DefaultPaymentMethod != "" {
		sp.DefaultPaymentMethod = stripe.String(params.DefaultPaymentMethod)
	}
	if params.PaymentBehavior != "" {
		sp.PaymentBehavior = stripe.String(params.PaymentBehavior)
	}
	if params.AutomaticTax != nil {
		sp.AutomaticTax = &stripe.SubscriptionAutomaticTaxParams{Enabled: params.AutomaticTax}
	}
	if params.CouponID != "" {
		sp.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	addMetadata(sp, params.Metadata)
	sp.AddExpand("latest_invoice")
	return sp
}

func stripeInvoiceParams(params CreateInvoiceParams) *stripe.InvoiceParams {
	sp := &stripe.InvoiceParams{
		Customer:     stripe.String(params.CustomerID),
		DaysUntilDue: params.DaysUntilDue,
		AutoAdvance:  stripe.Bool(false),
	}
	if params.CollectionMethod != "" {
		sp.CollectionMethod = stripe.String(params.CollectionMethod)
	}
	if params.Currency != "" {
		sp.Currency = stripe.String(params.Currency)
	}
	if params.AutomaticTax {
		sp.AutomaticTax = &stripe.InvoiceAutomaticTaxParams{Enabled: stripe.Bool(true)}
	}
	if params.CouponID != "" {
		sp.Discounts = []*stripe.InvoiceDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	addMetadata(sp, params.Metadata)
	return sp
}

// =============================================================================
// Response mappers
// =============================================================================

func productFromStripe(p *stripe.Product) *Product {
	return &Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Metadata:    p.Metadata,
	}
}

// priceFromStripe maps a Stripe price. The SDK reports UnitAmount as zero for
// custom-amount prices, so UnitAmount is left nil whenever a custom amount
// configuration is present.
func priceFromStripe(p *stripe.Price) *Price {
	price := &Price{
		ID:       p.ID,
		Currency: string(p.Currency),
		Active:   p.Active,
	}
	if p.Product != nil {
		price.ProductID = p.Product.ID
	}
	if p.CustomUnitAmount != nil {
		price.CustomUnitAmount = &CustomUnitAmount{
			Minimum: p.CustomUnitAmount.Minimum,
			Maximum: p.CustomUnitAmount.Maximum,
			Preset:  p.CustomUnitAmount.Preset,
		}
	} else {
		amount := p.UnitAmount
		price.UnitAmount = &amount
	}
	if p.Recurring != nil {
		price.RecurringInterval = string(p.Recurring.Interval)
	}
	return price
}

func customerFromStripe(c *stripe.Customer) *Customer {
	return &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Name:     c.Name,
		Metadata: c.Metadata,
	}
}

func checkoutSessionFromStripe(cs *stripe.CheckoutSession) *CheckoutSession {
	session := &CheckoutSession{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		CustomerEmail: cs.CustomerEmail,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
	if cs.Customer != nil {
		session.CustomerID = cs.Customer.ID
	}
	if cs.CustomerDetails != nil {
		if cs.CustomerDetails.Email != "" {
			session.CustomerEmail = cs.CustomerDetails.Email
		}
		session.CustomerName = cs.CustomerDetails.Name
	}
	if cs.Subscription != nil {
		session.SubscriptionID = cs.Subscription.ID
	}
	return session
}

// SubscriptionFromStripe maps a Stripe subscription, e.g. one decoded from a
// webhook event payload.
func SubscriptionFromStripe(sub *stripe.Subscription) *Subscription {
	return subscriptionFromStripe(sub)
}

func subscriptionFromStripe(sub *stripe.Subscription) *Subscription {
	s := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CollectionMethod:  string(sub.CollectionMethod),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			si := SubscriptionItem{ID: item.ID, Quantity: item.Quantity}
			if item.Price != nil {
				si.PriceID = item.Price.ID
			}
			s.Items = append(s.Items, si)
		}
	}
	// An unexpanded latest_invoice decodes with only its ID set.
	// Status is then empty and callers must not rely on it.
	if sub.LatestInvoice != nil && sub.LatestInvoice.ID != "" {
		s.LatestInvoice = invoiceFromStripe(sub.LatestInvoice)
	}
	return s
}

// CheckoutSessionFromStripe maps a Stripe checkout session, e.g. one decoded
// from a webhook event payload.
func CheckoutSessionFromStripe(cs *stripe.CheckoutSession) *CheckoutSession {
	return checkoutSessionFromStripe(cs)
}

func invoiceFromStripe(inv *stripe.Invoice) *Invoice {
	i := &Invoice{
		ID:               inv.ID,
		Status:           string(inv.Status),
		AmountDue:        inv.AmountDue,
		AmountPaid:       inv.AmountPaid,
		Currency:         string(inv.Currency),
		HostedInvoiceURL: inv.HostedInvoiceURL,
		Metadata:         inv.Metadata,
	}
	if inv.Customer != nil {
		i.CustomerID = inv.Customer.ID
	}
	return i
}
