package billing

import (
	"github.com/stripe/stripe-go/v83"
)

// stripeCheckoutSessionParams assembles a Checkout session request.
//
// The session always has a single line item at quantity 1: the price, or
// an inline price for the price's product when the amount is pinned.
// Automatic tax and tax id collection are driven by the same flag. A known
// customer gets name and address auto-update; otherwise the session collects
// a new customer by email.
func stripeCheckoutSessionParams(params CreateCheckoutSessionParams) *stripe.CheckoutSessionParams {
	sp := &stripe.CheckoutSessionParams{
		LineItems:  []*stripe.CheckoutSessionLineItemParams{checkoutLineItem(params)},
		SuccessURL: stripe.String(params.SuccessURL),
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(params.IsTaxApplicable),
		},
		TaxIDCollection: &stripe.CheckoutSessionTaxIDCollectionParams{
			Enabled: stripe.Bool(params.IsTaxApplicable),
		},
	}
	if params.CancelURL != "" {
		sp.CancelURL = stripe.String(params.CancelURL)
	}

	if params.IsSubscription {
		sp.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		sp.PaymentMethodCollection = stripe.String("if_required")
		if len(params.SubscriptionMetadata) > 0 {
			sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
				Metadata: params.SubscriptionMetadata,
			}
		}
	} else {
		sp.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		sp.InvoiceCreation = &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
			InvoiceData: &stripe.CheckoutSessionInvoiceCreationInvoiceDataParams{
				Metadata: params.Metadata,
			},
		}
	}

	switch {
	case params.CustomerID != "":
		sp.Customer = stripe.String(params.CustomerID)
		sp.CustomerUpdate = &stripe.CheckoutSessionCustomerUpdateParams{
			Name:    stripe.String("auto"),
			Address: stripe.String("auto"),
		}
	case params.CustomerEmail != "":
		sp.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	if params.CouponID != "" {
		sp.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}

	addMetadata(sp, params.Metadata)
	return sp
}

func checkoutLineItem(params CreateCheckoutSessionParams) *stripe.CheckoutSessionLineItemParams {
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if params.UnitAmount == nil {
		item.Price = stripe.String(params.PriceID)
		return item
	}

	item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(params.Currency),
		Product:    stripe.String(params.ProductID),
		UnitAmount: stripe.Int64(*params.UnitAmount),
	}
	if params.RecurringInterval != "" {
		item.PriceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(params.RecurringInterval),
		}
	}
	return item
}
