package service

import (
	"context"
	"log/slog"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// Idempotency key suffixes of the out-of-band sub-steps.
const (
	keySuffixUpdateInvoice   = "_update_invoice"
	keySuffixFinalizeInvoice = "_finalize_invoice"
	keySuffixPayInvoice      = "_pay_invoice"
	keySuffixInvoice         = "_invoice"
	keySuffixInvoiceItem     = "_invoiceItem"
)

// subscriptionService implements SubscriptionService interface
type subscriptionService struct {
	deps      Deps
	customers CustomerService
	logger    *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(deps Deps, customers CustomerService) SubscriptionService {
	deps = deps.withDefaults()
	return &subscriptionService{
		deps:      deps,
		customers: customers,
		logger:    deps.Logger.With("service", "subscription"),
	}
}

func dueImmediately() *int64 {
	days := int64(0)
	return &days
}

func (s *subscriptionService) CreateOutOfBandSubscription(ctx context.Context, params CreateOutOfBandSubscriptionParams) (*OutOfBandResult, error) {
	const op = "subscription.create_out_of_band"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	// Step 1: Provider customer
	customerID, err := s.resolveCustomer(ctx, op, params.CustomerID, params.UserID)
	if err != nil {
		return nil, err
	}

	// Step 2: Subscription
	sub, err := s.deps.Provider.CreateSubscription(ctx, billing.CreateSubscriptionParams{
		CustomerID:       customerID,
		PriceID:          params.PriceID,
		CouponID:         params.CouponID,
		Currency:         params.Currency,
		CollectionMethod: billing.CollectionSendInvoice,
		DaysUntilDue:     dueImmediately(),
		AutomaticTax:     params.AutomaticTax,
		Metadata:         params.Metadata,
		IdempotencyKey:   params.IdempotencyKey,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "create_subscription", "Error creating subscription")
	}
	s.logger.Info("out-of-band subscription created",
		"subscription_id", sub.ID,
		"customer_id", customerID,
		"price_id", params.PriceID,
	)

	// Step 3: Latest invoice
	invoice, err := s.payLatestInvoice(ctx, op, sub, params.Metadata, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &OutOfBandResult{Subscription: sub, Invoice: invoice}, nil
}

func (s *subscriptionService) resolveCustomer(ctx context.Context, op, customerID string, userID pgtype.UUID) (string, error) {
	if customerID != "" {
		return customerID, nil
	}
	if !userID.Valid {
		return "", domain.NewValidationError(op, "CustomerID", "is required without a user")
	}
	customer, err := s.customers.GetOrCreateUserCustomer(ctx, userID)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (s *subscriptionService) payLatestInvoice(ctx context.Context, op string, sub *billing.Subscription, metadata map[string]string, key string) (*billing.Invoice, error) {
	if sub.LatestInvoice == nil || sub.LatestInvoice.ID == "" {
		s.logger.Error("subscription has no latest invoice", "subscription_id", sub.ID)
		return nil, domain.StepFailed(ErrMissingLatestInvoice, domain.EPROVIDER, op, "latest_invoice", "Missing latest invoice for subscription "+sub.ID)
	}
	return s.payOutOfBand(ctx, op, sub.LatestInvoice.ID, metadata, key)
}

func (s *subscriptionService) PayOutOfBandSubscriptionInvoice(ctx context.Context, params PayOutOfBandInvoiceParams) (*billing.Invoice, error) {
	const op = "subscription.pay_out_of_band_invoice"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}
	return s.payOutOfBand(ctx, op, params.InvoiceID, params.Metadata, params.IdempotencyKey)
}

// payOutOfBand runs update metadata → finalize → pay-if-open on an invoice.
func (s *subscriptionService) payOutOfBand(ctx context.Context, op, invoiceID string, metadata map[string]string, key string) (*billing.Invoice, error) {
	if _, err := s.deps.Provider.UpdateInvoice(ctx, invoiceID, billing.UpdateInvoiceParams{
		Metadata:       metadata,
		IdempotencyKey: suffixKey(key, keySuffixUpdateInvoice),
	}); err != nil {
		s.deps.Metrics.OutOfBandInvoice("failed")
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_invoice", "Error updating invoice")
	}

	finalized, err := s.deps.Provider.FinalizeInvoice(ctx, invoiceID, suffixKey(key, keySuffixFinalizeInvoice))
	if err != nil {
		s.deps.Metrics.OutOfBandInvoice("failed")
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "finalize_invoice", "Error finalizing invoice")
	}

	if domain.InvoiceStatus(finalized.Status) != domain.InvoiceStatusOpen {
		s.deps.Metrics.OutOfBandInvoice("skipped")
		s.logger.Info("finalized invoice not open, no payment recorded",
			"invoice_id", invoiceID,
			"status", finalized.Status,
		)
		return finalized, nil
	}

	paid, err := s.deps.Provider.PayInvoice(ctx, invoiceID, suffixKey(key, keySuffixPayInvoice))
	if err != nil {
		s.deps.Metrics.OutOfBandInvoice("failed")
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "pay_invoice", "Error paying invoice")
	}

	s.deps.Metrics.OutOfBandInvoice("paid")
	s.logger.Info("invoice paid out of band",
		"invoice_id", invoiceID,
		"customer_id", paid.CustomerID,
		"amount_paid", paid.AmountPaid,
	)
	s.deps.publish(ctx, s.logger, events.New(events.InvoicePaidOutOfBand, map[string]any{
		"invoice_id":  invoiceID,
		"customer_id": paid.CustomerID,
		"amount_paid": paid.AmountPaid,
		"currency":    paid.Currency,
	}))
	return paid, nil
}

func (s *subscriptionService) UpdateOutOfBandSubscription(ctx context.Context, params UpdateOutOfBandSubscriptionParams) (*OutOfBandResult, error) {
	const op = "subscription.update_out_of_band"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	current, err := s.getSubscription(ctx, op, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	items, err := PlanPriceMigration(current, params.OldPriceID, params.NewPriceID, params.AllowMultiItem)
	if err != nil {
		return nil, err
	}

	automaticTax := params.AutomaticTax
	sub, err := s.deps.Provider.UpdateSubscription(ctx, params.SubscriptionID, billing.UpdateSubscriptionParams{
		Items:            items,
		CollectionMethod: billing.CollectionSendInvoice,
		DaysUntilDue:     dueImmediately(),
		AutomaticTax:     &automaticTax,
		CouponID:         params.CouponID,
		Metadata:         params.Metadata,
		IdempotencyKey:   params.IdempotencyKey,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_subscription", "Error updating subscription")
	}
	s.logger.Info("out-of-band subscription updated",
		"subscription_id", sub.ID,
		"old_price_id", params.OldPriceID,
		"new_price_id", params.NewPriceID,
	)

	invoice, err := s.payLatestInvoice(ctx, op, sub, params.Metadata, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	s.deps.publish(ctx, s.logger, events.New(events.SubscriptionUpdated, map[string]any{
		"subscription_id": sub.ID,
		"old_price_id":    params.OldPriceID,
		"new_price_id":    params.NewPriceID,
		"invoice_id":      invoice.ID,
	}))
	return &OutOfBandResult{Subscription: sub, Invoice: invoice}, nil
}

func (s *subscriptionService) MigrateSubscriptionPrice(ctx context.Context, params MigrateSubscriptionPriceParams) (*billing.Subscription, error) {
	const op = "subscription.migrate_price"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	current, err := s.getSubscription(ctx, op, params.SubscriptionID)
	if err != nil {
		return nil, err
	}
	items, err := PlanPriceMigration(current, params.OldPriceID, params.NewPriceID, params.AllowMultiItem)
	if err != nil {
		return nil, err
	}

	behavior := billing.PaymentBehaviorAllowIncomplete
	if params.ErrorIfIncomplete {
		behavior = billing.PaymentBehaviorErrorIfIncomplete
	}

	sub, err := s.deps.Provider.UpdateSubscription(ctx, params.SubscriptionID, billing.UpdateSubscriptionParams{
		Items:           items,
		PaymentBehavior: behavior,
		IdempotencyKey:  params.IdempotencyKey,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_subscription", "Error migrating subscription price")
	}

	s.logger.Info("subscription price migrated",
		"subscription_id", sub.ID,
		"old_price_id", params.OldPriceID,
		"new_price_id", params.NewPriceID,
		"payment_behavior", behavior,
	)
	s.deps.publish(ctx, s.logger, events.New(events.SubscriptionPriceMigrated, map[string]any{
		"subscription_id": sub.ID,
		"old_price_id":    params.OldPriceID,
		"new_price_id":    params.NewPriceID,
	}))
	return sub, nil
}

func (s *subscriptionService) SetSubscriptionToChargeAutomatically(ctx context.Context, params ChargeAutomaticallyParams) (*billing.Subscription, error) {
	const op = "subscription.charge_automatically"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	sub, err := s.deps.Provider.UpdateSubscription(ctx, params.SubscriptionID, billing.UpdateSubscriptionParams{
		CollectionMethod:     billing.CollectionChargeAutomatically,
		DefaultPaymentMethod: params.PaymentMethodID,
		IdempotencyKey:       params.IdempotencyKey,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_subscription", "Error updating subscription")
	}

	s.logger.Info("subscription set to charge automatically", "subscription_id", sub.ID)
	s.deps.publish(ctx, s.logger, events.New(events.SubscriptionChargeAutomatic, map[string]any{
		"subscription_id":   sub.ID,
		"payment_method_id": params.PaymentMethodID,
	}))
	return sub, nil
}

func (s *subscriptionService) CreateOutOfBandInvoice(ctx context.Context, params CreateOutOfBandInvoiceParams) (*billing.Invoice, error) {
	const op = "subscription.create_out_of_band_invoice"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	customerID, err := s.resolveCustomer(ctx, op, params.CustomerID, params.UserID)
	if err != nil {
		return nil, err
	}

	// Step 1: Draft invoice
	invoice, err := s.deps.Provider.CreateInvoice(ctx, billing.CreateInvoiceParams{
		CustomerID:       customerID,
		Currency:         params.Currency,
		CouponID:         params.CouponID,
		CollectionMethod: billing.CollectionSendInvoice,
		DaysUntilDue:     dueImmediately(),
		AutomaticTax:     params.AutomaticTax,
		Metadata:         params.Metadata,
		IdempotencyKey:   suffixKey(params.IdempotencyKey, keySuffixInvoice),
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "create_invoice", "Error creating invoice")
	}

	// Step 2: Line item
	if err := s.deps.Provider.AddInvoiceItem(ctx, billing.AddInvoiceItemParams{
		CustomerID:     customerID,
		InvoiceID:      invoice.ID,
		PriceID:        params.PriceID,
		Quantity:       1,
		IdempotencyKey: suffixKey(params.IdempotencyKey, keySuffixInvoiceItem),
	}); err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "add_invoice_item", "Error adding invoice item")
	}

	// Steps 3 and 4: Finalize, pay if open
	finalized, err := s.deps.Provider.FinalizeInvoice(ctx, invoice.ID, suffixKey(params.IdempotencyKey, keySuffixFinalizeInvoice))
	if err != nil {
		s.deps.Metrics.OutOfBandInvoice("failed")
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "finalize_invoice", "Error finalizing invoice")
	}
	if domain.InvoiceStatus(finalized.Status) != domain.InvoiceStatusOpen {
		s.deps.Metrics.OutOfBandInvoice("skipped")
		return finalized, nil
	}

	paid, err := s.deps.Provider.PayInvoice(ctx, invoice.ID, suffixKey(params.IdempotencyKey, keySuffixPayInvoice))
	if err != nil {
		s.deps.Metrics.OutOfBandInvoice("failed")
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "pay_invoice", "Error paying invoice")
	}

	s.deps.Metrics.OutOfBandInvoice("paid")
	s.logger.Info("standalone invoice paid out of band",
		"invoice_id", paid.ID,
		"customer_id", customerID,
		"price_id", params.PriceID,
	)
	s.deps.publish(ctx, s.logger, events.New(events.InvoicePaidOutOfBand, map[string]any{
		"invoice_id":  paid.ID,
		"customer_id": customerID,
		"amount_paid": paid.AmountPaid,
		"currency":    paid.Currency,
	}))
	return paid, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	const op = "subscription.cancel"

	if subscriptionID == "" {
		return nil, domain.NewValidationError(op, "SubscriptionID", "is required")
	}

	cancel := true
	sub, err := s.deps.Provider.UpdateSubscription(ctx, subscriptionID, billing.UpdateSubscriptionParams{
		CancelAtPeriodEnd: &cancel,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_subscription", "Error canceling subscription")
	}

	s.logger.Info("subscription set to cancel at period end", "subscription_id", sub.ID)
	return sub, nil
}

func (s *subscriptionService) ReconcileSubscription(ctx context.Context, sub *billing.Subscription) (*domain.Subscription, error) {
	const op = "subscription.reconcile"

	if sub == nil || sub.ID == "" {
		return nil, domain.NewValidationError(op, "SubscriptionID", "is required")
	}

	var priceID string
	if len(sub.Items) > 0 {
		priceID = sub.Items[0].PriceID
	}

	row, err := s.deps.Repo.UpsertSubscription(ctx, repository.UpsertSubscriptionParams{
		ProviderSubscriptionID: sub.ID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderPriceID:        postgres.Text(priceID),
		Status:                 sub.Status,
		CollectionMethod:       sub.CollectionMethod,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record subscription")
	}

	s.logger.Info("subscription reconciled",
		"subscription_id", sub.ID,
		"status", sub.Status,
		"collection_method", sub.CollectionMethod,
	)
	return subscriptionFromRow(row), nil
}

func (s *subscriptionService) getSubscription(ctx context.Context, op, subscriptionID string) (*billing.Subscription, error) {
	sub, err := s.deps.Provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "get_subscription", "Error retrieving subscription")
	}
	return sub, nil
}
