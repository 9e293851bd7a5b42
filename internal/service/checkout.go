package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/email"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// errCheckoutSettled reports that another request moved the checkout out
// of open between our read and our write.
var errCheckoutSettled = errors.New("checkout already settled")

// CheckoutService creates checkouts backed by provider checkout sessions
// and settles them from provider events.
type CheckoutService interface {
	// Create validates a purchase and opens a provider checkout session.
	//
	// Flow:
	//  1. Check the product and price belong to the store and are live
	//  2. Resolve the charged amount (custom prices are bounds-checked)
	//  3. Resolve a redeemable discount scoped to the product
	//  4. Resolve the provider customer when a user is given
	//  5. Create the provider checkout session
	//  6. Record the checkout as open
	Create(ctx context.Context, storeID pgtype.UUID, params CreateCheckoutParams) (*domain.Checkout, error)

	// Complete marks the checkout of a completed session as succeeded,
	// records the buyer as a store customer, and records the discount
	// redemption. Completing a settled checkout returns it unchanged.
	Complete(ctx context.Context, sessionID string) (*domain.Checkout, error)

	// Expire marks the checkout of an expired session as expired.
	// Expiring a settled checkout returns it unchanged.
	Expire(ctx context.Context, sessionID string) (*domain.Checkout, error)

	Get(ctx context.Context, checkoutID pgtype.UUID) (*domain.Checkout, error)

	// List returns a store's checkouts, newest first. An invalid productID
	// lists every product.
	List(ctx context.Context, storeID, productID pgtype.UUID) ([]domain.Checkout, error)

	// ReconcileStale settles checkouts that are still open locally after
	// staleAfter, for sessions whose webhook never arrived. Each session is
	// read from the provider: complete sessions are completed, expired ones
	// expired, open ones left alone. A failing checkout is logged and
	// counted and does not stop the sweep. At most limit checkouts are
	// checked, oldest first.
	ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (*ReconcileResult, error)
}

// DefaultReconcileBatch bounds one ReconcileStale sweep.
const DefaultReconcileBatch = 100

// ReconcileResult counts the outcomes of one ReconcileStale sweep.
type ReconcileResult struct {
	Checked   int
	Completed int
	Expired   int
	Open      int
	Failed    int
}

// CreateCheckoutParams contains parameters for creating a checkout.
// At most one of DiscountID or DiscountCode is used; DiscountID wins.
type CreateCheckoutParams struct {
	ProductID      pgtype.UUID
	ProductPriceID pgtype.UUID

	DiscountID   pgtype.UUID
	DiscountCode string `validate:"omitempty,max=64"`

	// Amount is the payer's chosen amount for custom prices.
	Amount *int64 `validate:"omitempty,gte=0"`

	UserID        pgtype.UUID
	CustomerEmail string `validate:"omitempty,email"`

	SuccessURL string `validate:"required,url"`
	CancelURL  string `validate:"omitempty,url"`
	Metadata   map[string]string

	// IdempotencyKey, when set, derives the checkout id so a retry sends the
	// same session request, and returns the checkout a previous attempt
	// already recorded.
	IdempotencyKey string
}

type checkoutService struct {
	deps      Deps
	discounts DiscountService
	customers CustomerService
	logger    *slog.Logger
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(deps Deps, discounts DiscountService, customers CustomerService) CheckoutService {
	deps = deps.withDefaults()
	return &checkoutService{
		deps:      deps,
		discounts: discounts,
		customers: customers,
		logger:    deps.Logger.With("service", "checkout"),
	}
}

func (s *checkoutService) Create(ctx context.Context, storeID pgtype.UUID, params CreateCheckoutParams) (*domain.Checkout, error) {
	const op = "checkout.create"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}
	if !params.ProductID.Valid {
		return nil, domain.NewValidationError(op, "ProductID", "is required")
	}
	if !params.ProductPriceID.Valid {
		return nil, domain.NewValidationError(op, "ProductPriceID", "is required")
	}

	storeRow, err := s.deps.Repo.GetStoreByID(ctx, storeID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.Internal(err, op, "failed to get store")
	}
	store := storeFromRow(storeRow)

	// A key that already produced a checkout replays it.
	checkoutID := newLocalID("checkout", storeID, params.IdempotencyKey)
	if params.IdempotencyKey != "" {
		existing, err := s.deps.Repo.GetCheckoutByID(ctx, checkoutID)
		switch {
		case err == nil:
			s.logger.Info("checkout create replayed", "checkout_id", postgres.UUIDString(checkoutID))
			return checkoutFromRow(existing), nil
		case !postgres.IsNoRows(err):
			return nil, domain.Internal(err, op, "failed to get checkout")
		}
	}

	// Step 1: Product and price
	product, price, err := s.resolvePrice(ctx, op, storeID, params.ProductID, params.ProductPriceID)
	if err != nil {
		return nil, err
	}

	// Step 2: Amount
	amount, err := price.ChargeAmount(op, params.Amount)
	if err != nil {
		return nil, err
	}

	// Step 3: Discount
	discount, err := s.resolveDiscount(ctx, op, params.DiscountID, params.DiscountCode, product.ID)
	if err != nil {
		return nil, err
	}

	// Step 4: Customer
	var providerCustomerID string
	if params.UserID.Valid {
		customer, err := s.customers.GetOrCreateUserCustomer(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		providerCustomerID = customer.ID
	}

	// Step 5: Provider session
	metadata := make(map[string]string, len(params.Metadata)+4)
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	metadata["checkout_id"] = postgres.UUIDString(checkoutID)
	metadata["store_id"] = postgres.UUIDString(storeID)
	metadata["product_id"] = postgres.UUIDString(product.ID)
	metadata["product_price_id"] = postgres.UUIDString(price.ID)

	sessionParams := billing.CreateCheckoutSessionParams{
		PriceID:         price.ProviderPriceID,
		SuccessURL:      params.SuccessURL,
		CancelURL:       params.CancelURL,
		CustomerID:      providerCustomerID,
		CustomerEmail:   params.CustomerEmail,
		IsSubscription:  price.IsRecurring(),
		IsTaxApplicable: store.AutomaticTax,
		Metadata:        metadata,
		IdempotencyKey:  suffixKey(params.IdempotencyKey, "_checkout_session"),
	}
	if price.IsRecurring() {
		sessionParams.SubscriptionMetadata = metadata
	}
	if discount != nil {
		sessionParams.CouponID = discount.ProviderCouponID
	}
	// The custom price itself lets the payer pick any amount in its bounds;
	// pin the amount validated above so both sides record the same charge.
	if price.AmountType == domain.AmountTypeCustom {
		sessionParams.ProductID = product.ProviderProductID
		sessionParams.Currency = price.Currency
		sessionParams.RecurringInterval = string(price.RecurringInterval)
		sessionParams.UnitAmount = &amount
	}

	session, err := s.deps.Provider.CreateCheckoutSession(ctx, sessionParams)
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "create_checkout_session", "Error creating checkout session")
	}

	// Step 6: Local record
	row := repository.CreateCheckoutParams{
		ID:                 checkoutID,
		StoreID:            storeID,
		ProductID:          product.ID,
		ProductPriceID:     price.ID,
		UserID:             params.UserID,
		CustomerEmail:      postgres.Text(params.CustomerEmail),
		Amount:             pgtype.Int8{Int64: amount, Valid: true},
		Currency:           price.Currency,
		Status:             string(domain.CheckoutStatusOpen),
		ProviderSessionID:  postgres.Text(session.ID),
		ProviderSessionUrl: postgres.Text(session.URL),
	}
	if discount != nil {
		row.DiscountID = discount.ID
	}
	created, err := s.deps.Repo.CreateCheckout(ctx, row)
	if err != nil {
		// The session expires on its own; completing it later finds no row.
		s.logger.Error("checkout session created without local checkout",
			"provider_session_id", session.ID,
			"checkout_id", postgres.UUIDString(checkoutID),
			"error", err,
		)
		s.deps.Metrics.Orphaned("checkout_session", 1)
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "insert_checkout", "Error creating checkout")
	}

	checkout := checkoutFromRow(created)
	mode := "payment"
	if price.IsRecurring() {
		mode = "subscription"
	}
	s.deps.Metrics.CheckoutCreated(mode)
	s.logger.Info("checkout created",
		"checkout_id", postgres.UUIDString(checkout.ID),
		"provider_session_id", checkout.ProviderSessionID,
		"mode", mode,
		"amount", amount,
	)
	s.deps.publish(ctx, s.logger, events.New(events.CheckoutCreated, map[string]any{
		"checkout_id":         postgres.UUIDString(checkout.ID),
		"provider_session_id": checkout.ProviderSessionID,
		"product_id":          postgres.UUIDString(checkout.ProductID),
		"amount":              checkout.Amount,
		"currency":            checkout.Currency,
	}).With("store_id", postgres.UUIDString(storeID)))

	return checkout, nil
}

// resolvePrice loads a product and one of its prices, both of which must be
// live and belong to the store.
func (s *checkoutService) resolvePrice(ctx context.Context, op string, storeID, productID, priceID pgtype.UUID) (*domain.Product, *domain.ProductPrice, error) {
	productRow, err := s.deps.Repo.GetProductByID(ctx, productID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, domain.Internal(err, op, "failed to get product")
	}
	if productRow.StoreID != storeID {
		s.logger.Debug("product outside store", "product_id", postgres.UUIDString(productID))
		return nil, nil, ErrProductNotFound
	}
	if productRow.IsArchived {
		return nil, nil, ErrProductArchived
	}
	if !productRow.ProviderProductID.Valid {
		return nil, nil, ErrProductNotSynced
	}

	priceRow, err := s.deps.Repo.GetProductPriceByID(ctx, priceID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil, ErrPriceNotFound
		}
		return nil, nil, domain.Internal(err, op, "failed to get price")
	}
	if priceRow.ProductID != productRow.ID {
		return nil, nil, ErrPriceNotFound
	}
	if priceRow.IsArchived {
		return nil, nil, ErrPriceArchived
	}

	return productFromRow(productRow, nil), priceFromRow(priceRow), nil
}

// resolveDiscount finds a redeemable discount scoped to the product. No id
// and no code means no discount.
func (s *checkoutService) resolveDiscount(ctx context.Context, op string, discountID pgtype.UUID, code string, productID pgtype.UUID) (*domain.Discount, error) {
	var discount *domain.Discount
	var err error
	switch {
	case discountID.Valid:
		discount, err = s.discounts.GetByIDAndProduct(ctx, discountID, productID)
	case code != "":
		discount, err = s.discounts.GetByCodeAndProduct(ctx, code, productID)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.discounts.IsRedeemable(ctx, discount)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("discount not redeemable", "discount_id", postgres.UUIDString(discount.ID))
		return nil, ErrDiscountNotRedeemable
	}
	return discount, nil
}

func (s *checkoutService) Complete(ctx context.Context, sessionID string) (*domain.Checkout, error) {
	const op = "checkout.complete"

	row, err := s.getBySession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if checkout := checkoutFromRow(row); checkout.IsTerminal() {
		s.logger.Debug("checkout already settled",
			"checkout_id", postgres.UUIDString(checkout.ID),
			"status", checkout.Status,
		)
		return checkout, nil
	}

	session, err := s.deps.Provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "get_checkout_session", "Error retrieving checkout session")
	}
	if session.Status != "complete" {
		return nil, domain.Invalid(op, "checkout session is not complete")
	}

	buyerEmail := session.CustomerEmail
	if buyerEmail == "" {
		buyerEmail = row.CustomerEmail.String
	}

	var redemption *domain.DiscountRedemption
	err = s.deps.Tx.RunInTx(ctx, postgres.TxOptions{Op: op}, func(ctx context.Context, q repository.Querier) error {
		var customerID pgtype.UUID
		if buyerEmail != "" {
			customer, err := q.UpsertCustomer(ctx, repository.UpsertCustomerParams{
				StoreID:            row.StoreID,
				UserID:             row.UserID,
				Email:              buyerEmail,
				Name:               postgres.Text(session.CustomerName),
				ProviderCustomerID: postgres.Text(session.CustomerID),
			})
			if err != nil {
				return domain.StepFailed(err, domain.EINTERNAL, op, "upsert_customer", "Error recording customer")
			}
			customerID = customer.ID
		}

		n, err := q.TransitionCheckoutStatus(ctx, repository.TransitionCheckoutStatusParams{
			Status:     string(domain.CheckoutStatusSucceeded),
			CustomerID: customerID,
			ID:         row.ID,
		})
		if err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "transition_checkout", "Error completing checkout")
		}
		if n == 0 {
			return errCheckoutSettled
		}

		if row.DiscountID.Valid {
			redemption, err = recordRedemption(ctx, q, row.DiscountID, row.ID)
			if err != nil {
				return domain.StepFailed(err, domain.EINTERNAL, op, "record_redemption", "Error completing checkout")
			}
		}
		return nil
	})
	if errors.Is(err, errCheckoutSettled) {
		return s.reload(ctx, op, row.ID)
	}
	if err != nil {
		return nil, err
	}

	checkout, err := s.reload(ctx, op, row.ID)
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.CheckoutFinished(string(domain.CheckoutStatusSucceeded))
	s.logger.Info("checkout completed",
		"checkout_id", postgres.UUIDString(checkout.ID),
		"provider_session_id", sessionID,
		"provider_customer_id", session.CustomerID,
	)
	storeID := postgres.UUIDString(checkout.StoreID)
	s.deps.publish(ctx, s.logger, events.New(events.CheckoutCompleted, map[string]any{
		"checkout_id":          postgres.UUIDString(checkout.ID),
		"provider_session_id":  sessionID,
		"provider_customer_id": session.CustomerID,
		"subscription_id":      session.SubscriptionID,
		"amount_total":         session.AmountTotal,
	}).With("store_id", storeID))

	s.notifyCompleted(ctx, checkout, row.ProductID, buyerEmail)

	if redemption != nil {
		s.deps.Metrics.DiscountRedeemed()
		s.deps.publish(ctx, s.logger, events.New(events.DiscountRedeemed, map[string]any{
			"discount_id": postgres.UUIDString(redemption.DiscountID),
			"checkout_id": postgres.UUIDString(checkout.ID),
		}).With("store_id", storeID))
	}
	return checkout, nil
}

func (s *checkoutService) Expire(ctx context.Context, sessionID string) (*domain.Checkout, error) {
	const op = "checkout.expire"

	row, err := s.getBySession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if checkout := checkoutFromRow(row); checkout.IsTerminal() {
		return checkout, nil
	}

	n, err := s.deps.Repo.TransitionCheckoutStatus(ctx, repository.TransitionCheckoutStatusParams{
		Status: string(domain.CheckoutStatusExpired),
		ID:     row.ID,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "transition_checkout", "Error expiring checkout")
	}

	checkout, err := s.reload(ctx, op, row.ID)
	if err != nil || n == 0 {
		return checkout, err
	}

	s.deps.Metrics.CheckoutFinished(string(domain.CheckoutStatusExpired))
	s.logger.Info("checkout expired",
		"checkout_id", postgres.UUIDString(checkout.ID),
		"provider_session_id", sessionID,
	)
	s.deps.publish(ctx, s.logger, events.New(events.CheckoutExpired, map[string]any{
		"checkout_id":         postgres.UUIDString(checkout.ID),
		"provider_session_id": sessionID,
	}).With("store_id", postgres.UUIDString(checkout.StoreID)))
	return checkout, nil
}

// mailTimeout bounds the emails sent after a checkout completes, which run
// inside the provider's webhook delivery.
const mailTimeout = 10 * time.Second

// notifyCompleted emails the buyer a receipt and the store owner a sale
// notice. Email is best-effort: failures are logged, never returned.
func (s *checkoutService) notifyCompleted(ctx context.Context, checkout *domain.Checkout, productID pgtype.UUID, buyerEmail string) {
	if s.deps.Mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()

	logger := s.logger.With("checkout_id", postgres.UUIDString(checkout.ID))
	store, err := s.deps.Repo.GetStoreByID(ctx, checkout.StoreID)
	if err != nil {
		logger.Warn("skipping checkout emails", "error", err)
		return
	}
	product, err := s.deps.Repo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Warn("skipping checkout emails", "error", err)
		return
	}
	now := s.deps.Now()

	if buyerEmail != "" {
		err := s.deps.Mailer.SendPurchaseReceipt(ctx, email.PurchaseReceiptEmail{
			To:          buyerEmail,
			StoreName:   store.Name,
			ProductName: product.Name,
			Amount:      checkout.Amount,
			Currency:    checkout.Currency,
			CheckoutID:  postgres.UUIDString(checkout.ID),
			PurchasedAt: now,
		})
		if err != nil {
			logger.Warn("failed to send purchase receipt", "error", err)
		}
	}

	owner, err := s.deps.Repo.GetUserByID(ctx, store.UserID)
	if err != nil {
		logger.Warn("failed to load store owner for sale notification", "error", err)
		return
	}
	err = s.deps.Mailer.SendSaleNotification(ctx, email.SaleNotificationEmail{
		To:            owner.Email,
		StoreName:     store.Name,
		ProductName:   product.Name,
		Amount:        checkout.Amount,
		Currency:      checkout.Currency,
		CustomerEmail: buyerEmail,
		CheckoutID:    postgres.UUIDString(checkout.ID),
		SoldAt:        now,
	})
	if err != nil {
		logger.Warn("failed to send sale notification", "error", err)
	}
}

func (s *checkoutService) getBySession(ctx context.Context, op, sessionID string) (repository.Checkout, error) {
	row, err := s.deps.Repo.GetCheckoutByProviderSessionID(ctx, postgres.Text(sessionID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return repository.Checkout{}, ErrCheckoutNotFound
		}
		return repository.Checkout{}, domain.Internal(err, op, "failed to get checkout")
	}
	return row, nil
}

func (s *checkoutService) reload(ctx context.Context, op string, checkoutID pgtype.UUID) (*domain.Checkout, error) {
	row, err := s.deps.Repo.GetCheckoutByID(ctx, checkoutID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrCheckoutNotFound
		}
		return nil, domain.Internal(err, op, "failed to get checkout")
	}
	return checkoutFromRow(row), nil
}

func (s *checkoutService) Get(ctx context.Context, checkoutID pgtype.UUID) (*domain.Checkout, error) {
	return s.reload(ctx, "checkout.get", checkoutID)
}

func (s *checkoutService) List(ctx context.Context, storeID, productID pgtype.UUID) ([]domain.Checkout, error) {
	rows, err := s.deps.Repo.ListCheckoutsByStoreID(ctx, repository.ListCheckoutsByStoreIDParams{
		StoreID:   storeID,
		ProductID: productID,
	})
	if err != nil {
		return nil, domain.Internal(err, "checkout.list", "failed to list checkouts")
	}

	checkouts := make([]domain.Checkout, 0, len(rows))
	for _, row := range rows {
		checkouts = append(checkouts, *checkoutFromRow(row))
	}
	return checkouts, nil
}

func (s *checkoutService) ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (*ReconcileResult, error) {
	const op = "checkout.reconcile_stale"

	if limit <= 0 {
		limit = DefaultReconcileBatch
	}
	cutoff := s.deps.Now().Add(-staleAfter)

	rows, err := s.deps.Repo.ListStaleOpenCheckouts(ctx, repository.ListStaleOpenCheckoutsParams{
		CreatedBefore: pgtype.Timestamptz{Time: cutoff, Valid: true},
		MaxRows:       int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list stale checkouts")
	}

	result := &ReconcileResult{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		outcome, err := s.reconcileOne(ctx, op, row)
		if err != nil {
			s.logger.Error("failed to reconcile checkout",
				"checkout_id", postgres.UUIDString(row.ID),
				"provider_session_id", row.ProviderSessionID.String,
				"error", err,
			)
			outcome = "failed"
		}
		switch outcome {
		case "completed":
			result.Completed++
		case "expired":
			result.Expired++
		case "open":
			result.Open++
		default:
			result.Failed++
		}
		s.deps.Metrics.CheckoutReconciled(outcome)
	}

	if result.Checked > 0 {
		s.logger.Info("stale checkouts reconciled",
			"checked", result.Checked,
			"completed", result.Completed,
			"expired", result.Expired,
			"open", result.Open,
			"failed", result.Failed,
		)
	}
	return result, nil
}

func (s *checkoutService) reconcileOne(ctx context.Context, op string, row repository.Checkout) (string, error) {
	sessionID := row.ProviderSessionID.String
	if sessionID == "" {
		return "", domain.Internal(nil, op, "checkout has no provider session")
	}

	session, err := s.deps.Provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return "", domain.StepFailed(err, domain.EPROVIDER, op, "get_checkout_session", "Error retrieving checkout session")
	}

	switch session.Status {
	case "complete":
		if _, err := s.Complete(ctx, sessionID); err != nil {
			return "", err
		}
		return "completed", nil
	case "expired":
		if _, err := s.Expire(ctx, sessionID); err != nil {
			return "", err
		}
		return "expired", nil
	default:
		return "open", nil
	}
}
