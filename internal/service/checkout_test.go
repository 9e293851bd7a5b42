package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/email"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutFixture is a store selling one synced product.
type checkoutFixture struct {
	env       *testEnv
	svc       CheckoutService
	discounts DiscountService
	user      repository.User
	store     repository.Store
	product   repository.Product
	price     repository.ProductPrice
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	product := env.repo.seedProduct(store.ID, "prod_widget")
	price := env.repo.seedPrice(repository.ProductPrice{
		ProductID:       product.ID,
		Type:            "one_time",
		AmountType:      "fixed",
		PriceAmount:     pgtype.Int8{Int64: 1000, Valid: true},
		PriceCurrency:   "usd",
		ProviderPriceID: "price_widget",
	})

	deps := env.deps()
	discounts := NewDiscountService(deps)
	return &checkoutFixture{
		env:       env,
		svc:       NewCheckoutService(deps, discounts, NewCustomerService(deps)),
		discounts: discounts,
		user:      user,
		store:     store,
		product:   product,
		price:     price,
	}
}

func (f *checkoutFixture) params() CreateCheckoutParams {
	return CreateCheckoutParams{
		ProductID:      f.product.ID,
		ProductPriceID: f.price.ID,
		SuccessURL:     "https://shop.test/success",
		CancelURL:      "https://shop.test/cancel",
	}
}

// captureSession records the params of every session created from now on.
func (f *checkoutFixture) captureSession() *billing.CreateCheckoutSessionParams {
	var got billing.CreateCheckoutSessionParams
	mock := f.env.provider
	mock.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
		got = params
		id := fmt.Sprintf("cs_test_%d", len(mock.Sessions)+1)
		cs := &billing.CheckoutSession{
			ID:       id,
			URL:      "https://checkout.stripe.test/" + id,
			Status:   "open",
			Metadata: params.Metadata,
		}
		mock.Sessions[id] = cs
		return cs, nil
	}
	return &got
}

// completeSession marks a provider session complete, as the hosted page would.
func (f *checkoutFixture) completeSession(sessionID, email string) {
	cs := f.env.provider.Sessions[sessionID]
	cs.Status = "complete"
	cs.PaymentStatus = "paid"
	cs.CustomerEmail = email
	cs.CustomerID = "cus_buyer"
	cs.AmountTotal = 1000
}

func TestCheckoutService_Create_OneTime(t *testing.T) {
	f := newCheckoutFixture(t)
	got := f.captureSession()

	params := f.params()
	params.CustomerEmail = "buyer@example.com"
	params.Metadata = map[string]string{"campaign": "spring"}
	params.IdempotencyKey = "checkout-1"

	checkout, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStatusOpen, checkout.Status)
	assert.Equal(t, int64(1000), checkout.Amount)
	assert.Equal(t, "usd", checkout.Currency)
	assert.NotEmpty(t, checkout.ProviderSessionURL)
	assert.False(t, checkout.DiscountID.Valid)

	assert.Equal(t, "price_widget", got.PriceID)
	assert.False(t, got.IsSubscription)
	assert.True(t, got.IsTaxApplicable)
	assert.Nil(t, got.SubscriptionMetadata)
	assert.Equal(t, "buyer@example.com", got.CustomerEmail)
	assert.Equal(t, "checkout-1_checkout_session", got.IdempotencyKey)
	assert.Equal(t, postgres.UUIDString(checkout.ID), got.Metadata["checkout_id"])
	assert.Equal(t, postgres.UUIDString(f.price.ID), got.Metadata["product_price_id"])
	assert.Equal(t, "spring", got.Metadata["campaign"])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.CheckoutsCreated.WithLabelValues("payment")))
	assert.Equal(t, []string{events.CheckoutCreated}, f.env.events.Types())
}

func TestCheckoutService_Create_SubscriptionWithTax(t *testing.T) {
	f := newCheckoutFixture(t)
	recurring := f.env.repo.seedPrice(repository.ProductPrice{
		ProductID:         f.product.ID,
		Type:              "recurring",
		RecurringInterval: postgres.Text("month"),
		AmountType:        "fixed",
		PriceAmount:       pgtype.Int8{Int64: 900, Valid: true},
		PriceCurrency:     "usd",
		ProviderPriceID:   "price_monthly",
		Position:          1,
	})
	got := f.captureSession()

	params := f.params()
	params.ProductPriceID = recurring.ID
	_, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.NoError(t, err)

	assert.True(t, got.IsSubscription)
	assert.True(t, got.IsTaxApplicable)
	assert.Equal(t, got.Metadata, got.SubscriptionMetadata)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.CheckoutsCreated.WithLabelValues("subscription")))
}

func TestCheckoutService_Create_TaxFollowsStore(t *testing.T) {
	f := newCheckoutFixture(t)
	s := f.env.repo.stores[f.store.ID.Bytes]
	s.AutomaticTax = false
	f.env.repo.stores[f.store.ID.Bytes] = s
	got := f.captureSession()

	_, err := f.svc.Create(context.Background(), f.store.ID, f.params())
	require.NoError(t, err)
	assert.False(t, got.IsTaxApplicable)
}

func TestCheckoutService_Create_CustomAmount(t *testing.T) {
	f := newCheckoutFixture(t)
	custom := f.env.repo.seedPrice(repository.ProductPrice{
		ProductID:       f.product.ID,
		Type:            "one_time",
		AmountType:      "custom",
		PriceCurrency:   "usd",
		MinimumAmount:   pgtype.Int8{Int64: 500, Valid: true},
		MaximumAmount:   pgtype.Int8{Int64: 5000, Valid: true},
		PresetAmount:    pgtype.Int8{Int64: 1500, Valid: true},
		ProviderPriceID: "price_custom",
		Position:        1,
	})

	tests := []struct {
		name      string
		amount    *int64
		want      int64
		wantError bool
	}{
		{name: "preset", want: 1500},
		{name: "within bounds", amount: int64Ptr(2000), want: 2000},
		{name: "below minimum", amount: int64Ptr(100), wantError: true},
		{name: "above maximum", amount: int64Ptr(9000), wantError: true},
	}

	got := f.captureSession()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := len(f.env.provider.CallLog)
			params := f.params()
			params.ProductPriceID = custom.ID
			params.Amount = tt.amount

			checkout, err := f.svc.Create(context.Background(), f.store.ID, params)
			if tt.wantError {
				require.Error(t, err)
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				assert.Contains(t, domain.GetValidationFields(err), "Amount")
				assert.Len(t, f.env.provider.CallLog, calls, "no session for an invalid amount")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, checkout.Amount)

			// The session charges exactly the validated amount.
			require.NotNil(t, got.UnitAmount)
			assert.Equal(t, tt.want, *got.UnitAmount)
			assert.Equal(t, "prod_widget", got.ProductID)
			assert.Equal(t, "usd", got.Currency)
		})
	}
}

func TestCheckoutService_Create_FixedPriceIsNotPinned(t *testing.T) {
	f := newCheckoutFixture(t)
	got := f.captureSession()

	_, err := f.svc.Create(context.Background(), f.store.ID, f.params())
	require.NoError(t, err)

	assert.Equal(t, "price_widget", got.PriceID)
	assert.Nil(t, got.UnitAmount)
}

func TestCheckoutService_Create_RetryWithSameKey(t *testing.T) {
	f := newCheckoutFixture(t)
	f.env.provider.EnforceIdempotency = true
	f.env.repo.fail["CreateCheckout"] = errors.New("connection reset")

	params := f.params()
	params.CustomerEmail = "buyer@example.com"
	params.IdempotencyKey = "checkout-retry"

	_, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.Error(t, err)
	assert.Equal(t, "insert_checkout", domain.ErrorStep(err))

	delete(f.env.repo.fail, "CreateCheckout")
	checkout, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.NoError(t, err, "a retry sends the same session request")
	assert.Len(t, f.env.provider.Sessions, 1, "the retry reuses the first session")

	calls := len(f.env.provider.CallLog)
	again, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.NoError(t, err)
	assert.Equal(t, checkout.ID, again.ID)
	assert.Equal(t, checkout.ProviderSessionID, again.ProviderSessionID)
	assert.Len(t, f.env.provider.CallLog, calls, "a finished checkout is replayed locally")
	assert.Len(t, f.env.repo.checkouts, 1)
}

func TestCheckoutService_Create_Discount(t *testing.T) {
	ctx := context.Background()

	t.Run("scoped code applies the coupon", func(t *testing.T) {
		f := newCheckoutFixture(t)
		discount := f.env.repo.seedDiscount(repository.Discount{
			StoreID:          f.store.ID,
			Name:             "Ten",
			Code:             postgres.Text("SAVE10"),
			ProviderCouponID: "coupon_save10",
		}, f.product.ID)
		got := f.captureSession()

		params := f.params()
		params.DiscountCode = "SAVE10"
		checkout, err := f.svc.Create(ctx, f.store.ID, params)
		require.NoError(t, err)

		assert.Equal(t, "coupon_save10", got.CouponID)
		assert.Equal(t, discount.ID, checkout.DiscountID)
	})

	t.Run("discount id wins over code", func(t *testing.T) {
		f := newCheckoutFixture(t)
		byID := f.env.repo.seedDiscount(repository.Discount{StoreID: f.store.ID, Name: "A", ProviderCouponID: "coupon_a"}, f.product.ID)
		f.env.repo.seedDiscount(repository.Discount{StoreID: f.store.ID, Name: "B", Code: postgres.Text("B"), ProviderCouponID: "coupon_b"}, f.product.ID)
		got := f.captureSession()

		params := f.params()
		params.DiscountID = byID.ID
		params.DiscountCode = "B"
		_, err := f.svc.Create(ctx, f.store.ID, params)
		require.NoError(t, err)
		assert.Equal(t, "coupon_a", got.CouponID)
	})

	t.Run("out of scope is not found", func(t *testing.T) {
		f := newCheckoutFixture(t)
		other := f.env.repo.seedProduct(f.store.ID, "prod_other")
		f.env.repo.seedDiscount(repository.Discount{
			StoreID:          f.store.ID,
			Name:             "Other",
			Code:             postgres.Text("OTHER"),
			ProviderCouponID: "coupon_other",
		}, other.ID)

		params := f.params()
		params.DiscountCode = "OTHER"
		_, err := f.svc.Create(ctx, f.store.ID, params)
		assert.ErrorIs(t, err, ErrDiscountNotFound)
		assert.Empty(t, f.env.provider.CallLog)
	})

	t.Run("exhausted discount", func(t *testing.T) {
		f := newCheckoutFixture(t)
		discount := f.env.repo.seedDiscount(repository.Discount{
			StoreID:          f.store.ID,
			Name:             "Once",
			Code:             postgres.Text("ONCE"),
			MaxRedemptions:   pgtype.Int4{Int32: 1, Valid: true},
			ProviderCouponID: "coupon_once",
		}, f.product.ID)
		f.env.repo.seedRedemptions(discount.ID, 1)

		params := f.params()
		params.DiscountCode = "ONCE"
		_, err := f.svc.Create(ctx, f.store.ID, params)
		assert.ErrorIs(t, err, ErrDiscountNotRedeemable)
		assert.Empty(t, f.env.provider.CallLog)
	})
}

func TestCheckoutService_Create_ProductChecks(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(f *checkoutFixture, params *CreateCheckoutParams)
		wantErr error
	}{
		{
			name: "archived product",
			mutate: func(f *checkoutFixture, params *CreateCheckoutParams) {
				p := f.env.repo.products[f.product.ID.Bytes]
				p.IsArchived = true
				f.env.repo.products[f.product.ID.Bytes] = p
			},
			wantErr: ErrProductArchived,
		},
		{
			name: "unsynced product",
			mutate: func(f *checkoutFixture, params *CreateCheckoutParams) {
				p := f.env.repo.products[f.product.ID.Bytes]
				p.ProviderProductID = pgtype.Text{}
				f.env.repo.products[f.product.ID.Bytes] = p
			},
			wantErr: ErrProductNotSynced,
		},
		{
			name: "archived price",
			mutate: func(f *checkoutFixture, params *CreateCheckoutParams) {
				p := f.env.repo.prices[f.price.ID.Bytes]
				p.IsArchived = true
				f.env.repo.prices[f.price.ID.Bytes] = p
			},
			wantErr: ErrPriceArchived,
		},
		{
			name: "price of another product",
			mutate: func(f *checkoutFixture, params *CreateCheckoutParams) {
				other := f.env.repo.seedProduct(f.store.ID, "prod_other")
				params.ProductID = other.ID
			},
			wantErr: ErrPriceNotFound,
		},
		{
			name: "product of another store",
			mutate: func(f *checkoutFixture, params *CreateCheckoutParams) {
				store := f.env.repo.seedStore(f.env.repo.seedUser("other@example.com").ID, true)
				params.ProductID = f.env.repo.seedProduct(store.ID, "prod_foreign").ID
			},
			wantErr: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			params := f.params()
			tt.mutate(f, &params)

			_, err := f.svc.Create(ctx, f.store.ID, params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.env.provider.CallLog)
			assert.Empty(t, f.env.repo.checkouts)
		})
	}
}

func TestCheckoutService_Create_WithUser(t *testing.T) {
	f := newCheckoutFixture(t)
	buyer := f.env.repo.seedUser("buyer@example.com")
	got := f.captureSession()

	params := f.params()
	params.UserID = buyer.ID
	checkout, err := f.svc.Create(context.Background(), f.store.ID, params)
	require.NoError(t, err)

	cached := f.env.repo.users[buyer.ID.Bytes].ProviderCustomerID.String
	assert.NotEmpty(t, cached)
	assert.Equal(t, cached, got.CustomerID)
	assert.Equal(t, buyer.ID, checkout.UserID)
}

func TestCheckoutService_Create_InsertFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.env.repo.fail["CreateCheckout"] = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), f.store.ID, f.params())
	require.Error(t, err)

	assert.Equal(t, "insert_checkout", domain.ErrorStep(err))
	assert.Len(t, f.env.provider.Sessions, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.OrphanedProviderObjects.WithLabelValues("checkout_session")))
	assert.Empty(t, f.env.events.Events())
}

func TestCheckoutService_Create_Validation(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Create(context.Background(), f.store.ID, CreateCheckoutParams{CustomerEmail: "not-an-email"})
	require.Error(t, err)
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "SuccessURL")
	assert.Contains(t, fields, "CustomerEmail")
}

func TestCheckoutService_Complete(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	discount := f.env.repo.seedDiscount(repository.Discount{
		StoreID:          f.store.ID,
		Name:             "Ten",
		Code:             postgres.Text("SAVE10"),
		ProviderCouponID: "coupon_save10",
	}, f.product.ID)

	params := f.params()
	params.DiscountCode = "SAVE10"
	created, err := f.svc.Create(ctx, f.store.ID, params)
	require.NoError(t, err)
	f.completeSession(created.ProviderSessionID, "buyer@example.com")

	completed, err := f.svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStatusSucceeded, completed.Status)
	require.True(t, completed.CustomerID.Valid)
	customer := f.env.repo.customers[completed.CustomerID.Bytes]
	assert.Equal(t, "buyer@example.com", customer.Email)
	assert.Equal(t, "cus_buyer", customer.ProviderCustomerID.String)
	require.Len(t, f.env.repo.redemptions, 1)
	assert.Equal(t, discount.ID, f.env.repo.redemptions[0].DiscountID)
	assert.Equal(t, created.ID, f.env.repo.redemptions[0].CheckoutID)

	// Provider events are delivered at least once.
	again, err := f.svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusSucceeded, again.Status)
	assert.Len(t, f.env.repo.redemptions, 1)

	assert.Equal(t, []string{events.CheckoutCreated, events.CheckoutCompleted, events.DiscountRedeemed}, f.env.events.Types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.CheckoutsFinished.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.DiscountRedemptions))
}

func TestCheckoutService_Complete_SessionStillOpen(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	created, err := f.svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, created.ProviderSessionID)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "open", f.env.repo.checkouts[created.ID.Bytes].Status)
}

func TestCheckoutService_Complete_SettledConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	created, err := f.svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)
	f.completeSession(created.ProviderSessionID, "buyer@example.com")

	// The expiry event wins between our read and our transition.
	mock := f.env.provider
	mock.GetCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*billing.CheckoutSession, error) {
		c := f.env.repo.checkouts[created.ID.Bytes]
		c.Status = "expired"
		f.env.repo.checkouts[created.ID.Bytes] = c
		return mock.Sessions[sessionID], nil
	}

	checkout, err := f.svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusExpired, checkout.Status)
	assert.Empty(t, f.env.repo.customers, "customer write rolls back")
	assert.Equal(t, []string{events.CheckoutCreated}, f.env.events.Types())
}

func TestCheckoutService_Complete_UnknownSession(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Complete(context.Background(), "cs_unknown")
	assert.ErrorIs(t, err, ErrCheckoutNotFound)
}

func TestCheckoutService_Expire(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	created, err := f.svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)

	expired, err := f.svc.Expire(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusExpired, expired.Status)

	again, err := f.svc.Expire(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusExpired, again.Status)

	// A late completion does not resurrect an expired checkout.
	completed, err := f.svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusExpired, completed.Status)

	assert.Equal(t, []string{events.CheckoutCreated, events.CheckoutExpired}, f.env.events.Types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.CheckoutsFinished.WithLabelValues("expired")))
}

func TestCheckoutService_List(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	other := f.env.repo.seedProduct(f.store.ID, "prod_other")
	otherPrice := f.env.repo.seedPrice(repository.ProductPrice{
		ProductID:       other.ID,
		Type:            "one_time",
		AmountType:      "free",
		PriceAmount:     pgtype.Int8{Int64: 0, Valid: true},
		PriceCurrency:   "usd",
		ProviderPriceID: "price_other",
	})

	first, err := f.svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)
	params := f.params()
	params.ProductID = other.ID
	params.ProductPriceID = otherPrice.ID
	second, err := f.svc.Create(ctx, f.store.ID, params)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Amount)

	all, err := f.svc.List(ctx, f.store.ID, pgtype.UUID{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	filtered, err := f.svc.List(ctx, f.store.ID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)

	got, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ProviderSessionID, got.ProviderSessionID)
}

func TestCheckoutService_ReconcileStale(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	var created []*domain.Checkout
	for range 4 {
		c, err := f.svc.Create(ctx, f.store.ID, f.params())
		require.NoError(t, err)
		created = append(created, c)
	}
	completed, expired, open, broken := created[0], created[1], created[2], created[3]
	f.completeSession(completed.ProviderSessionID, "buyer@example.com")
	f.env.provider.Sessions[expired.ProviderSessionID].Status = "expired"

	mock := f.env.provider
	mock.GetCheckoutSessionFunc = func(ctx context.Context, sessionID string) (*billing.CheckoutSession, error) {
		if sessionID == broken.ProviderSessionID {
			return nil, errors.New("provider unavailable")
		}
		return mock.Sessions[sessionID], nil
	}

	result, err := f.svc.ReconcileStale(ctx, time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileResult{Checked: 4, Completed: 1, Expired: 1, Open: 1, Failed: 1}, result)

	assert.Equal(t, "succeeded", f.env.repo.checkouts[completed.ID.Bytes].Status)
	assert.Equal(t, "expired", f.env.repo.checkouts[expired.ID.Bytes].Status)
	assert.Equal(t, "open", f.env.repo.checkouts[open.ID.Bytes].Status)
	assert.Equal(t, "open", f.env.repo.checkouts[broken.ID.Bytes].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.env.metrics.CheckoutsReconciled.WithLabelValues("failed")))

	// Settled checkouts drop out of the next sweep.
	result, err = f.svc.ReconcileStale(ctx, time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
}

func TestCheckoutService_ReconcileStale_Window(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	for range 3 {
		_, err := f.svc.Create(ctx, f.store.ID, f.params())
		require.NoError(t, err)
	}

	// Checkouts younger than the window are not touched.
	result, err := f.svc.ReconcileStale(ctx, 365*24*time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)

	result, err = f.svc.ReconcileStale(ctx, time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Open)
}

type fakeMailer struct {
	receipts []email.PurchaseReceiptEmail
	sales    []email.SaleNotificationEmail
	err      error
}

func (m *fakeMailer) SendPurchaseReceipt(ctx context.Context, data email.PurchaseReceiptEmail) error {
	m.receipts = append(m.receipts, data)
	return m.err
}

func (m *fakeMailer) SendSaleNotification(ctx context.Context, data email.SaleNotificationEmail) error {
	m.sales = append(m.sales, data)
	return m.err
}

func (f *checkoutFixture) withMailer(m Mailer) CheckoutService {
	deps := f.env.deps()
	deps.Mailer = m
	return NewCheckoutService(deps, f.discounts, NewCustomerService(deps))
}

func TestCheckoutService_Complete_SendsEmails(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	mailer := &fakeMailer{}
	svc := f.withMailer(mailer)

	created, err := svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)
	f.completeSession(created.ProviderSessionID, "buyer@example.com")

	_, err = svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)

	require.Len(t, mailer.receipts, 1)
	receipt := mailer.receipts[0]
	assert.Equal(t, "buyer@example.com", receipt.To)
	assert.Equal(t, "Test Store", receipt.StoreName)
	assert.Equal(t, "Widget", receipt.ProductName)
	assert.Equal(t, int64(1000), receipt.Amount)
	assert.Equal(t, f.env.now, receipt.PurchasedAt)

	require.Len(t, mailer.sales, 1)
	assert.Equal(t, "owner@example.com", mailer.sales[0].To)
	assert.Equal(t, "buyer@example.com", mailer.sales[0].CustomerEmail)

	// A redelivered completion does not email again.
	_, err = svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Len(t, mailer.receipts, 1)
	assert.Len(t, mailer.sales, 1)
}

func TestCheckoutService_Complete_EmailFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	svc := f.withMailer(&fakeMailer{err: errors.New("smtp down")})

	created, err := svc.Create(ctx, f.store.ID, f.params())
	require.NoError(t, err)
	f.completeSession(created.ProviderSessionID, "buyer@example.com")

	checkout, err := svc.Complete(ctx, created.ProviderSessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusSucceeded, checkout.Status)
}
