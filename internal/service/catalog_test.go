package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPrice(amount int64) domain.PriceSpec {
	return domain.PriceSpec{
		Type:       domain.PriceTypeOneTime,
		AmountType: domain.AmountTypeFixed,
		Currency:   "usd",
		Amount:     int64Ptr(amount),
	}
}

func TestCatalogService_CreateProduct_Widget(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	svc := NewCatalogService(env.deps(), 0)

	product, err := svc.CreateProduct(context.Background(), store.ID, CreateProductParams{
		Name:           "Widget",
		Prices:         []domain.PriceSpec{fixedPrice(1000)},
		IdempotencyKey: "widget-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Widget", product.Name)
	assert.NotEmpty(t, product.ProviderProductID)
	require.Len(t, product.Prices, 1)

	price := product.Prices[0]
	assert.NotEmpty(t, price.ProviderPriceID)
	assert.Equal(t, domain.AmountTypeFixed, price.AmountType)
	assert.Equal(t, domain.PriceTypeOneTime, price.Type)
	require.NotNil(t, price.Amount)
	assert.Equal(t, int64(1000), *price.Amount)

	assert.Len(t, env.repo.products, 1)
	assert.Len(t, env.repo.prices, 1)
	assert.Equal(t, 1, env.repo.commits)
	assert.Equal(t, DefaultCatalogTxTimeout, env.repo.lastTx.Timeout)

	assert.Equal(t, []string{"widget-1_product", "widget-1_price_0"}, env.provider.IdempotencyKeys)
	assert.Equal(t, postgres.UUIDString(product.ID), env.provider.Products[product.ProviderProductID].Metadata["product_id"])
	assert.Equal(t, []string{events.ProductCreated}, env.events.Types())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CatalogSyncs.WithLabelValues("success")))
}

func TestCatalogService_CreateProduct_PriceRowsFollowProvider(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)

	// The provider answers with a different amount than requested; the
	// local row mirrors the provider.
	env.provider.CreatePriceFunc = func(ctx context.Context, params billing.CreatePriceParams) (*billing.Price, error) {
		return &billing.Price{
			ID:         "price_authoritative",
			ProductID:  params.ProductID,
			Currency:   "eur",
			UnitAmount: int64Ptr(1250),
			Active:     true,
		}, nil
	}

	product, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), store.ID, CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000)},
	})
	require.NoError(t, err)

	price := product.Prices[0]
	assert.Equal(t, "price_authoritative", price.ProviderPriceID)
	assert.Equal(t, "eur", price.Currency)
	assert.Equal(t, int64(1250), *price.Amount)
	assert.Empty(t, env.provider.IdempotencyKeys, "no caller key means no provider keys")
}

func TestCatalogService_CreateProduct_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)

	calls := 0
	env.provider.CreatePriceFunc = func(ctx context.Context, params billing.CreatePriceParams) (*billing.Price, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("stripe unavailable")
		}
		return &billing.Price{ID: "price_first", ProductID: params.ProductID, Currency: params.Currency, UnitAmount: params.UnitAmount}, nil
	}

	_, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), store.ID, CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000), fixedPrice(2000)},
	})
	require.Error(t, err)

	assert.Equal(t, domain.EPROVIDER, domain.ErrorCode(err))
	assert.Equal(t, "create_provider_price[1]", domain.ErrorStep(err))
	assert.Empty(t, env.repo.products)
	assert.Empty(t, env.repo.prices)
	assert.Equal(t, 1, env.repo.rollbacks)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrphanedProviderObjects.WithLabelValues("product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrphanedProviderObjects.WithLabelValues("price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CatalogSyncs.WithLabelValues("failure")))
	assert.Empty(t, env.events.Events())
}

func TestCatalogService_CreateProduct_PriceInsertFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	env.repo.fail["CreateProductPrices"] = errors.New("connection reset")

	_, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), store.ID, CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000)},
	})
	require.Error(t, err)

	assert.Equal(t, "insert_prices", domain.ErrorStep(err))
	assert.Empty(t, env.repo.products)
	assert.Len(t, env.provider.Products, 1, "provider objects are not deleted")
}

func TestCatalogService_CreateProduct_AmountTypes(t *testing.T) {
	tests := []struct {
		name string
		spec domain.PriceSpec
		want domain.AmountType
	}{
		{
			name: "fixed",
			spec: fixedPrice(500),
			want: domain.AmountTypeFixed,
		},
		{
			name: "free",
			spec: domain.PriceSpec{Type: domain.PriceTypeOneTime, AmountType: domain.AmountTypeFree, Currency: "usd"},
			want: domain.AmountTypeFree,
		},
		{
			name: "custom",
			spec: domain.PriceSpec{
				Type:          domain.PriceTypeOneTime,
				AmountType:    domain.AmountTypeCustom,
				Currency:      "usd",
				MinimumAmount: int64Ptr(100),
				MaximumAmount: int64Ptr(10000),
				PresetAmount:  int64Ptr(500),
			},
			want: domain.AmountTypeCustom,
		},
		{
			name: "recurring fixed",
			spec: domain.PriceSpec{
				Type:              domain.PriceTypeRecurring,
				RecurringInterval: domain.RecurringIntervalMonth,
				AmountType:        domain.AmountTypeFixed,
				Currency:          "usd",
				Amount:            int64Ptr(900),
			},
			want: domain.AmountTypeFixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.repo.seedUser("owner@example.com")
			store := env.repo.seedStore(user.ID, true)

			product, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), store.ID, CreateProductParams{
				Name:   "Widget",
				Prices: []domain.PriceSpec{tt.spec},
			})
			require.NoError(t, err)
			require.Len(t, product.Prices, 1)
			assert.Equal(t, tt.want, product.Prices[0].AmountType)
			assert.Equal(t, tt.spec.Type, product.Prices[0].Type)
		})
	}
}

func TestCatalogService_CreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name      string
		params    CreateProductParams
		wantField string
	}{
		{
			name:      "custom price without bounds",
			params:    CreateProductParams{Name: "Widget", Prices: []domain.PriceSpec{{Type: domain.PriceTypeOneTime, AmountType: domain.AmountTypeCustom, Currency: "usd"}}},
			wantField: "Prices[0].MinimumAmount",
		},
		{
			name: "preset outside bounds",
			params: CreateProductParams{Name: "Widget", Prices: []domain.PriceSpec{{
				Type:          domain.PriceTypeOneTime,
				AmountType:    domain.AmountTypeCustom,
				Currency:      "usd",
				MinimumAmount: int64Ptr(100),
				MaximumAmount: int64Ptr(200),
				PresetAmount:  int64Ptr(500),
			}}},
			wantField: "Prices[0].PresetAmount",
		},
		{
			name:      "recurring without interval",
			params:    CreateProductParams{Name: "Widget", Prices: []domain.PriceSpec{{Type: domain.PriceTypeRecurring, AmountType: domain.AmountTypeFree, Currency: "usd"}}},
			wantField: "Prices[0].RecurringInterval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.repo.seedUser("owner@example.com")
			store := env.repo.seedStore(user.ID, true)

			_, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), store.ID, tt.params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Contains(t, domain.GetValidationFields(err), tt.wantField)
			assert.Empty(t, env.provider.CallLog)
		})
	}
}

func TestCatalogService_CreateProduct_UnknownStore(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewCatalogService(env.deps(), 0).CreateProduct(context.Background(), env.repo.newID(), CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000)},
	})
	assert.ErrorIs(t, err, ErrStoreNotFound)
	assert.Empty(t, env.provider.CallLog)
}

func TestCatalogService_CreateProduct_TxTimeout(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)

	_, err := NewCatalogService(env.deps(), 3*time.Second).CreateProduct(context.Background(), store.ID, CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, env.repo.lastTx.Timeout)
	assert.Equal(t, "catalog.create_product", env.repo.lastTx.Op)
}

func TestCatalogService_ArchiveAndUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	svc := NewCatalogService(env.deps(), 0)

	product, err := svc.CreateProduct(ctx, store.ID, CreateProductParams{
		Name:   "Widget",
		Prices: []domain.PriceSpec{fixedPrice(1000), fixedPrice(2000)},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductParams{Name: strPtr("Gadget")})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", updated.Name)
	assert.Equal(t, "Gadget", env.provider.Products[product.ProviderProductID].Name)

	archivedPrice, err := svc.ArchivePrice(ctx, product.Prices[0].ID)
	require.NoError(t, err)
	assert.True(t, archivedPrice.IsArchived)
	assert.False(t, env.provider.Prices[product.Prices[0].ProviderPriceID].Active)

	list, err := svc.ListProducts(ctx, store.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Prices, 1, "archived prices are not listed")
	assert.Equal(t, product.Prices[1].ID, list[0].Prices[0].ID)

	archived, err := svc.ArchiveProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.False(t, env.provider.Products[product.ProviderProductID].Active)

	restored, err := svc.UnarchiveProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	assert.Equal(t, []string{events.ProductCreated, events.ProductUpdated}, env.events.Types())
}

func TestCatalogService_UpdateProduct_ProviderFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	row := env.repo.seedProduct(store.ID, "prod_existing")
	env.provider.UpdateProductFunc = func(ctx context.Context, productID string, params billing.UpdateProductParams) (*billing.Product, error) {
		return nil, errors.New("rate limited")
	}

	_, err := NewCatalogService(env.deps(), 0).UpdateProduct(ctx, row.ID, UpdateProductParams{Name: strPtr("Gadget")})
	require.Error(t, err)
	assert.Equal(t, domain.EPROVIDER, domain.ErrorCode(err))
	assert.Equal(t, "Widget", env.repo.products[row.ID.Bytes].Name)
}

func TestCatalogService_CreateProduct_RetryWithSameKey(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	store := env.repo.seedStore(user.ID, true)
	env.provider.EnforceIdempotency = true

	failures := 1
	env.provider.CreatePriceFunc = func(ctx context.Context, params billing.CreatePriceParams) (*billing.Price, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("stripe unavailable")
		}
		return &billing.Price{ID: "price_1", ProductID: params.ProductID, Currency: params.Currency, UnitAmount: params.UnitAmount}, nil
	}

	svc := NewCatalogService(env.deps(), 0)
	params := CreateProductParams{
		Name:           "Widget",
		Prices:         []domain.PriceSpec{fixedPrice(1000)},
		IdempotencyKey: "k1",
	}

	_, err := svc.CreateProduct(context.Background(), store.ID, params)
	require.Error(t, err)
	assert.Equal(t, "create_provider_price[0]", domain.ErrorStep(err))

	product, err := svc.CreateProduct(context.Background(), store.ID, params)
	require.NoError(t, err, "a retry sends the same provider requests")
	assert.Len(t, env.provider.Products, 1, "the retry reuses the first provider product")
	require.Len(t, product.Prices, 1)

	calls := len(env.provider.CallLog)
	again, err := svc.CreateProduct(context.Background(), store.ID, params)
	require.NoError(t, err)
	assert.Equal(t, product.ID, again.ID)
	assert.Len(t, again.Prices, 1)
	assert.Len(t, env.provider.CallLog, calls, "a finished product is replayed locally")
	assert.Len(t, env.repo.products, 1)
}

func TestCatalogService_CreateProduct_KeyIsScopedToStore(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.seedUser("owner@example.com")
	first := env.repo.seedStore(user.ID, false)
	second := env.repo.seedStore(user.ID, true)
	svc := NewCatalogService(env.deps(), 0)

	params := CreateProductParams{
		Name:           "Widget",
		Prices:         []domain.PriceSpec{fixedPrice(1000)},
		IdempotencyKey: "same-key",
	}
	a, err := svc.CreateProduct(context.Background(), first.ID, params)
	require.NoError(t, err)
	b, err := svc.CreateProduct(context.Background(), second.ID, params)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, first.ID, a.StoreID)
	assert.Equal(t, second.ID, b.StoreID)
}
