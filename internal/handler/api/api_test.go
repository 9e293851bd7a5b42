package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/middleware"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    = "0b7d3a52-4c1e-4d1a-9a55-1f6f1f7e1a01"
	strangerID = "0b7d3a52-4c1e-4d1a-9a55-1f6f1f7e1a02"
	storeID    = "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0b01"
	productID  = "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0b02"
	priceID    = "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0b03"
	discountID = "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0b04"
	checkoutID = "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0b05"
)

func id(s string) pgtype.UUID { return postgres.ParseUUID(s) }

// Unimplemented methods of the embedded interfaces panic, so each test
// only stubs what it expects to be called.

type fakeStores struct {
	service.StoreService
	created *service.CreateStoreParams
}

func (f *fakeStores) GetStore(ctx context.Context, sid pgtype.UUID) (*domain.Store, error) {
	if sid != id(storeID) {
		return nil, service.ErrStoreNotFound
	}
	return &domain.Store{ID: sid, UserID: id(ownerID), Name: "Shop", Currency: "usd", Country: "US"}, nil
}

func (f *fakeStores) CreateStore(ctx context.Context, userID pgtype.UUID, params service.CreateStoreParams) (*domain.Store, error) {
	f.created = &params
	return &domain.Store{ID: id(storeID), UserID: userID, Name: params.Name, Active: true}, nil
}

func (f *fakeStores) ListStores(ctx context.Context, userID pgtype.UUID) ([]domain.Store, error) {
	return []domain.Store{{ID: id(storeID), UserID: userID, Name: "Shop"}}, nil
}

type fakeCatalog struct {
	service.CatalogService
	created  *service.CreateProductParams
	archived []pgtype.UUID
}

func (f *fakeCatalog) GetProduct(ctx context.Context, pid pgtype.UUID) (*domain.Product, error) {
	if pid != id(productID) {
		return nil, service.ErrProductNotFound
	}
	amount := int64(1000)
	return &domain.Product{
		ID:      pid,
		StoreID: id(storeID),
		Name:    "Book",
		Prices: []domain.ProductPrice{{
			ID: id(priceID), ProductID: pid, Type: domain.PriceTypeOneTime,
			AmountType: domain.AmountTypeFixed, Currency: "usd", Amount: &amount,
		}},
	}, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, sid pgtype.UUID, params service.CreateProductParams) (*domain.Product, error) {
	f.created = &params
	return &domain.Product{ID: id(productID), StoreID: sid, Name: params.Name}, nil
}

func (f *fakeCatalog) ArchivePrice(ctx context.Context, pid pgtype.UUID) (*domain.ProductPrice, error) {
	f.archived = append(f.archived, pid)
	return &domain.ProductPrice{ID: pid, IsArchived: true}, nil
}

type fakeDiscounts struct {
	service.DiscountService
	created *service.CreateDiscountParams
	deleted []pgtype.UUID
}

func (f *fakeDiscounts) Create(ctx context.Context, userID pgtype.UUID, params service.CreateDiscountParams) (*domain.Discount, error) {
	f.created = &params
	if params.Name == "" {
		return nil, domain.NewValidationError("discount.create", "Name", "is required")
	}
	return &domain.Discount{ID: id(discountID), StoreID: id(storeID), Name: params.Name, Type: params.Type}, nil
}

func (f *fakeDiscounts) GetByID(ctx context.Context, did pgtype.UUID) (*domain.Discount, error) {
	if did != id(discountID) {
		return nil, service.ErrDiscountNotFound
	}
	return &domain.Discount{ID: did, StoreID: id(storeID), Name: "Launch"}, nil
}

func (f *fakeDiscounts) Delete(ctx context.Context, did pgtype.UUID) error {
	f.deleted = append(f.deleted, did)
	return nil
}

type fakeCheckouts struct {
	service.CheckoutService
	created      *service.CreateCheckoutParams
	listedFilter pgtype.UUID
	buyer        pgtype.UUID
}

func (f *fakeCheckouts) Create(ctx context.Context, sid pgtype.UUID, params service.CreateCheckoutParams) (*domain.Checkout, error) {
	f.created = &params
	return &domain.Checkout{
		ID: id(checkoutID), StoreID: sid, ProductID: params.ProductID, ProductPriceID: params.ProductPriceID,
		UserID: params.UserID, Amount: 1000, Currency: "usd", Status: domain.CheckoutStatusOpen,
		ProviderSessionURL: "https://checkout.example/cs_1",
	}, nil
}

func (f *fakeCheckouts) Get(ctx context.Context, cid pgtype.UUID) (*domain.Checkout, error) {
	return &domain.Checkout{ID: cid, StoreID: id(storeID), UserID: f.buyer, Status: domain.CheckoutStatusOpen}, nil
}

func (f *fakeCheckouts) List(ctx context.Context, sid, pid pgtype.UUID) ([]domain.Checkout, error) {
	f.listedFilter = pid
	return nil, nil
}

type fakeCustomers struct {
	service.CustomerService
}

func (f *fakeCustomers) CreateAccountLink(ctx context.Context, sid pgtype.UUID, returnURL, refreshURL string) (*billing.AccountLink, error) {
	return &billing.AccountLink{URL: "https://connect.example/onboard", ExpiresAt: time.Unix(1700000000, 0).UTC()}, nil
}

type apiEnv struct {
	stores    *fakeStores
	catalog   *fakeCatalog
	discounts *fakeDiscounts
	checkouts *fakeCheckouts
	handler   *Handler
}

func newAPIEnv() *apiEnv {
	env := &apiEnv{
		stores:    &fakeStores{},
		catalog:   &fakeCatalog{},
		discounts: &fakeDiscounts{},
		checkouts: &fakeCheckouts{},
	}
	env.handler = NewHandler(&service.Services{
		Stores:    env.stores,
		Catalog:   env.catalog,
		Discounts: env.discounts,
		Checkouts: env.checkouts,
		Customers: &fakeCustomers{},
	}, nil)
	return env
}

type call struct {
	method  string
	target  string
	body    string
	user    string
	headers map[string]string
	path    map[string]string
}

func serve(h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.target, strings.NewReader(c.body))
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.Header.Set(middleware.UserIDHeader, c.user)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range c.path {
		req.SetPathValue(k, v)
	}
	rec := httptest.NewRecorder()
	middleware.WithUser(h).ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateStore(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.CreateStore, call{
		method: http.MethodPost, target: "/api/stores", user: ownerID,
		body: `{"name":"Shop","currency":"eur","country":"DE","automatic_tax":true}`,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, env.stores.created)
	assert.Equal(t, "eur", env.stores.created.Currency)
	assert.True(t, env.stores.created.AutomaticTax)

	body := decode(t, rec)
	assert.Equal(t, storeID, body["id"])
	assert.Equal(t, true, body["active"])
}

func TestCreateStore_BadJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"malformed", `{"name":`},
		{"unknown field", `{"name":"Shop","owner":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAPIEnv()
			rec := serve(env.handler.CreateStore, call{method: http.MethodPost, target: "/api/stores", user: ownerID, body: tt.body})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, env.stores.created)
		})
	}
}

func TestListStores(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.ListStores, call{method: http.MethodGet, target: "/api/stores", user: ownerID})

	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	assert.Len(t, items, 1)
}

func TestGetStore_Ownership(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		store  string
		status int
	}{
		{"owner", ownerID, storeID, http.StatusOK},
		{"stranger", strangerID, storeID, http.StatusNotFound},
		{"missing", ownerID, "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0bff", http.StatusNotFound},
		{"malformed id", ownerID, "nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAPIEnv()
			rec := serve(env.handler.GetStore, call{
				method: http.MethodGet, target: "/api/stores/" + tt.store, user: tt.user,
				path: map[string]string{"id": tt.store},
			})
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCreateAccountLink(t *testing.T) {
	env := newAPIEnv()
	target := "/api/stores/" + storeID + "/account-link"

	rec := serve(env.handler.CreateAccountLink, call{
		method: http.MethodPost, target: target, user: ownerID, path: map[string]string{"id": storeID},
		body: `{"return_url":"https://shop.example/done","refresh_url":"https://shop.example/retry"}`,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://connect.example/onboard", decode(t, rec)["url"])

	rec = serve(env.handler.CreateAccountLink, call{
		method: http.MethodPost, target: target, user: ownerID, path: map[string]string{"id": storeID},
		body: `{}`,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "return_url")
	assert.Contains(t, fields, "refresh_url")
}

func TestCreateProduct(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.CreateProduct, call{
		method: http.MethodPost, target: "/api/stores/" + storeID + "/products", user: ownerID,
		path:    map[string]string{"id": storeID},
		headers: map[string]string{IdempotencyKeyHeader: "idem-1"},
		body: `{"name":"Book","prices":[
			{"type":"one_time","amount_type":"fixed","currency":"usd","amount":1000},
			{"type":"recurring","recurring_interval":"month","amount_type":"custom","currency":"usd",
			 "minimum_amount":100,"maximum_amount":5000,"preset_amount":500}]}`,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	params := env.catalog.created
	require.NotNil(t, params)
	assert.Equal(t, "idem-1", params.IdempotencyKey)
	require.Len(t, params.Prices, 2)
	assert.Equal(t, domain.AmountTypeFixed, params.Prices[0].AmountType)
	assert.Equal(t, int64(1000), *params.Prices[0].Amount)
	assert.Equal(t, domain.RecurringIntervalMonth, params.Prices[1].RecurringInterval)
	assert.Equal(t, int64(500), *params.Prices[1].PresetAmount)
}

func TestCreateProduct_OtherUsersStore(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.CreateProduct, call{
		method: http.MethodPost, target: "/api/stores/" + storeID + "/products", user: strangerID,
		path: map[string]string{"id": storeID},
		body: `{"name":"Book","prices":[]}`,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, env.catalog.created)
}

func TestArchivePrice(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		price   string
		status  int
		archive bool
	}{
		{"owner archives own price", ownerID, priceID, http.StatusOK, true},
		{"price of another product", ownerID, "7a0e0c0e-2d57-4b52-8f0c-6a8a6a3f0bff", http.StatusNotFound, false},
		{"stranger", strangerID, priceID, http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAPIEnv()
			rec := serve(env.handler.ArchivePrice, call{
				method: http.MethodPost, target: "/api/products/" + productID + "/prices/" + tt.price + "/archive",
				user: tt.user, path: map[string]string{"id": productID, "priceID": tt.price},
			})

			assert.Equal(t, tt.status, rec.Code)
			if tt.archive {
				assert.Equal(t, []pgtype.UUID{id(priceID)}, env.catalog.archived)
			} else {
				assert.Empty(t, env.catalog.archived)
			}
		})
	}
}

func TestCreateDiscount(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.CreateDiscount, call{
		method: http.MethodPost, target: "/api/discounts", user: ownerID,
		body: `{"name":"Launch","code":"LAUNCH","type":"percentage","basis_points":1500,"product_ids":["` + productID + `"]}`,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	params := env.discounts.created
	require.NotNil(t, params)
	assert.Equal(t, domain.DiscountTypePercentage, params.Type)
	assert.Equal(t, int32(1500), params.BasisPoints)
	assert.Equal(t, []pgtype.UUID{id(productID)}, params.ProductIDs)
}

func TestCreateDiscount_ValidationErrors(t *testing.T) {
	t.Run("malformed product id", func(t *testing.T) {
		env := newAPIEnv()
		rec := serve(env.handler.CreateDiscount, call{
			method: http.MethodPost, target: "/api/discounts", user: ownerID,
			body: `{"name":"Launch","type":"percentage","basis_points":1500,"product_ids":["nope"]}`,
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, env.discounts.created)
		fields := decode(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
		assert.Contains(t, fields, "product_ids")
	})

	t.Run("service rejects params", func(t *testing.T) {
		env := newAPIEnv()
		rec := serve(env.handler.CreateDiscount, call{
			method: http.MethodPost, target: "/api/discounts", user: ownerID,
			body: `{"type":"percentage","basis_points":1500}`,
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		fields := decode(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
		assert.Equal(t, "is required", fields["Name"])
	})
}

func TestDeleteDiscount(t *testing.T) {
	env := newAPIEnv()
	rec := serve(env.handler.DeleteDiscount, call{
		method: http.MethodDelete, target: "/api/discounts/" + discountID, user: ownerID,
		path: map[string]string{"id": discountID},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []pgtype.UUID{id(discountID)}, env.discounts.deleted)

	env = newAPIEnv()
	rec = serve(env.handler.DeleteDiscount, call{
		method: http.MethodDelete, target: "/api/discounts/" + discountID, user: strangerID,
		path: map[string]string{"id": discountID},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, env.discounts.deleted)
}

func TestCreateCheckout(t *testing.T) {
	body := `{"product_id":"` + productID + `","product_price_id":"` + priceID + `","discount_code":"LAUNCH",` +
		`"success_url":"https://shop.example/thanks"}`

	t.Run("anonymous buyer", func(t *testing.T) {
		env := newAPIEnv()
		rec := serve(env.handler.CreateCheckout, call{
			method: http.MethodPost, target: "/api/stores/" + storeID + "/checkouts", body: body,
			path:    map[string]string{"id": storeID},
			headers: map[string]string{IdempotencyKeyHeader: "idem-2"},
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		params := env.checkouts.created
		require.NotNil(t, params)
		assert.False(t, params.UserID.Valid)
		assert.False(t, params.DiscountID.Valid)
		assert.Equal(t, "LAUNCH", params.DiscountCode)
		assert.Equal(t, "idem-2", params.IdempotencyKey)

		out := decode(t, rec)
		assert.Equal(t, "https://checkout.example/cs_1", out["url"])
		assert.Equal(t, "open", out["status"])
		assert.NotContains(t, out, "discount_id")
	})

	t.Run("signed-in buyer", func(t *testing.T) {
		env := newAPIEnv()
		rec := serve(env.handler.CreateCheckout, call{
			method: http.MethodPost, target: "/api/stores/" + storeID + "/checkouts", body: body,
			user: strangerID, path: map[string]string{"id": storeID},
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, id(strangerID), env.checkouts.created.UserID)
	})

	t.Run("malformed ids", func(t *testing.T) {
		env := newAPIEnv()
		rec := serve(env.handler.CreateCheckout, call{
			method: http.MethodPost, target: "/api/stores/" + storeID + "/checkouts",
			body: `{"product_id":"x","product_price_id":"y","success_url":"https://shop.example/thanks"}`,
			path: map[string]string{"id": storeID},
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, env.checkouts.created)
		fields := decode(t, rec)["error"].(map[string]any)["fields"].(map[string]any)
		assert.Contains(t, fields, "product_id")
		assert.Contains(t, fields, "product_price_id")
	})
}

func TestListCheckouts_ProductFilter(t *testing.T) {
	env := newAPIEnv()

	rec := serve(env.handler.ListCheckouts, call{
		method: http.MethodGet, target: "/api/stores/" + storeID + "/checkouts?product_id=" + productID,
		user: ownerID, path: map[string]string{"id": storeID},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id(productID), env.checkouts.listedFilter)
	assert.Empty(t, decode(t, rec)["items"])
}

func TestGetCheckout_Visibility(t *testing.T) {
	tests := []struct {
		name   string
		buyer  string
		user   string
		status int
	}{
		{"store owner", "", ownerID, http.StatusOK},
		{"buyer", strangerID, strangerID, http.StatusOK},
		{"someone else", "", strangerID, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAPIEnv()
			env.checkouts.buyer = postgres.ParseUUID(tt.buyer)

			rec := serve(env.handler.GetCheckout, call{
				method: http.MethodGet, target: "/api/checkouts/" + checkoutID, user: tt.user,
				path: map[string]string{"id": checkoutID},
			})
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
