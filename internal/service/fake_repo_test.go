package service

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// fakeRepo is an in-memory repository.Querier and postgres.TxRunner.
// RunInTx snapshots every table and restores it when fn fails, so tests can
// observe rollbacks. Constraints the services rely on are enforced with the
// same pg error codes and constraint names as the schema.
type fakeRepo struct {
	users         map[[16]byte]repository.User
	stores        map[[16]byte]repository.Store
	products      map[[16]byte]repository.Product
	prices        map[[16]byte]repository.ProductPrice
	discounts     map[[16]byte]repository.Discount
	scopes        []repository.DiscountProduct
	redemptions   []repository.DiscountRedemption
	customers     map[[16]byte]repository.Customer
	checkouts     map[[16]byte]repository.Checkout
	subscriptions map[string]repository.Subscription

	// fail makes the named method return the error.
	fail map[string]error

	// before runs at the start of the named method.
	before map[string]func()

	commits   int
	rollbacks int
	lastTx    postgres.TxOptions

	seq   int
	clock time.Time
}

var (
	_ repository.Querier = (*fakeRepo)(nil)
	_ postgres.TxRunner  = (*fakeRepo)(nil)
)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[[16]byte]repository.User),
		stores:        make(map[[16]byte]repository.Store),
		products:      make(map[[16]byte]repository.Product),
		prices:        make(map[[16]byte]repository.ProductPrice),
		discounts:     make(map[[16]byte]repository.Discount),
		customers:     make(map[[16]byte]repository.Customer),
		checkouts:     make(map[[16]byte]repository.Checkout),
		subscriptions: make(map[string]repository.Subscription),
		fail:          make(map[string]error),
		before:        make(map[string]func()),
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRepo) enter(method string) error {
	if fn := f.before[method]; fn != nil {
		fn()
	}
	return f.fail[method]
}

func (f *fakeRepo) newID() pgtype.UUID {
	return postgres.UUID(uuid.New())
}

// now advances the clock so created_at orders rows by insertion.
func (f *fakeRepo) now() pgtype.Timestamptz {
	f.seq++
	return pgtype.Timestamptz{Time: f.clock.Add(time.Duration(f.seq) * time.Second), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

// =============================================================================
// Transactions
// =============================================================================

type fakeSnapshot struct {
	users         map[[16]byte]repository.User
	stores        map[[16]byte]repository.Store
	products      map[[16]byte]repository.Product
	prices        map[[16]byte]repository.ProductPrice
	discounts     map[[16]byte]repository.Discount
	scopes        []repository.DiscountProduct
	redemptions   []repository.DiscountRedemption
	customers     map[[16]byte]repository.Customer
	checkouts     map[[16]byte]repository.Checkout
	subscriptions map[string]repository.Subscription
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeRepo) snapshot() fakeSnapshot {
	return fakeSnapshot{
		users:         cloneMap(f.users),
		stores:        cloneMap(f.stores),
		products:      cloneMap(f.products),
		prices:        cloneMap(f.prices),
		discounts:     cloneMap(f.discounts),
		scopes:        append([]repository.DiscountProduct(nil), f.scopes...),
		redemptions:   append([]repository.DiscountRedemption(nil), f.redemptions...),
		customers:     cloneMap(f.customers),
		checkouts:     cloneMap(f.checkouts),
		subscriptions: cloneMap(f.subscriptions),
	}
}

func (f *fakeRepo) restore(s fakeSnapshot) {
	f.users = s.users
	f.stores = s.stores
	f.products = s.products
	f.prices = s.prices
	f.discounts = s.discounts
	f.scopes = s.scopes
	f.redemptions = s.redemptions
	f.customers = s.customers
	f.checkouts = s.checkouts
	f.subscriptions = s.subscriptions
}

func (f *fakeRepo) RunInTx(ctx context.Context, opts postgres.TxOptions, fn func(ctx context.Context, q repository.Querier) error) error {
	f.lastTx = opts
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	snap := f.snapshot()
	if err := fn(ctx, f); err != nil {
		f.restore(snap)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// =============================================================================
// Seeding helpers
// =============================================================================

func (f *fakeRepo) seedUser(email string) repository.User {
	u := repository.User{
		ID:        f.newID(),
		Email:     email,
		Name:      pgtype.Text{String: "Test User", Valid: true},
		CreatedAt: f.now(),
	}
	f.users[u.ID.Bytes] = u
	return u
}

func (f *fakeRepo) seedStore(userID pgtype.UUID, active bool) repository.Store {
	s := repository.Store{
		ID:           f.newID(),
		UserID:       userID,
		Name:         "Test Store",
		Currency:     "usd",
		Country:      "US",
		AutomaticTax: true,
		Active:       active,
		CreatedAt:    f.now(),
	}
	f.stores[s.ID.Bytes] = s
	return s
}

func (f *fakeRepo) seedProduct(storeID pgtype.UUID, providerID string) repository.Product {
	p := repository.Product{
		ID:                f.newID(),
		StoreID:           storeID,
		Name:              "Widget",
		ProviderProductID: postgres.Text(providerID),
		CreatedAt:         f.now(),
	}
	f.products[p.ID.Bytes] = p
	return p
}

func (f *fakeRepo) seedPrice(p repository.ProductPrice) repository.ProductPrice {
	p.ID = f.newID()
	p.CreatedAt = f.now()
	f.prices[p.ID.Bytes] = p
	return p
}

func (f *fakeRepo) seedDiscount(d repository.Discount, productIDs ...pgtype.UUID) repository.Discount {
	d.ID = f.newID()
	d.CreatedAt = f.now()
	if d.Type == "" {
		d.Type = "percentage"
		d.BasisPoints = pgtype.Int4{Int32: 1000, Valid: true}
	}
	if d.Duration == "" {
		d.Duration = "once"
	}
	f.discounts[d.ID.Bytes] = d
	for _, id := range productIDs {
		f.scopes = append(f.scopes, repository.DiscountProduct{DiscountID: d.ID, ProductID: id})
	}
	return d
}

func (f *fakeRepo) seedRedemptions(discountID pgtype.UUID, n int) {
	for i := 0; i < n; i++ {
		f.redemptions = append(f.redemptions, repository.DiscountRedemption{
			ID:         f.newID(),
			DiscountID: discountID,
			RedeemedAt: f.now(),
		})
	}
}

// =============================================================================
// Users and stores
// =============================================================================

func (f *fakeRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error) {
	if err := f.enter("CreateUser"); err != nil {
		return repository.User{}, err
	}
	for _, u := range f.users {
		if u.Email == arg.Email {
			return repository.User{}, uniqueViolation("users_email_key")
		}
	}
	u := repository.User{ID: f.newID(), Email: arg.Email, Name: arg.Name, CreatedAt: f.now()}
	f.users[u.ID.Bytes] = u
	return u, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id pgtype.UUID) (repository.User, error) {
	if err := f.enter("GetUserByID"); err != nil {
		return repository.User{}, err
	}
	u, ok := f.users[id.Bytes]
	if !ok {
		return repository.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeRepo) SetUserProviderCustomerID(ctx context.Context, arg repository.SetUserProviderCustomerIDParams) (int64, error) {
	if err := f.enter("SetUserProviderCustomerID"); err != nil {
		return 0, err
	}
	u, ok := f.users[arg.ID.Bytes]
	if !ok || u.ProviderCustomerID.Valid {
		return 0, nil
	}
	for _, other := range f.users {
		if other.ProviderCustomerID.Valid && other.ProviderCustomerID == arg.ProviderCustomerID {
			return 0, uniqueViolation("users_provider_customer_id_key")
		}
	}
	u.ProviderCustomerID = arg.ProviderCustomerID
	u.UpdatedAt = f.now()
	f.users[u.ID.Bytes] = u
	return 1, nil
}

func (f *fakeRepo) hasOtherActiveStore(userID, storeID pgtype.UUID) bool {
	for _, s := range f.stores {
		if s.UserID == userID && s.Active && s.ID != storeID {
			return true
		}
	}
	return false
}

func (f *fakeRepo) CreateStore(ctx context.Context, arg repository.CreateStoreParams) (repository.Store, error) {
	if err := f.enter("CreateStore"); err != nil {
		return repository.Store{}, err
	}
	if arg.Active && f.hasOtherActiveStore(arg.UserID, pgtype.UUID{}) {
		return repository.Store{}, uniqueViolation("stores_one_active_per_user")
	}
	s := repository.Store{
		ID:           f.newID(),
		UserID:       arg.UserID,
		Name:         arg.Name,
		Url:          arg.Url,
		Description:  arg.Description,
		Currency:     arg.Currency,
		Country:      arg.Country,
		AutomaticTax: arg.AutomaticTax,
		Active:       arg.Active,
		CreatedAt:    f.now(),
	}
	f.stores[s.ID.Bytes] = s
	return s, nil
}

func (f *fakeRepo) GetStoreByID(ctx context.Context, id pgtype.UUID) (repository.Store, error) {
	if err := f.enter("GetStoreByID"); err != nil {
		return repository.Store{}, err
	}
	s, ok := f.stores[id.Bytes]
	if !ok {
		return repository.Store{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeRepo) GetActiveStoreByUserID(ctx context.Context, userID pgtype.UUID) (repository.Store, error) {
	if err := f.enter("GetActiveStoreByUserID"); err != nil {
		return repository.Store{}, err
	}
	for _, s := range f.stores {
		if s.UserID == userID && s.Active {
			return s, nil
		}
	}
	return repository.Store{}, pgx.ErrNoRows
}

func (f *fakeRepo) ListStoresByUserID(ctx context.Context, userID pgtype.UUID) ([]repository.Store, error) {
	if err := f.enter("ListStoresByUserID"); err != nil {
		return nil, err
	}
	var out []repository.Store
	for _, s := range f.stores {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (f *fakeRepo) DeactivateUserStores(ctx context.Context, userID pgtype.UUID) error {
	if err := f.enter("DeactivateUserStores"); err != nil {
		return err
	}
	for id, s := range f.stores {
		if s.UserID == userID && s.Active {
			s.Active = false
			f.stores[id] = s
		}
	}
	return nil
}

func (f *fakeRepo) ActivateStore(ctx context.Context, arg repository.ActivateStoreParams) (int64, error) {
	if err := f.enter("ActivateStore"); err != nil {
		return 0, err
	}
	s, ok := f.stores[arg.ID.Bytes]
	if !ok || s.UserID != arg.UserID {
		return 0, nil
	}
	if f.hasOtherActiveStore(arg.UserID, arg.ID) {
		return 0, uniqueViolation("stores_one_active_per_user")
	}
	s.Active = true
	f.stores[s.ID.Bytes] = s
	return 1, nil
}

func (f *fakeRepo) SetStoreProviderAccountID(ctx context.Context, arg repository.SetStoreProviderAccountIDParams) (int64, error) {
	if err := f.enter("SetStoreProviderAccountID"); err != nil {
		return 0, err
	}
	s, ok := f.stores[arg.ID.Bytes]
	if !ok || s.ProviderAccountID.Valid {
		return 0, nil
	}
	s.ProviderAccountID = arg.ProviderAccountID
	f.stores[s.ID.Bytes] = s
	return 1, nil
}

// =============================================================================
// Products and prices
// =============================================================================

func (f *fakeRepo) CreateProduct(ctx context.Context, arg repository.CreateProductParams) (repository.Product, error) {
	if err := f.enter("CreateProduct"); err != nil {
		return repository.Product{}, err
	}
	if _, ok := f.stores[arg.StoreID.Bytes]; !ok {
		return repository.Product{}, foreignKeyViolation("products_store_id_fkey")
	}
	if _, ok := f.products[arg.ID.Bytes]; ok {
		return repository.Product{}, uniqueViolation("products_pkey")
	}
	id := arg.ID
	if !id.Valid {
		id = f.newID()
	}
	p := repository.Product{
		ID:          id,
		StoreID:     arg.StoreID,
		Name:        arg.Name,
		Description: arg.Description,
		CreatedAt:   f.now(),
	}
	f.products[p.ID.Bytes] = p
	return p, nil
}

func (f *fakeRepo) SetProductProviderID(ctx context.Context, arg repository.SetProductProviderIDParams) (repository.Product, error) {
	if err := f.enter("SetProductProviderID"); err != nil {
		return repository.Product{}, err
	}
	p, ok := f.products[arg.ID.Bytes]
	if !ok || p.ProviderProductID.Valid {
		return repository.Product{}, pgx.ErrNoRows
	}
	p.ProviderProductID = arg.ProviderProductID
	p.UpdatedAt = f.now()
	f.products[p.ID.Bytes] = p
	return p, nil
}

func (f *fakeRepo) GetProductByID(ctx context.Context, id pgtype.UUID) (repository.Product, error) {
	if err := f.enter("GetProductByID"); err != nil {
		return repository.Product{}, err
	}
	p, ok := f.products[id.Bytes]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeRepo) GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error) {
	if err := f.enter("GetProductsByIDs"); err != nil {
		return nil, err
	}
	var out []repository.Product
	for _, id := range ids {
		if p, ok := f.products[id.Bytes]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListProductsByStoreID(ctx context.Context, storeID pgtype.UUID) ([]repository.Product, error) {
	if err := f.enter("ListProductsByStoreID"); err != nil {
		return nil, err
	}
	var out []repository.Product
	for _, p := range f.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (f *fakeRepo) UpdateProduct(ctx context.Context, arg repository.UpdateProductParams) (repository.Product, error) {
	if err := f.enter("UpdateProduct"); err != nil {
		return repository.Product{}, err
	}
	p, ok := f.products[arg.ID.Bytes]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	if arg.Name.Valid {
		p.Name = arg.Name.String
	}
	if arg.Description.Valid {
		p.Description = arg.Description
	}
	p.UpdatedAt = f.now()
	f.products[p.ID.Bytes] = p
	return p, nil
}

func (f *fakeRepo) SetProductArchived(ctx context.Context, arg repository.SetProductArchivedParams) (repository.Product, error) {
	if err := f.enter("SetProductArchived"); err != nil {
		return repository.Product{}, err
	}
	p, ok := f.products[arg.ID.Bytes]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	p.IsArchived = arg.IsArchived
	f.products[p.ID.Bytes] = p
	return p, nil
}

func (f *fakeRepo) CreateProductPrices(ctx context.Context, arg []repository.CreateProductPricesParams) (int64, error) {
	if err := f.enter("CreateProductPrices"); err != nil {
		return 0, err
	}
	for _, a := range arg {
		if _, ok := f.products[a.ProductID.Bytes]; !ok {
			return 0, foreignKeyViolation("product_prices_product_id_fkey")
		}
		for _, p := range f.prices {
			if p.ProviderPriceID == a.ProviderPriceID {
				return 0, uniqueViolation("product_prices_provider_price_id_key")
			}
		}
		p := repository.ProductPrice{
			ID:                f.newID(),
			ProductID:         a.ProductID,
			Type:              a.Type,
			RecurringInterval: a.RecurringInterval,
			AmountType:        a.AmountType,
			PriceAmount:       a.PriceAmount,
			PriceCurrency:     a.PriceCurrency,
			MinimumAmount:     a.MinimumAmount,
			MaximumAmount:     a.MaximumAmount,
			PresetAmount:      a.PresetAmount,
			ProviderPriceID:   a.ProviderPriceID,
			Position:          a.Position,
			CreatedAt:         f.now(),
		}
		f.prices[p.ID.Bytes] = p
	}
	return int64(len(arg)), nil
}

func (f *fakeRepo) ListProductPricesByProductID(ctx context.Context, productID pgtype.UUID) ([]repository.ProductPrice, error) {
	if err := f.enter("ListProductPricesByProductID"); err != nil {
		return nil, err
	}
	var out []repository.ProductPrice
	for _, p := range f.prices {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeRepo) GetProductPriceByID(ctx context.Context, id pgtype.UUID) (repository.ProductPrice, error) {
	if err := f.enter("GetProductPriceByID"); err != nil {
		return repository.ProductPrice{}, err
	}
	p, ok := f.prices[id.Bytes]
	if !ok {
		return repository.ProductPrice{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeRepo) SetProductPriceArchived(ctx context.Context, arg repository.SetProductPriceArchivedParams) (repository.ProductPrice, error) {
	if err := f.enter("SetProductPriceArchived"); err != nil {
		return repository.ProductPrice{}, err
	}
	p, ok := f.prices[arg.ID.Bytes]
	if !ok {
		return repository.ProductPrice{}, pgx.ErrNoRows
	}
	p.IsArchived = arg.IsArchived
	f.prices[p.ID.Bytes] = p
	return p, nil
}

// =============================================================================
// Discounts
// =============================================================================

func (f *fakeRepo) CreateDiscount(ctx context.Context, arg repository.CreateDiscountParams) (repository.Discount, error) {
	if err := f.enter("CreateDiscount"); err != nil {
		return repository.Discount{}, err
	}
	for _, d := range f.discounts {
		if arg.Code.Valid && d.StoreID == arg.StoreID && d.Code == arg.Code {
			return repository.Discount{}, uniqueViolation("discounts_code_per_store")
		}
		if d.ProviderCouponID == arg.ProviderCouponID {
			return repository.Discount{}, uniqueViolation("discounts_provider_coupon_id_key")
		}
	}
	if _, ok := f.discounts[arg.ID.Bytes]; ok {
		return repository.Discount{}, uniqueViolation("discounts_pkey")
	}
	id := arg.ID
	if !id.Valid {
		id = f.newID()
	}
	d := repository.Discount{
		ID:               id,
		StoreID:          arg.StoreID,
		Name:             arg.Name,
		Code:             arg.Code,
		Type:             arg.Type,
		BasisPoints:      arg.BasisPoints,
		Amount:           arg.Amount,
		Currency:         arg.Currency,
		Duration:         arg.Duration,
		DurationInMonths: arg.DurationInMonths,
		StartsAt:         arg.StartsAt,
		EndsAt:           arg.EndsAt,
		MaxRedemptions:   arg.MaxRedemptions,
		ProviderCouponID: arg.ProviderCouponID,
		CreatedAt:        f.now(),
	}
	f.discounts[d.ID.Bytes] = d
	return d, nil
}

func (f *fakeRepo) AddDiscountProducts(ctx context.Context, arg []repository.AddDiscountProductsParams) (int64, error) {
	if err := f.enter("AddDiscountProducts"); err != nil {
		return 0, err
	}
	for _, a := range arg {
		if _, ok := f.products[a.ProductID.Bytes]; !ok {
			return 0, foreignKeyViolation("discount_products_product_id_fkey")
		}
		f.scopes = append(f.scopes, repository.DiscountProduct{DiscountID: a.DiscountID, ProductID: a.ProductID})
	}
	return int64(len(arg)), nil
}

func (f *fakeRepo) ListDiscountProductIDs(ctx context.Context, discountID pgtype.UUID) ([]pgtype.UUID, error) {
	if err := f.enter("ListDiscountProductIDs"); err != nil {
		return nil, err
	}
	var out []pgtype.UUID
	for _, s := range f.scopes {
		if s.DiscountID == discountID {
			out = append(out, s.ProductID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Bytes[:], out[j].Bytes[:]) < 0 })
	return out, nil
}

func (f *fakeRepo) inScope(discountID, productID pgtype.UUID) bool {
	for _, s := range f.scopes {
		if s.DiscountID == discountID && s.ProductID == productID {
			return true
		}
	}
	return false
}

func (f *fakeRepo) GetDiscountByID(ctx context.Context, id pgtype.UUID) (repository.Discount, error) {
	if err := f.enter("GetDiscountByID"); err != nil {
		return repository.Discount{}, err
	}
	d, ok := f.discounts[id.Bytes]
	if !ok {
		return repository.Discount{}, pgx.ErrNoRows
	}
	return d, nil
}

func (f *fakeRepo) GetDiscountByCodeAndStore(ctx context.Context, arg repository.GetDiscountByCodeAndStoreParams) (repository.Discount, error) {
	if err := f.enter("GetDiscountByCodeAndStore"); err != nil {
		return repository.Discount{}, err
	}
	for _, d := range f.discounts {
		if d.Code.Valid && d.Code == arg.Code && d.StoreID == arg.StoreID {
			return d, nil
		}
	}
	return repository.Discount{}, pgx.ErrNoRows
}

func (f *fakeRepo) GetDiscountByIDAndProduct(ctx context.Context, arg repository.GetDiscountByIDAndProductParams) (repository.Discount, error) {
	if err := f.enter("GetDiscountByIDAndProduct"); err != nil {
		return repository.Discount{}, err
	}
	d, ok := f.discounts[arg.ID.Bytes]
	if !ok || !f.inScope(d.ID, arg.ProductID) {
		return repository.Discount{}, pgx.ErrNoRows
	}
	return d, nil
}

func (f *fakeRepo) GetDiscountByCodeAndProduct(ctx context.Context, arg repository.GetDiscountByCodeAndProductParams) (repository.Discount, error) {
	if err := f.enter("GetDiscountByCodeAndProduct"); err != nil {
		return repository.Discount{}, err
	}
	for _, d := range f.discounts {
		if d.Code.Valid && d.Code == arg.Code && f.inScope(d.ID, arg.ProductID) {
			return d, nil
		}
	}
	return repository.Discount{}, pgx.ErrNoRows
}

func (f *fakeRepo) GetDiscountByProviderCouponID(ctx context.Context, providerCouponID string) (repository.Discount, error) {
	if err := f.enter("GetDiscountByProviderCouponID"); err != nil {
		return repository.Discount{}, err
	}
	for _, d := range f.discounts {
		if d.ProviderCouponID == providerCouponID {
			return d, nil
		}
	}
	return repository.Discount{}, pgx.ErrNoRows
}

func (f *fakeRepo) ListDiscountsByStoreID(ctx context.Context, storeID pgtype.UUID) ([]repository.Discount, error) {
	if err := f.enter("ListDiscountsByStoreID"); err != nil {
		return nil, err
	}
	var out []repository.Discount
	for _, d := range f.discounts {
		if d.StoreID == storeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (f *fakeRepo) DeleteDiscount(ctx context.Context, id pgtype.UUID) (int64, error) {
	if err := f.enter("DeleteDiscount"); err != nil {
		return 0, err
	}
	if _, ok := f.discounts[id.Bytes]; !ok {
		return 0, nil
	}
	delete(f.discounts, id.Bytes)

	scopes := f.scopes[:0]
	for _, s := range f.scopes {
		if s.DiscountID != id {
			scopes = append(scopes, s)
		}
	}
	f.scopes = scopes

	redemptions := f.redemptions[:0]
	for _, r := range f.redemptions {
		if r.DiscountID != id {
			redemptions = append(redemptions, r)
		}
	}
	f.redemptions = redemptions
	return 1, nil
}

func (f *fakeRepo) CountDiscountRedemptions(ctx context.Context, discountID pgtype.UUID) (int64, error) {
	if err := f.enter("CountDiscountRedemptions"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range f.redemptions {
		if r.DiscountID == discountID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateDiscountRedemption(ctx context.Context, arg repository.CreateDiscountRedemptionParams) (repository.DiscountRedemption, error) {
	if err := f.enter("CreateDiscountRedemption"); err != nil {
		return repository.DiscountRedemption{}, err
	}
	if _, ok := f.discounts[arg.DiscountID.Bytes]; !ok {
		return repository.DiscountRedemption{}, foreignKeyViolation("discount_redemptions_discount_id_fkey")
	}
	if arg.CheckoutID.Valid {
		for _, r := range f.redemptions {
			if r.CheckoutID == arg.CheckoutID {
				return repository.DiscountRedemption{}, uniqueViolation("discount_redemptions_checkout_id_key")
			}
		}
	}
	r := repository.DiscountRedemption{
		ID:         f.newID(),
		DiscountID: arg.DiscountID,
		CheckoutID: arg.CheckoutID,
		RedeemedAt: f.now(),
	}
	f.redemptions = append(f.redemptions, r)
	return r, nil
}

// =============================================================================
// Customers, checkouts, subscriptions
// =============================================================================

func (f *fakeRepo) UpsertCustomer(ctx context.Context, arg repository.UpsertCustomerParams) (repository.Customer, error) {
	if err := f.enter("UpsertCustomer"); err != nil {
		return repository.Customer{}, err
	}
	for id, c := range f.customers {
		if c.StoreID == arg.StoreID && c.Email == arg.Email {
			if arg.Name.Valid {
				c.Name = arg.Name
			}
			if !c.UserID.Valid {
				c.UserID = arg.UserID
			}
			if !c.ProviderCustomerID.Valid {
				c.ProviderCustomerID = arg.ProviderCustomerID
			}
			c.UpdatedAt = f.now()
			f.customers[id] = c
			return c, nil
		}
	}
	c := repository.Customer{
		ID:                 f.newID(),
		StoreID:            arg.StoreID,
		UserID:             arg.UserID,
		Email:              arg.Email,
		Name:               arg.Name,
		ProviderCustomerID: arg.ProviderCustomerID,
		CreatedAt:          f.now(),
	}
	f.customers[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeRepo) GetCustomerByID(ctx context.Context, id pgtype.UUID) (repository.Customer, error) {
	if err := f.enter("GetCustomerByID"); err != nil {
		return repository.Customer{}, err
	}
	c, ok := f.customers[id.Bytes]
	if !ok {
		return repository.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeRepo) LinkCustomerUser(ctx context.Context, arg repository.LinkCustomerUserParams) (repository.Customer, error) {
	if err := f.enter("LinkCustomerUser"); err != nil {
		return repository.Customer{}, err
	}
	c, ok := f.customers[arg.ID.Bytes]
	if !ok {
		return repository.Customer{}, pgx.ErrNoRows
	}
	c.UserID = arg.UserID
	f.customers[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeRepo) CreateCheckout(ctx context.Context, arg repository.CreateCheckoutParams) (repository.Checkout, error) {
	if err := f.enter("CreateCheckout"); err != nil {
		return repository.Checkout{}, err
	}
	if _, ok := f.checkouts[arg.ID.Bytes]; ok {
		return repository.Checkout{}, uniqueViolation("checkouts_pkey")
	}
	if arg.ProviderSessionID.Valid {
		for _, c := range f.checkouts {
			if c.ProviderSessionID == arg.ProviderSessionID {
				return repository.Checkout{}, uniqueViolation("checkouts_provider_session_id_key")
			}
		}
	}
	c := repository.Checkout{
		ID:                 arg.ID,
		StoreID:            arg.StoreID,
		ProductID:          arg.ProductID,
		ProductPriceID:     arg.ProductPriceID,
		DiscountID:         arg.DiscountID,
		UserID:             arg.UserID,
		CustomerEmail:      arg.CustomerEmail,
		Amount:             arg.Amount,
		Currency:           arg.Currency,
		Status:             arg.Status,
		ProviderSessionID:  arg.ProviderSessionID,
		ProviderSessionUrl: arg.ProviderSessionUrl,
		CreatedAt:          f.now(),
	}
	f.checkouts[c.ID.Bytes] = c
	return c, nil
}

func (f *fakeRepo) GetCheckoutByID(ctx context.Context, id pgtype.UUID) (repository.Checkout, error) {
	if err := f.enter("GetCheckoutByID"); err != nil {
		return repository.Checkout{}, err
	}
	c, ok := f.checkouts[id.Bytes]
	if !ok {
		return repository.Checkout{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeRepo) GetCheckoutByProviderSessionID(ctx context.Context, providerSessionID pgtype.Text) (repository.Checkout, error) {
	if err := f.enter("GetCheckoutByProviderSessionID"); err != nil {
		return repository.Checkout{}, err
	}
	for _, c := range f.checkouts {
		if c.ProviderSessionID == providerSessionID {
			return c, nil
		}
	}
	return repository.Checkout{}, pgx.ErrNoRows
}

func (f *fakeRepo) ListCheckoutsByStoreID(ctx context.Context, arg repository.ListCheckoutsByStoreIDParams) ([]repository.Checkout, error) {
	if err := f.enter("ListCheckoutsByStoreID"); err != nil {
		return nil, err
	}
	var out []repository.Checkout
	for _, c := range f.checkouts {
		if c.StoreID != arg.StoreID {
			continue
		}
		if arg.ProductID.Valid && c.ProductID != arg.ProductID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (f *fakeRepo) ListStaleOpenCheckouts(ctx context.Context, arg repository.ListStaleOpenCheckoutsParams) ([]repository.Checkout, error) {
	if err := f.enter("ListStaleOpenCheckouts"); err != nil {
		return nil, err
	}
	var out []repository.Checkout
	for _, c := range f.checkouts {
		if c.Status == "open" && c.CreatedAt.Time.Before(arg.CreatedBefore.Time) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	if len(out) > int(arg.MaxRows) {
		out = out[:arg.MaxRows]
	}
	return out, nil
}

func (f *fakeRepo) TransitionCheckoutStatus(ctx context.Context, arg repository.TransitionCheckoutStatusParams) (int64, error) {
	if err := f.enter("TransitionCheckoutStatus"); err != nil {
		return 0, err
	}
	c, ok := f.checkouts[arg.ID.Bytes]
	if !ok || c.Status != "open" {
		return 0, nil
	}
	c.Status = arg.Status
	if arg.CustomerID.Valid {
		c.CustomerID = arg.CustomerID
	}
	c.UpdatedAt = f.now()
	f.checkouts[c.ID.Bytes] = c
	return 1, nil
}

func (f *fakeRepo) UpsertSubscription(ctx context.Context, arg repository.UpsertSubscriptionParams) (repository.Subscription, error) {
	if err := f.enter("UpsertSubscription"); err != nil {
		return repository.Subscription{}, err
	}
	s, ok := f.subscriptions[arg.ProviderSubscriptionID]
	if !ok {
		s = repository.Subscription{ID: f.newID(), ProviderSubscriptionID: arg.ProviderSubscriptionID, CreatedAt: f.now()}
	}
	s.ProviderCustomerID = arg.ProviderCustomerID
	s.ProviderPriceID = arg.ProviderPriceID
	s.Status = arg.Status
	s.CollectionMethod = arg.CollectionMethod
	s.CancelAtPeriodEnd = arg.CancelAtPeriodEnd
	s.UpdatedAt = f.now()
	f.subscriptions[arg.ProviderSubscriptionID] = s
	return s, nil
}

func (f *fakeRepo) GetSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (repository.Subscription, error) {
	if err := f.enter("GetSubscriptionByProviderID"); err != nil {
		return repository.Subscription{}, err
	}
	s, ok := f.subscriptions[providerSubscriptionID]
	if !ok {
		return repository.Subscription{}, pgx.ErrNoRows
	}
	return s, nil
}
