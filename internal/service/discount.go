package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// DiscountService manages discounts and their provider coupons.
//
// Writes are provider-first: a discount row is inserted only after its
// coupon exists, and deleted only after its coupon is gone. A discount row
// is therefore never observable without a provider coupon id.
type DiscountService interface {
	// Create creates a discount in the user's active store.
	//
	// Flow:
	//  1. Resolve the user's active store
	//  2. Check the code is free in the store
	//  3. Resolve every scoped product in the store
	//  4. Create the provider coupon
	//  5. Insert the discount row and its product scope
	//
	// If step 5 fails the coupon is deleted again.
	Create(ctx context.Context, userID pgtype.UUID, params CreateDiscountParams) (*domain.Discount, error)

	// Delete deletes the provider coupon, then the local row. If the
	// provider delete fails the local row is left intact.
	Delete(ctx context.Context, discountID pgtype.UUID) error

	// IsRedeemable reports whether the discount is inside its window and
	// below its redemption cap.
	IsRedeemable(ctx context.Context, discount *domain.Discount) (bool, error)

	GetByID(ctx context.Context, discountID pgtype.UUID) (*domain.Discount, error)
	GetByCodeAndStore(ctx context.Context, code string, storeID pgtype.UUID) (*domain.Discount, error)

	// GetByIDAndProduct and GetByCodeAndProduct only find discounts scoped
	// to the product. A discount outside the scope is reported as not found.
	GetByIDAndProduct(ctx context.Context, discountID, productID pgtype.UUID) (*domain.Discount, error)
	GetByCodeAndProduct(ctx context.Context, code string, productID pgtype.UUID) (*domain.Discount, error)

	GetByProviderCouponID(ctx context.Context, couponID string) (*domain.Discount, error)
	List(ctx context.Context, storeID pgtype.UUID) ([]domain.Discount, error)

	// RecordRedemption appends a redemption. checkoutID may be invalid for
	// redemptions outside a checkout; a checkout redeems at most once.
	RecordRedemption(ctx context.Context, discountID, checkoutID pgtype.UUID) (*domain.DiscountRedemption, error)
}

// CreateDiscountParams contains parameters for creating a discount.
type CreateDiscountParams struct {
	Name string `validate:"required,max=255"`

	// Code is optional and unique within the store.
	Code string `validate:"omitempty,max=64"`

	Type        domain.DiscountType `validate:"required,oneof=percentage fixed"`
	BasisPoints int32               `validate:"required_if=Type percentage,omitempty,min=1,max=10000"`
	Amount      int64               `validate:"required_if=Type fixed,omitempty,gt=0"`
	Currency    string              `validate:"required_if=Type fixed,omitempty,len=3,lowercase"`

	// Duration defaults to once.
	Duration         domain.DiscountDuration `validate:"omitempty,oneof=once forever repeating"`
	DurationInMonths *int32                  `validate:"required_if=Duration repeating,omitempty,min=1"`

	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxRedemptions *int32 `validate:"omitempty,min=1"`

	// ProductIDs scopes the discount to products of the store.
	ProductIDs []pgtype.UUID

	// IdempotencyKey, when set, derives the discount id so a retry after a
	// success returns the discount already created. It is not sent with the
	// coupon: a coupon deleted by compensation would otherwise be replayed
	// to the retry.
	IdempotencyKey string
}

func (p CreateDiscountParams) checkInvariants(op string) error {
	var err error
	if strings.ContainsFunc(p.Code, unicode.IsSpace) {
		err = domain.AddFieldError(err, "Code", "cannot contain whitespace")
	}
	switch p.Type {
	case domain.DiscountTypePercentage:
		if p.Amount != 0 || p.Currency != "" {
			err = domain.AddFieldError(err, "Amount", "percentage discounts cannot carry an amount")
		}
	case domain.DiscountTypeFixed:
		if p.BasisPoints != 0 {
			err = domain.AddFieldError(err, "BasisPoints", "fixed discounts cannot carry basis points")
		}
	}
	if p.Duration != domain.DiscountDurationRepeating && p.DurationInMonths != nil {
		err = domain.AddFieldError(err, "DurationInMonths", "only repeating discounts have a duration in months")
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		err = domain.AddFieldError(err, "EndsAt", "must be after StartsAt")
	}
	if ve, ok := err.(*domain.ValidationError); ok {
		ve.Op = op
		return ve
	}
	return err
}

type discountService struct {
	deps   Deps
	logger *slog.Logger
}

// NewDiscountService creates a new DiscountService instance.
func NewDiscountService(deps Deps) DiscountService {
	deps = deps.withDefaults()
	return &discountService{
		deps:   deps,
		logger: deps.Logger.With("service", "discount"),
	}
}

func (s *discountService) Create(ctx context.Context, userID pgtype.UUID, params CreateDiscountParams) (*domain.Discount, error) {
	const op = "discount.create"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}
	if err := params.checkInvariants(op); err != nil {
		return nil, err
	}
	if params.Duration == "" {
		params.Duration = domain.DiscountDurationOnce
	}

	// Step 1: Active store
	store, err := s.deps.Repo.GetActiveStoreByUserID(ctx, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrNoActiveStore
		}
		return nil, domain.Internal(err, op, "failed to get active store")
	}

	discountID := newLocalID("discount", store.ID, params.IdempotencyKey)
	if params.IdempotencyKey != "" {
		existing, err := s.GetByID(ctx, discountID)
		switch {
		case err == nil:
			s.logger.Info("discount create replayed", "discount_id", postgres.UUIDString(discountID))
			return existing, nil
		case !domain.IsCode(err, domain.ENOTFOUND):
			return nil, err
		}
	}

	// Step 2: Code uniqueness
	if params.Code != "" {
		_, err := s.deps.Repo.GetDiscountByCodeAndStore(ctx, repository.GetDiscountByCodeAndStoreParams{
			Code:    postgres.Text(params.Code),
			StoreID: store.ID,
		})
		switch {
		case err == nil:
			return nil, ErrDiscountCodeExists
		case !postgres.IsNoRows(err):
			return nil, domain.Internal(err, op, "failed to check discount code")
		}
	}

	// Step 3: Product scope
	productIDs := uniqueUUIDs(params.ProductIDs)
	var providerProductIDs []string
	if len(productIDs) > 0 {
		products, err := s.deps.Repo.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to get products")
		}
		found := make(map[[16]byte]bool, len(products))
		for _, p := range products {
			if p.StoreID != store.ID {
				continue
			}
			found[p.ID.Bytes] = true
			if p.ProviderProductID.Valid {
				providerProductIDs = append(providerProductIDs, p.ProviderProductID.String)
			}
		}
		for _, id := range productIDs {
			if !found[id.Bytes] {
				return nil, domain.NotFound(op, "product", postgres.UUIDString(id))
			}
		}
	}

	// Steps 4 and 5, with compensation
	var coupon *billing.Coupon
	var created repository.Discount

	err = newSaga(op, s.logger, s.deps.Metrics).
		step("create_provider_coupon",
			func(ctx context.Context) error {
				var err error
				coupon, err = s.deps.Provider.CreateCoupon(ctx, couponParams(params, providerProductIDs, store.ID))
				if err != nil {
					return domain.StepFailed(err, domain.EPROVIDER, op, "create_provider_coupon", "Error creating coupon")
				}
				return nil
			},
			func(ctx context.Context) error {
				return s.deps.Provider.DeleteCoupon(ctx, coupon.ID)
			},
		).
		step("insert_discount",
			func(ctx context.Context) error {
				return s.deps.Tx.RunInTx(ctx, postgres.TxOptions{Op: op}, func(ctx context.Context, q repository.Querier) error {
					var err error
					created, err = q.CreateDiscount(ctx, discountRowParams(discountID, store.ID, params, coupon.ID))
					if err != nil {
						if postgres.IsUniqueViolation(err, "discounts_code_per_store") {
							return domain.StepFailed(ErrDiscountCodeExists, domain.ECONFLICT, op, "insert_discount", "Error creating discount")
						}
						return domain.StepFailed(err, domain.EINTERNAL, op, "insert_discount", "Error creating discount")
					}
					if len(productIDs) == 0 {
						return nil
					}
					links := make([]repository.AddDiscountProductsParams, len(productIDs))
					for i, id := range productIDs {
						links[i] = repository.AddDiscountProductsParams{DiscountID: created.ID, ProductID: id}
					}
					if _, err := q.AddDiscountProducts(ctx, links); err != nil {
						return domain.StepFailed(err, domain.EINTERNAL, op, "insert_discount_products", "Error creating discount")
					}
					return nil
				})
			},
			nil,
		).
		run(ctx)
	if err != nil {
		return nil, err
	}

	discount := discountFromRow(created, productIDs)
	s.deps.Metrics.DiscountCreated()
	s.logger.Info("discount created",
		"discount_id", postgres.UUIDString(discount.ID),
		"provider_coupon_id", discount.ProviderCouponID,
		"store_id", postgres.UUIDString(store.ID),
	)
	s.deps.publish(ctx, s.logger, events.New(events.DiscountCreated, map[string]any{
		"discount_id":        postgres.UUIDString(discount.ID),
		"provider_coupon_id": discount.ProviderCouponID,
		"code":               discount.Code,
	}).With("store_id", postgres.UUIDString(store.ID)))

	return discount, nil
}

func couponParams(params CreateDiscountParams, providerProductIDs []string, storeID pgtype.UUID) billing.CreateCouponParams {
	cp := billing.CreateCouponParams{
		Name:       params.Name,
		Duration:   string(params.Duration),
		RedeemBy:   params.EndsAt,
		ProductIDs: providerProductIDs,
		Metadata:   map[string]string{"store_id": postgres.UUIDString(storeID)},
	}
	switch params.Type {
	case domain.DiscountTypePercentage:
		pct := domain.PercentFromBasisPoints(params.BasisPoints)
		cp.PercentOff = &pct
	case domain.DiscountTypeFixed:
		amount := params.Amount
		cp.AmountOff = &amount
		cp.Currency = params.Currency
	}
	if params.MaxRedemptions != nil {
		n := int64(*params.MaxRedemptions)
		cp.MaxRedemptions = &n
	}
	if params.DurationInMonths != nil {
		n := int64(*params.DurationInMonths)
		cp.DurationInMonths = &n
	}
	return cp
}

func discountRowParams(id, storeID pgtype.UUID, params CreateDiscountParams, couponID string) repository.CreateDiscountParams {
	row := repository.CreateDiscountParams{
		ID:               id,
		StoreID:          storeID,
		Name:             params.Name,
		Code:             postgres.Text(params.Code),
		Type:             string(params.Type),
		Duration:         string(params.Duration),
		DurationInMonths: postgres.Int4Ptr(params.DurationInMonths),
		StartsAt:         postgres.TimestamptzPtr(params.StartsAt),
		EndsAt:           postgres.TimestamptzPtr(params.EndsAt),
		MaxRedemptions:   postgres.Int4Ptr(params.MaxRedemptions),
		ProviderCouponID: couponID,
	}
	switch params.Type {
	case domain.DiscountTypePercentage:
		row.BasisPoints = pgtype.Int4{Int32: params.BasisPoints, Valid: true}
	case domain.DiscountTypeFixed:
		row.Amount = pgtype.Int8{Int64: params.Amount, Valid: true}
		row.Currency = postgres.Text(params.Currency)
	}
	return row
}

func (s *discountService) Delete(ctx context.Context, discountID pgtype.UUID) error {
	const op = "discount.delete"

	discount, err := s.deps.Repo.GetDiscountByID(ctx, discountID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return ErrDiscountNotFound
		}
		return domain.Internal(err, op, "failed to get discount")
	}

	if err := s.deps.Provider.DeleteCoupon(ctx, discount.ProviderCouponID); err != nil {
		if !errors.Is(err, billing.ErrNotFound) {
			return domain.StepFailed(err, domain.EPROVIDER, op, "delete_provider_coupon", "Error deleting coupon")
		}
		// Already gone at the provider; finish the local half.
		s.logger.Warn("provider coupon already deleted",
			"discount_id", postgres.UUIDString(discountID),
			"provider_coupon_id", discount.ProviderCouponID,
		)
	}

	n, err := s.deps.Repo.DeleteDiscount(ctx, discountID)
	if err != nil {
		return domain.StepFailed(err, domain.EINTERNAL, op, "delete_discount", "Error deleting discount")
	}
	if n == 0 {
		return ErrDiscountNotFound
	}

	s.deps.Metrics.DiscountDeleted()
	s.logger.Info("discount deleted",
		"discount_id", postgres.UUIDString(discountID),
		"provider_coupon_id", discount.ProviderCouponID,
	)
	s.deps.publish(ctx, s.logger, events.New(events.DiscountDeleted, map[string]any{
		"discount_id":        postgres.UUIDString(discountID),
		"provider_coupon_id": discount.ProviderCouponID,
	}).With("store_id", postgres.UUIDString(discount.StoreID)))
	return nil
}

func (s *discountService) IsRedeemable(ctx context.Context, discount *domain.Discount) (bool, error) {
	// Uncapped discounts never need the count.
	if discount.MaxRedemptions == nil {
		return discount.IsRedeemable(s.deps.Now(), 0), nil
	}
	count, err := s.deps.Repo.CountDiscountRedemptions(ctx, discount.ID)
	if err != nil {
		return false, domain.Internal(err, "discount.is_redeemable", "failed to count redemptions")
	}
	return discount.IsRedeemable(s.deps.Now(), count), nil
}

func (s *discountService) GetByID(ctx context.Context, discountID pgtype.UUID) (*domain.Discount, error) {
	return s.load(ctx, "discount.get_by_id", func() (repository.Discount, error) {
		return s.deps.Repo.GetDiscountByID(ctx, discountID)
	})
}

func (s *discountService) GetByCodeAndStore(ctx context.Context, code string, storeID pgtype.UUID) (*domain.Discount, error) {
	return s.load(ctx, "discount.get_by_code_and_store", func() (repository.Discount, error) {
		return s.deps.Repo.GetDiscountByCodeAndStore(ctx, repository.GetDiscountByCodeAndStoreParams{
			Code:    postgres.Text(code),
			StoreID: storeID,
		})
	})
}

func (s *discountService) GetByIDAndProduct(ctx context.Context, discountID, productID pgtype.UUID) (*domain.Discount, error) {
	return s.load(ctx, "discount.get_by_id_and_product", func() (repository.Discount, error) {
		return s.deps.Repo.GetDiscountByIDAndProduct(ctx, repository.GetDiscountByIDAndProductParams{
			ID:        discountID,
			ProductID: productID,
		})
	})
}

func (s *discountService) GetByCodeAndProduct(ctx context.Context, code string, productID pgtype.UUID) (*domain.Discount, error) {
	return s.load(ctx, "discount.get_by_code_and_product", func() (repository.Discount, error) {
		return s.deps.Repo.GetDiscountByCodeAndProduct(ctx, repository.GetDiscountByCodeAndProductParams{
			Code:      postgres.Text(code),
			ProductID: productID,
		})
	})
}

func (s *discountService) GetByProviderCouponID(ctx context.Context, couponID string) (*domain.Discount, error) {
	return s.load(ctx, "discount.get_by_provider_coupon_id", func() (repository.Discount, error) {
		return s.deps.Repo.GetDiscountByProviderCouponID(ctx, couponID)
	})
}

// load runs a single-row lookup and attaches the product scope.
func (s *discountService) load(ctx context.Context, op string, get func() (repository.Discount, error)) (*domain.Discount, error) {
	row, err := get()
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrDiscountNotFound
		}
		return nil, domain.Internal(err, op, "failed to get discount")
	}
	productIDs, err := s.deps.Repo.ListDiscountProductIDs(ctx, row.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to get discount products")
	}
	return discountFromRow(row, productIDs), nil
}

func (s *discountService) List(ctx context.Context, storeID pgtype.UUID) ([]domain.Discount, error) {
	const op = "discount.list"

	rows, err := s.deps.Repo.ListDiscountsByStoreID(ctx, storeID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list discounts")
	}

	discounts := make([]domain.Discount, 0, len(rows))
	for _, row := range rows {
		productIDs, err := s.deps.Repo.ListDiscountProductIDs(ctx, row.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to get discount products")
		}
		discounts = append(discounts, *discountFromRow(row, productIDs))
	}
	return discounts, nil
}

func (s *discountService) RecordRedemption(ctx context.Context, discountID, checkoutID pgtype.UUID) (*domain.DiscountRedemption, error) {
	redemption, err := recordRedemption(ctx, s.deps.Repo, discountID, checkoutID)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.DiscountRedeemed()
	s.deps.publish(ctx, s.logger, events.New(events.DiscountRedeemed, map[string]any{
		"discount_id": postgres.UUIDString(discountID),
		"checkout_id": postgres.UUIDString(checkoutID),
	}))
	return redemption, nil
}

// recordRedemption inserts a redemption with q, which may be bound to a
// caller's transaction.
func recordRedemption(ctx context.Context, q repository.Querier, discountID, checkoutID pgtype.UUID) (*domain.DiscountRedemption, error) {
	const op = "discount.record_redemption"

	row, err := q.CreateDiscountRedemption(ctx, repository.CreateDiscountRedemptionParams{
		DiscountID: discountID,
		CheckoutID: checkoutID,
	})
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, ""):
			return nil, ErrAlreadyRedeemed
		case postgres.IsForeignKeyViolation(err):
			return nil, ErrDiscountNotFound
		}
		return nil, domain.Internal(err, op, "failed to record redemption")
	}
	return redemptionFromRow(row), nil
}

func uniqueUUIDs(ids []pgtype.UUID) []pgtype.UUID {
	seen := make(map[[16]byte]bool, len(ids))
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		if !id.Valid || seen[id.Bytes] {
			continue
		}
		seen[id.Bytes] = true
		out = append(out, id)
	}
	return out
}
