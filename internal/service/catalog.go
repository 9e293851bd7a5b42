package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultCatalogTxTimeout bounds product creation, provider calls included.
const DefaultCatalogTxTimeout = 10 * time.Second

// CatalogService keeps products and prices mirrored at the provider.
type CatalogService interface {
	// CreateProduct creates a product with its prices, locally and at the
	// provider.
	//
	// Flow (one local transaction, bounded by the catalog timeout):
	//  1. Insert the product row
	//  2. Create the provider product
	//  3. Store the provider product id
	//  4. Create one provider price per spec, in input order
	//  5. Bulk-insert price rows derived from the provider's prices
	//
	// Any failure rolls back every local row. Provider objects created
	// before the failure are not deleted; they are logged and counted as
	// orphans.
	CreateProduct(ctx context.Context, storeID pgtype.UUID, params CreateProductParams) (*domain.Product, error)

	// UpdateProduct changes name or description at the provider, then locally.
	UpdateProduct(ctx context.Context, productID pgtype.UUID, params UpdateProductParams) (*domain.Product, error)

	ArchiveProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error)
	UnarchiveProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error)
	ArchivePrice(ctx context.Context, priceID pgtype.UUID) (*domain.ProductPrice, error)

	// GetProduct returns a product with all of its prices.
	GetProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error)

	// ListProducts returns a store's products with their active prices.
	ListProducts(ctx context.Context, storeID pgtype.UUID) ([]domain.Product, error)
}

// CreateProductParams contains parameters for creating a product.
type CreateProductParams struct {
	Name        string             `validate:"required,max=255"`
	Description string             `validate:"max=5000"`
	Prices      []domain.PriceSpec `validate:"required,min=1,dive"`

	// IdempotencyKey, when set, makes the whole creation safe to repeat:
	// the local product id is derived from it, so a retry after a failure
	// sends identical provider requests, and a retry after a success
	// returns the product already created.
	IdempotencyKey string
}

// UpdateProductParams contains the product fields that can change.
// Nil fields are left unchanged.
type UpdateProductParams struct {
	Name        *string `validate:"omitempty,min=1,max=255"`
	Description *string `validate:"omitempty,max=5000"`
}

type catalogService struct {
	deps      Deps
	txTimeout time.Duration
	logger    *slog.Logger
}

// NewCatalogService creates a new CatalogService instance.
// A zero txTimeout uses DefaultCatalogTxTimeout.
func NewCatalogService(deps Deps, txTimeout time.Duration) CatalogService {
	deps = deps.withDefaults()
	if txTimeout <= 0 {
		txTimeout = DefaultCatalogTxTimeout
	}
	return &catalogService{
		deps:      deps,
		txTimeout: txTimeout,
		logger:    deps.Logger.With("service", "catalog"),
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, storeID pgtype.UUID, params CreateProductParams) (*domain.Product, error) {
	const op = "catalog.create_product"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}
	for i, spec := range params.Prices {
		if err := spec.CheckInvariants(op); err != nil {
			return nil, prefixFields(err, fmt.Sprintf("Prices[%d].", i))
		}
	}

	if _, err := s.deps.Repo.GetStoreByID(ctx, storeID); err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.Internal(err, op, "failed to get store")
	}

	// A key that already produced a product replays it.
	productID := newLocalID("product", storeID, params.IdempotencyKey)
	if params.IdempotencyKey != "" {
		_, err := s.deps.Repo.GetProductByID(ctx, productID)
		switch {
		case err == nil:
			s.logger.Info("product create replayed", "product_id", postgres.UUIDString(productID))
			return s.GetProduct(ctx, productID)
		case !postgres.IsNoRows(err):
			return nil, domain.Internal(err, op, "failed to get product")
		}
	}

	// Provider objects created so far; only reported if the transaction fails.
	var providerProductID string
	var providerPriceIDs []string

	var product repository.Product
	var prices []repository.ProductPrice

	err := s.deps.Tx.RunInTx(ctx, postgres.TxOptions{Op: op, Timeout: s.txTimeout}, func(ctx context.Context, q repository.Querier) error {
		var err error
		product, err = q.CreateProduct(ctx, repository.CreateProductParams{
			ID:          productID,
			StoreID:     storeID,
			Name:        params.Name,
			Description: postgres.Text(params.Description),
		})
		if err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "insert_product", "Error creating product")
		}
		localProductID := postgres.UUIDString(product.ID)

		pp, err := s.deps.Provider.CreateProduct(ctx, billing.CreateProductParams{
			Name:        params.Name,
			Description: params.Description,
			Metadata: map[string]string{
				"product_id": localProductID,
				"store_id":   postgres.UUIDString(storeID),
			},
			IdempotencyKey: suffixKey(params.IdempotencyKey, "_product"),
		})
		if err != nil {
			return domain.StepFailed(err, domain.EPROVIDER, op, "create_provider_product", "Error creating product")
		}
		providerProductID = pp.ID

		product, err = q.SetProductProviderID(ctx, repository.SetProductProviderIDParams{
			ID:                product.ID,
			ProviderProductID: postgres.Text(pp.ID),
		})
		if err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "set_provider_product_id", "Error creating product")
		}

		rows := make([]repository.CreateProductPricesParams, 0, len(params.Prices))
		for i, spec := range params.Prices {
			step := fmt.Sprintf("create_provider_price[%d]", i)

			priceParams, err := billing.PriceParamsFromSpec(pp.ID, spec)
			if err != nil {
				return domain.StepFailed(domain.NewValidationError(op, fmt.Sprintf("Prices[%d]", i), err.Error()), domain.EINVALID, op, step, "Error creating price")
			}
			priceParams.Metadata = map[string]string{"product_id": localProductID}
			priceParams.IdempotencyKey = suffixKey(params.IdempotencyKey, fmt.Sprintf("_price_%d", i))

			price, err := s.deps.Provider.CreatePrice(ctx, priceParams)
			if err != nil {
				return domain.StepFailed(err, domain.EPROVIDER, op, step, "Error creating price")
			}
			providerPriceIDs = append(providerPriceIDs, price.ID)

			row, err := priceRowFromProvider(product.ID, int32(i), price)
			if err != nil {
				return domain.StepFailed(err, domain.EINTERNAL, op, fmt.Sprintf("map_provider_price[%d]", i), "Error mapping price")
			}
			rows = append(rows, row)
		}

		if _, err := q.CreateProductPrices(ctx, rows); err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "insert_prices", "Error creating prices")
		}

		prices, err = q.ListProductPricesByProductID(ctx, product.ID)
		if err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "load_prices", "Error loading prices")
		}
		return nil
	})
	s.deps.Metrics.CatalogSync(err)
	if err != nil {
		s.reportOrphans(op, storeID, providerProductID, providerPriceIDs, err)
		return nil, err
	}

	result := productFromRow(product, prices)
	s.logger.Info("product created",
		"product_id", postgres.UUIDString(result.ID),
		"provider_product_id", result.ProviderProductID,
		"prices", len(result.Prices),
	)
	s.deps.publish(ctx, s.logger, events.New(events.ProductCreated, map[string]any{
		"product_id":          postgres.UUIDString(result.ID),
		"provider_product_id": result.ProviderProductID,
		"price_count":         len(result.Prices),
	}).With("store_id", postgres.UUIDString(storeID)))

	return result, nil
}

// reportOrphans logs provider objects whose local rows were rolled back.
// They are left in place: the local transaction only protects local rows.
func (s *catalogService) reportOrphans(op string, storeID pgtype.UUID, productID string, priceIDs []string, cause error) {
	if productID == "" {
		return
	}
	s.logger.Error("provider objects orphaned by rolled back product creation",
		"op", op,
		"step", domain.ErrorStep(cause),
		"store_id", postgres.UUIDString(storeID),
		"provider_product_id", productID,
		"provider_price_ids", priceIDs,
		"error", cause,
	)
	s.deps.Metrics.Orphaned("product", 1)
	s.deps.Metrics.Orphaned("price", len(priceIDs))
}

// priceRowFromProvider builds a price row from the provider's view of a
// price, never from the caller's spec.
func priceRowFromProvider(productID pgtype.UUID, position int32, p *billing.Price) (repository.CreateProductPricesParams, error) {
	amountType, err := billing.DeriveAmountType(p)
	if err != nil {
		return repository.CreateProductPricesParams{}, err
	}

	row := repository.CreateProductPricesParams{
		ProductID:         productID,
		Type:              string(p.PriceType()),
		RecurringInterval: postgres.Text(p.RecurringInterval),
		AmountType:        string(amountType),
		PriceCurrency:     p.Currency,
		ProviderPriceID:   p.ID,
		Position:          position,
	}
	switch amountType {
	case domain.AmountTypeFixed:
		row.PriceAmount = postgres.Int8Ptr(p.UnitAmount)
	case domain.AmountTypeCustom:
		row.MinimumAmount = pgtype.Int8{Int64: p.CustomUnitAmount.Minimum, Valid: true}
		row.MaximumAmount = pgtype.Int8{Int64: p.CustomUnitAmount.Maximum, Valid: true}
		row.PresetAmount = pgtype.Int8{Int64: p.CustomUnitAmount.Preset, Valid: true}
	}
	return row, nil
}

// prefixFields namespaces the fields of a validation error, e.g. to point
// at one element of a list.
func prefixFields(err error, prefix string) error {
	fields := domain.GetValidationFields(err)
	if fields == nil {
		return err
	}
	prefixed := make(map[string]string, len(fields))
	for k, v := range fields {
		prefixed[prefix+k] = v
	}
	return &domain.ValidationError{Op: domain.ErrorOp(err), Fields: prefixed}
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID pgtype.UUID, params UpdateProductParams) (*domain.Product, error) {
	const op = "catalog.update_product"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}

	current, err := s.getProductRow(ctx, op, productID)
	if err != nil {
		return nil, err
	}
	if params.Name == nil && params.Description == nil {
		return s.GetProduct(ctx, productID)
	}

	if current.ProviderProductID.Valid {
		_, err := s.deps.Provider.UpdateProduct(ctx, current.ProviderProductID.String, billing.UpdateProductParams{
			Name:        params.Name,
			Description: params.Description,
		})
		if err != nil {
			return nil, domain.StepFailed(err, domain.EPROVIDER, op, "update_provider_product", "Error updating product")
		}
	}

	if _, err := s.deps.Repo.UpdateProduct(ctx, repository.UpdateProductParams{
		Name:        postgres.TextPtr(params.Name),
		Description: postgres.TextPtr(params.Description),
		ID:          productID,
	}); err != nil {
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "update_product", "Error updating product")
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.deps.publish(ctx, s.logger, events.New(events.ProductUpdated, map[string]any{
		"product_id": postgres.UUIDString(productID),
	}).With("store_id", postgres.UUIDString(product.StoreID)))
	return product, nil
}

func (s *catalogService) ArchiveProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error) {
	return s.setProductArchived(ctx, "catalog.archive_product", productID, true)
}

func (s *catalogService) UnarchiveProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error) {
	return s.setProductArchived(ctx, "catalog.unarchive_product", productID, false)
}

func (s *catalogService) setProductArchived(ctx context.Context, op string, productID pgtype.UUID, archived bool) (*domain.Product, error) {
	current, err := s.getProductRow(ctx, op, productID)
	if err != nil {
		return nil, err
	}

	if current.ProviderProductID.Valid {
		if _, err := s.deps.Provider.SetProductActive(ctx, current.ProviderProductID.String, !archived); err != nil {
			return nil, domain.StepFailed(err, domain.EPROVIDER, op, "set_provider_product_active", "Error archiving product")
		}
	}

	if _, err := s.deps.Repo.SetProductArchived(ctx, repository.SetProductArchivedParams{
		ID:         productID,
		IsArchived: archived,
	}); err != nil {
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "set_product_archived", "Error archiving product")
	}

	s.logger.Info("product archive state changed",
		"product_id", postgres.UUIDString(productID),
		"archived", archived,
	)
	return s.GetProduct(ctx, productID)
}

func (s *catalogService) ArchivePrice(ctx context.Context, priceID pgtype.UUID) (*domain.ProductPrice, error) {
	const op = "catalog.archive_price"

	price, err := s.deps.Repo.GetProductPriceByID(ctx, priceID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrPriceNotFound
		}
		return nil, domain.Internal(err, op, "failed to get price")
	}

	if _, err := s.deps.Provider.SetPriceActive(ctx, price.ProviderPriceID, false); err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "set_provider_price_active", "Error archiving price")
	}

	archived, err := s.deps.Repo.SetProductPriceArchived(ctx, repository.SetProductPriceArchivedParams{
		ID:         priceID,
		IsArchived: true,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "set_price_archived", "Error archiving price")
	}
	return priceFromRow(archived), nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID pgtype.UUID) (*domain.Product, error) {
	const op = "catalog.get_product"

	product, err := s.getProductRow(ctx, op, productID)
	if err != nil {
		return nil, err
	}
	prices, err := s.deps.Repo.ListProductPricesByProductID(ctx, productID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list prices")
	}
	return productFromRow(product, prices), nil
}

func (s *catalogService) ListProducts(ctx context.Context, storeID pgtype.UUID) ([]domain.Product, error) {
	const op = "catalog.list_products"

	rows, err := s.deps.Repo.ListProductsByStoreID(ctx, storeID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		prices, err := s.deps.Repo.ListProductPricesByProductID(ctx, row.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to list prices")
		}
		product := productFromRow(row, prices)
		product.Prices = product.ActivePrices()
		products = append(products, *product)
	}
	return products, nil
}

func (s *catalogService) getProductRow(ctx context.Context, op string, productID pgtype.UUID) (repository.Product, error) {
	product, err := s.deps.Repo.GetProductByID(ctx, productID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return repository.Product{}, ErrProductNotFound
		}
		return repository.Product{}, domain.Internal(err, op, "failed to get product")
	}
	return product, nil
}
