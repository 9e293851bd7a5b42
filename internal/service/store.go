package service

import (
	"context"
	"log/slog"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// StoreService manages a user's stores. Each user has at most one active
// store; discounts are always created in it.
type StoreService interface {
	// CreateStore creates a store and makes it the user's active store.
	// Previously active stores of the user are deactivated in the same
	// transaction.
	CreateStore(ctx context.Context, userID pgtype.UUID, params CreateStoreParams) (*domain.Store, error)

	// ActivateStore makes storeID the user's only active store.
	// Returns ErrStoreNotFound, and changes nothing, if the store does not
	// belong to the user.
	ActivateStore(ctx context.Context, userID, storeID pgtype.UUID) (*domain.Store, error)

	// GetActiveStore returns the user's active store or ErrNoActiveStore.
	GetActiveStore(ctx context.Context, userID pgtype.UUID) (*domain.Store, error)

	GetStore(ctx context.Context, storeID pgtype.UUID) (*domain.Store, error)
	ListStores(ctx context.Context, userID pgtype.UUID) ([]domain.Store, error)
}

// CreateStoreParams contains parameters for creating a store.
type CreateStoreParams struct {
	Name        string `validate:"required,max=255"`
	URL         string `validate:"omitempty,url"`
	Description string `validate:"max=5000"`

	// Currency and Country default to usd and US.
	Currency string `validate:"omitempty,len=3,lowercase"`
	Country  string `validate:"omitempty,len=2,uppercase"`

	// AutomaticTax enables provider tax computation on checkouts.
	AutomaticTax bool
}

type storeService struct {
	deps   Deps
	logger *slog.Logger
}

// NewStoreService creates a new StoreService instance.
func NewStoreService(deps Deps) StoreService {
	deps = deps.withDefaults()
	return &storeService{
		deps:   deps,
		logger: deps.Logger.With("service", "store"),
	}
}

func (s *storeService) CreateStore(ctx context.Context, userID pgtype.UUID, params CreateStoreParams) (*domain.Store, error) {
	const op = "store.create"

	if err := validateStruct(op, params); err != nil {
		return nil, err
	}
	if params.Currency == "" {
		params.Currency = "usd"
	}
	if params.Country == "" {
		params.Country = "US"
	}

	var created repository.Store
	err := s.deps.Tx.RunInTx(ctx, postgres.TxOptions{Op: op}, func(ctx context.Context, q repository.Querier) error {
		if _, err := q.GetUserByID(ctx, userID); err != nil {
			if postgres.IsNoRows(err) {
				return ErrUserNotFound
			}
			return domain.Internal(err, op, "failed to get user")
		}
		if err := q.DeactivateUserStores(ctx, userID); err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "deactivate_stores", "failed to deactivate stores")
		}

		var err error
		created, err = q.CreateStore(ctx, repository.CreateStoreParams{
			UserID:       userID,
			Name:         params.Name,
			Url:          postgres.Text(params.URL),
			Description:  postgres.Text(params.Description),
			Currency:     params.Currency,
			Country:      params.Country,
			AutomaticTax: params.AutomaticTax,
			Active:       true,
		})
		if err != nil {
			if postgres.IsUniqueViolation(err, "stores_one_active_per_user") {
				return domain.Conflict(op, "another store was activated concurrently")
			}
			return domain.StepFailed(err, domain.EINTERNAL, op, "insert_store", "failed to create store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("store created",
		"store_id", postgres.UUIDString(created.ID),
		"user_id", postgres.UUIDString(userID),
	)
	return storeFromRow(created), nil
}

// ActivateStore is a compare-and-swap: deactivate all of the user's stores,
// then activate the target. Zero rows activated rolls the deactivation back.
func (s *storeService) ActivateStore(ctx context.Context, userID, storeID pgtype.UUID) (*domain.Store, error) {
	const op = "store.activate"

	var activated repository.Store
	err := s.deps.Tx.RunInTx(ctx, postgres.TxOptions{Op: op}, func(ctx context.Context, q repository.Querier) error {
		if err := q.DeactivateUserStores(ctx, userID); err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "deactivate_stores", "failed to deactivate stores")
		}

		n, err := q.ActivateStore(ctx, repository.ActivateStoreParams{ID: storeID, UserID: userID})
		if err != nil {
			return domain.StepFailed(err, domain.EINTERNAL, op, "activate_store", "failed to activate store")
		}
		if n == 0 {
			return ErrStoreNotFound
		}

		activated, err = q.GetStoreByID(ctx, storeID)
		if err != nil {
			return domain.Internal(err, op, "failed to reload store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("store activated",
		"store_id", postgres.UUIDString(storeID),
		"user_id", postgres.UUIDString(userID),
	)
	return storeFromRow(activated), nil
}

func (s *storeService) GetActiveStore(ctx context.Context, userID pgtype.UUID) (*domain.Store, error) {
	store, err := s.deps.Repo.GetActiveStoreByUserID(ctx, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrNoActiveStore
		}
		return nil, domain.Internal(err, "store.get_active", "failed to get active store")
	}
	return storeFromRow(store), nil
}

func (s *storeService) GetStore(ctx context.Context, storeID pgtype.UUID) (*domain.Store, error) {
	store, err := s.deps.Repo.GetStoreByID(ctx, storeID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.Internal(err, "store.get", "failed to get store")
	}
	return storeFromRow(store), nil
}

func (s *storeService) ListStores(ctx context.Context, userID pgtype.UUID) ([]domain.Store, error) {
	rows, err := s.deps.Repo.ListStoresByUserID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "store.list", "failed to list stores")
	}

	stores := make([]domain.Store, len(rows))
	for i, row := range rows {
		stores[i] = *storeFromRow(row)
	}
	return stores, nil
}
