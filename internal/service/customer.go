package service

import (
	"context"
	"log/slog"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

// CustomerService resolves provider identities for local users and stores,
// caching provider ids locally.
type CustomerService interface {
	// GetOrCreateUserCustomer returns the provider customer of a user,
	// creating it on first use.
	//
	// Concurrent first calls for one user converge on a single cached id:
	// the provider create is keyed by user, and the local write only
	// succeeds while no id is cached. The loser of the local write returns
	// the winner's customer.
	GetOrCreateUserCustomer(ctx context.Context, userID pgtype.UUID) (*billing.Customer, error)

	// GetOrCreateStoreAccount returns the connected account id of a store,
	// creating the account on first use.
	GetOrCreateStoreAccount(ctx context.Context, storeID pgtype.UUID) (string, error)

	// CreateAccountLink returns an onboarding link for the store's
	// connected account.
	CreateAccountLink(ctx context.Context, storeID pgtype.UUID, returnURL, refreshURL string) (*billing.AccountLink, error)

	// LinkCustomerUser links a store customer to a user. Linking a customer
	// to the user it is already linked to is a no-op.
	LinkCustomerUser(ctx context.Context, customerID, userID pgtype.UUID) (*domain.Customer, error)
}

type customerService struct {
	deps   Deps
	logger *slog.Logger
}

// NewCustomerService creates a new CustomerService instance.
func NewCustomerService(deps Deps) CustomerService {
	deps = deps.withDefaults()
	return &customerService{
		deps:   deps,
		logger: deps.Logger.With("service", "customer"),
	}
}

func (s *customerService) GetOrCreateUserCustomer(ctx context.Context, userID pgtype.UUID) (*billing.Customer, error) {
	const op = "customer.get_or_create_user_customer"

	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	if user.ProviderCustomerID.Valid {
		return s.getCustomer(ctx, op, user.ProviderCustomerID.String)
	}

	uid := postgres.UUIDString(userID)
	customer, err := s.deps.Provider.CreateCustomer(ctx, billing.CreateCustomerParams{
		Email:          user.Email,
		Name:           user.Name.String,
		Metadata:       map[string]string{"user_id": uid},
		IdempotencyKey: "customer_user_" + uid,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "create_provider_customer", "Error creating customer")
	}

	n, err := s.deps.Repo.SetUserProviderCustomerID(ctx, repository.SetUserProviderCustomerIDParams{
		ID:                 userID,
		ProviderCustomerID: postgres.Text(customer.ID),
	})
	if err != nil && !postgres.IsUniqueViolation(err, "") {
		return nil, domain.StepFailed(err, domain.EINTERNAL, op, "cache_provider_customer_id", "Error saving customer")
	}
	if err == nil && n == 1 {
		s.logger.Info("provider customer created",
			"user_id", uid,
			"provider_customer_id", customer.ID,
		)
		return customer, nil
	}

	// Another request cached an id first; return its customer.
	winner, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !winner.ProviderCustomerID.Valid {
		return nil, domain.Internal(nil, op, "provider customer id missing after conflicting write")
	}
	if winner.ProviderCustomerID.String != customer.ID {
		s.logger.Warn("provider customer creation race lost, customer orphaned",
			"user_id", uid,
			"provider_customer_id", winner.ProviderCustomerID.String,
			"orphaned_customer_id", customer.ID,
		)
		s.deps.Metrics.Orphaned("customer", 1)
		return s.getCustomer(ctx, op, winner.ProviderCustomerID.String)
	}
	return customer, nil
}

func (s *customerService) getUser(ctx context.Context, op string, userID pgtype.UUID) (repository.User, error) {
	user, err := s.deps.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return repository.User{}, ErrUserNotFound
		}
		return repository.User{}, domain.Internal(err, op, "failed to get user")
	}
	return user, nil
}

func (s *customerService) getCustomer(ctx context.Context, op, customerID string) (*billing.Customer, error) {
	customer, err := s.deps.Provider.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "get_provider_customer", "Error retrieving customer")
	}
	return customer, nil
}

func (s *customerService) GetOrCreateStoreAccount(ctx context.Context, storeID pgtype.UUID) (string, error) {
	const op = "customer.get_or_create_store_account"

	store, err := s.getStore(ctx, op, storeID)
	if err != nil {
		return "", err
	}
	if store.ProviderAccountID.Valid {
		return store.ProviderAccountID.String, nil
	}

	owner, err := s.getUser(ctx, op, store.UserID)
	if err != nil {
		return "", err
	}

	sid := postgres.UUIDString(storeID)
	account, err := s.deps.Provider.CreateAccount(ctx, billing.CreateAccountParams{
		Email:   owner.Email,
		Country: store.Country,
		Metadata: map[string]string{
			"store_id": sid,
			"user_id":  postgres.UUIDString(store.UserID),
		},
		IdempotencyKey: "account_store_" + sid,
	})
	if err != nil {
		return "", domain.StepFailed(err, domain.EPROVIDER, op, "create_provider_account", "Error creating account")
	}

	n, err := s.deps.Repo.SetStoreProviderAccountID(ctx, repository.SetStoreProviderAccountIDParams{
		ID:                storeID,
		ProviderAccountID: postgres.Text(account.ID),
	})
	if err != nil && !postgres.IsUniqueViolation(err, "") {
		return "", domain.StepFailed(err, domain.EINTERNAL, op, "cache_provider_account_id", "Error saving account")
	}
	if err == nil && n == 1 {
		s.logger.Info("connected account created",
			"store_id", sid,
			"provider_account_id", account.ID,
		)
		return account.ID, nil
	}

	winner, err := s.getStore(ctx, op, storeID)
	if err != nil {
		return "", err
	}
	if !winner.ProviderAccountID.Valid {
		return "", domain.Internal(nil, op, "provider account id missing after conflicting write")
	}
	if winner.ProviderAccountID.String != account.ID {
		s.logger.Warn("connected account creation race lost, account orphaned",
			"store_id", sid,
			"provider_account_id", winner.ProviderAccountID.String,
			"orphaned_account_id", account.ID,
		)
		s.deps.Metrics.Orphaned("account", 1)
	}
	return winner.ProviderAccountID.String, nil
}

func (s *customerService) getStore(ctx context.Context, op string, storeID pgtype.UUID) (repository.Store, error) {
	store, err := s.deps.Repo.GetStoreByID(ctx, storeID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return repository.Store{}, ErrStoreNotFound
		}
		return repository.Store{}, domain.Internal(err, op, "failed to get store")
	}
	return store, nil
}

func (s *customerService) CreateAccountLink(ctx context.Context, storeID pgtype.UUID, returnURL, refreshURL string) (*billing.AccountLink, error) {
	const op = "customer.create_account_link"

	accountID, err := s.GetOrCreateStoreAccount(ctx, storeID)
	if err != nil {
		return nil, err
	}

	link, err := s.deps.Provider.CreateAccountLink(ctx, billing.CreateAccountLinkParams{
		AccountID:  accountID,
		ReturnURL:  returnURL,
		RefreshURL: refreshURL,
	})
	if err != nil {
		return nil, domain.StepFailed(err, domain.EPROVIDER, op, "create_account_link", "Error creating account link")
	}
	return link, nil
}

func (s *customerService) LinkCustomerUser(ctx context.Context, customerID, userID pgtype.UUID) (*domain.Customer, error) {
	const op = "customer.link_user"

	customer, err := s.deps.Repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, domain.Internal(err, op, "failed to get customer")
	}

	if customer.UserID.Valid {
		if customer.UserID == userID {
			return customerFromRow(customer), nil
		}
		return nil, domain.Conflict(op, "customer is linked to another user")
	}

	if _, err := s.getUser(ctx, op, userID); err != nil {
		return nil, err
	}

	linked, err := s.deps.Repo.LinkCustomerUser(ctx, repository.LinkCustomerUserParams{
		ID:     customerID,
		UserID: userID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to link customer")
	}

	s.logger.Info("customer linked to user",
		"customer_id", postgres.UUIDString(customerID),
		"user_id", postgres.UUIDString(userID),
	)
	return customerFromRow(linked), nil
}
