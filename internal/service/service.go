package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/email"
	"github.com/dukerupert/mercato/internal/events"
	"github.com/dukerupert/mercato/internal/postgres"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/dukerupert/mercato/internal/telemetry"
)

// Deps bundles the collaborators services are constructed with.
// Repo, Tx and Provider are required; the rest default to no-ops.
type Deps struct {
	Repo     repository.Querier
	Tx       postgres.TxRunner
	Provider billing.Provider
	Events   events.Publisher
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger

	// Mailer sends transactional email. Nil disables email.
	Mailer Mailer

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Mailer sends the emails that follow a completed checkout.
type Mailer interface {
	SendPurchaseReceipt(ctx context.Context, data email.PurchaseReceiptEmail) error
	SendSaleNotification(ctx context.Context, data email.SaleNotificationEmail) error
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// publish sends an event after the state change it describes has been
// committed. A failed publish is logged and counted, never returned.
func (d Deps) publish(ctx context.Context, logger *slog.Logger, event events.Event) {
	if err := d.Events.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event", "type", event.Type, "error", err)
		d.Metrics.EventPublishFailed(event.Type)
	}
}

// suffixKey derives the idempotency key of one sub-step from the caller's
// key. No key means no key.
func suffixKey(key, suffix string) string {
	if key == "" {
		return ""
	}
	return key + suffix
}

// idempotencyNamespace seeds ids derived from idempotency keys.
var idempotencyNamespace = uuid.MustParse("8a4f3c1e-5b2d-4e7a-9c6f-2d1b0e3a7f54")

// newLocalID returns the id for a new local row. With an idempotency key
// the id is derived from kind, scope and key, so a retry reuses the id and
// every provider call carrying it repeats with identical params.
func newLocalID(kind string, scope pgtype.UUID, key string) pgtype.UUID {
	if key == "" {
		return postgres.UUID(uuid.New())
	}
	name := kind + ":" + postgres.UUIDString(scope) + ":" + key
	return postgres.UUID(uuid.NewSHA1(idempotencyNamespace, []byte(name)))
}

// Services is the set of services a process serves from one Deps.
type Services struct {
	Stores        StoreService
	Catalog       CatalogService
	Discounts     DiscountService
	Customers     CustomerService
	Checkouts     CheckoutService
	Subscriptions SubscriptionService
}

// NewServices constructs every service over deps. catalogTxTimeout bounds
// the product creation transaction; zero uses DefaultCatalogTxTimeout.
func NewServices(deps Deps, catalogTxTimeout time.Duration) *Services {
	customers := NewCustomerService(deps)
	discounts := NewDiscountService(deps)
	return &Services{
		Stores:        NewStoreService(deps),
		Catalog:       NewCatalogService(deps, catalogTxTimeout),
		Discounts:     discounts,
		Customers:     customers,
		Checkouts:     NewCheckoutService(deps, discounts, customers),
		Subscriptions: NewSubscriptionService(deps, customers),
	}
}
