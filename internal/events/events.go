// Package events publishes domain events after state changes commit.
// Publishing is best effort: the state change has already happened, so
// callers log a failed publish and carry on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	ProductCreated              = "catalog.product.created"
	ProductUpdated              = "catalog.product.updated"
	DiscountCreated             = "discount.created"
	DiscountDeleted             = "discount.deleted"
	DiscountRedeemed            = "discount.redeemed"
	CheckoutCreated             = "checkout.created"
	CheckoutCompleted           = "checkout.completed"
	CheckoutExpired             = "checkout.expired"
	InvoicePaidOutOfBand        = "billing.invoice.paid_out_of_band"
	SubscriptionUpdated         = "billing.subscription.updated"
	SubscriptionPriceMigrated   = "billing.subscription.price_migrated"
	SubscriptionChargeAutomatic = "billing.subscription.charge_automatically"
)

// Event is the envelope every published message carries.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       any               `json:"data,omitempty"`
}

// New builds an event of the given type with a fresh id.
func New(eventType string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// With returns a copy of e carrying an extra attribute.
func (e Event) With(key, value string) Event {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                  { return nil }
