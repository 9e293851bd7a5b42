package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/mercato/internal/billing"
	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/handler"
	"github.com/dukerupert/mercato/internal/middleware"
	"github.com/dukerupert/mercato/internal/telemetry"
	"github.com/stripe/stripe-go/v83"
)

// Event types the handler acts on. Everything else is acknowledged and ignored.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// CheckoutProcessor settles local checkouts from provider session events.
type CheckoutProcessor interface {
	Complete(ctx context.Context, sessionID string) (*domain.Checkout, error)
	Expire(ctx context.Context, sessionID string) (*domain.Checkout, error)
}

// SubscriptionReconciler mirrors provider subscription state locally.
type SubscriptionReconciler interface {
	ReconcileSubscription(ctx context.Context, sub *billing.Subscription) (*domain.Subscription, error)
}

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	provider      billing.Provider
	checkouts     CheckoutProcessor
	subscriptions SubscriptionReconciler
	metrics       *telemetry.Metrics
	logger        *slog.Logger
	config        StripeWebhookConfig
}

// StripeWebhookConfig contains configuration for Stripe webhook handling
type StripeWebhookConfig struct {
	// WebhookSecret is the webhook signing secret from the Stripe dashboard.
	// Empty falls back to the provider's configured secret.
	WebhookSecret string
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(
	provider billing.Provider,
	checkouts CheckoutProcessor,
	subscriptions SubscriptionReconciler,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
	config StripeWebhookConfig,
) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider:      provider,
		checkouts:     checkouts,
		subscriptions: subscriptions,
		metrics:       metrics,
		logger:        logger.With("handler", "stripe_webhook"),
		config:        config,
	}
}

// HandleWebhook processes incoming Stripe webhook events.
//
// Stripe retries any non-2xx response, so only processing failures that a
// retry can fix return 500. Events for sessions this system never created
// are acknowledged.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger checkout.session.completed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context(), h.logger)

	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Method not allowed"))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Missing signature"))
		return
	}

	if err := h.provider.VerifyWebhookSignature(payload, signature, h.config.WebhookSecret); err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Invalid JSON"))
		return
	}

	eventType := string(event.Type)
	logger = logger.With("event_id", event.ID, "event_type", eventType)
	telemetry.SetTags(r.Context(), map[string]string{
		"event_id":   event.ID,
		"event_type": eventType,
	})

	err = h.dispatch(r.Context(), logger, event)
	h.metrics.Webhook(eventType, time.Since(start), err)

	switch {
	case err == nil:
	case domain.IsCode(err, domain.ENOTFOUND):
		logger.Info("webhook references an unknown object", "error", err)
	default:
		handler.InternalErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeHandler) dispatch(ctx context.Context, logger *slog.Logger, event stripe.Event) error {
	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		session, err := decodeCheckoutSession(event)
		if err != nil {
			return err
		}
		checkout, err := h.checkouts.Complete(ctx, session.ID)
		if err != nil {
			return err
		}
		logger.Info("checkout completed", "session_id", session.ID, "status", checkout.Status)

	case EventCheckoutSessionExpired:
		session, err := decodeCheckoutSession(event)
		if err != nil {
			return err
		}
		checkout, err := h.checkouts.Expire(ctx, session.ID)
		if err != nil {
			return err
		}
		logger.Info("checkout expired", "session_id", session.ID, "status", checkout.Status)

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(eventObject(event), &sub); err != nil {
			return domain.Internal(err, "webhook.subscription", "failed to decode subscription")
		}
		if sub.ID == "" {
			return domain.Internal(nil, "webhook.subscription", "subscription has no id")
		}
		reconciled, err := h.subscriptions.ReconcileSubscription(ctx, billing.SubscriptionFromStripe(&sub))
		if err != nil {
			return err
		}
		logger.Info("subscription reconciled", "subscription_id", sub.ID, "status", reconciled.Status)

	default:
		logger.Debug("ignoring webhook event")
	}
	return nil
}

func decodeCheckoutSession(event stripe.Event) (*billing.CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(eventObject(event), &cs); err != nil {
		return nil, domain.Internal(err, "webhook.checkout_session", "failed to decode checkout session")
	}
	if cs.ID == "" {
		return nil, domain.Internal(nil, "webhook.checkout_session", "checkout session has no id")
	}
	return billing.CheckoutSessionFromStripe(&cs), nil
}

// eventObject returns the raw object of an event. A missing object decodes
// as JSON null and leaves the target empty.
func eventObject(event stripe.Event) json.RawMessage {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return json.RawMessage("null")
	}
	return event.Data.Raw
}
