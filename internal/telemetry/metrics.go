package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of billing synchronization.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Provider API performance
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec

	// Catalog
	CatalogSyncs            *prometheus.CounterVec
	OrphanedProviderObjects *prometheus.CounterVec

	// Discounts
	DiscountsCreated    prometheus.Counter
	DiscountsDeleted    prometheus.Counter
	DiscountRedemptions prometheus.Counter
	SagaCompensations   *prometheus.CounterVec

	// Checkout funnel
	CheckoutsCreated    *prometheus.CounterVec
	CheckoutsFinished   *prometheus.CounterVec
	CheckoutsReconciled *prometheus.CounterVec

	// Out-of-band billing
	OutOfBandInvoices *prometheus.CounterVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Events
	EventPublishFailures *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mercato"
	}
	f := promauto.With(reg)

	return &Metrics{
		// =======================================================================
		// Provider
		// =======================================================================
		ProviderCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Payment provider API calls",
			},
			[]string{"operation", "status"}, // status: ok, error
		),
		ProviderLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "call_duration_seconds",
				Help:      "Payment provider API call duration (helps differentiate app slowness from provider issues)",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		// =======================================================================
		// Catalog
		// =======================================================================
		CatalogSyncs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "syncs_total",
				Help:      "Product creations mirrored to the provider",
			},
			[]string{"result"}, // result: success, failure
		),
		OrphanedProviderObjects: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "orphaned_provider_objects_total",
				Help:      "Provider objects created before a local rollback and left without a local row",
			},
			[]string{"kind"}, // kind: product, price, coupon
		),

		// =======================================================================
		// Discounts
		// =======================================================================
		DiscountsCreated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discount",
				Name:      "created_total",
				Help:      "Discounts created with their provider coupon",
			},
		),
		DiscountsDeleted: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discount",
				Name:      "deleted_total",
				Help:      "Discounts deleted with their provider coupon",
			},
		),
		DiscountRedemptions: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discount",
				Name:      "redemptions_total",
				Help:      "Discount redemptions recorded",
			},
		),
		SagaCompensations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discount",
				Name:      "saga_compensations_total",
				Help:      "Compensating provider actions run after a failed local step",
			},
			[]string{"saga", "result"}, // result: success, failure
		),

		// =======================================================================
		// Checkout
		// =======================================================================
		CheckoutsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "created_total",
				Help:      "Checkout sessions created",
			},
			[]string{"mode"}, // mode: payment, subscription
		),
		CheckoutsFinished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "finished_total",
				Help:      "Checkouts reaching a terminal status",
			},
			[]string{"status"}, // status: succeeded, expired
		),
		CheckoutsReconciled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "reconciled_total",
				Help:      "Stale open checkouts checked against the provider by the sweeper",
			},
			[]string{"outcome"}, // outcome: completed, expired, open, failed
		),

		// =======================================================================
		// Billing
		// =======================================================================
		OutOfBandInvoices: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "out_of_band_invoices_total",
				Help:      "Invoices driven through the out-of-band payment sequence",
			},
			[]string{"result"}, // result: paid, left_open, failed
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "received_total",
				Help:      "Provider webhook events received",
			},
			[]string{"event_type"},
		),
		WebhookFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "failed_total",
				Help:      "Provider webhook events that failed processing",
			},
			[]string{"event_type"},
		),
		WebhookLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "processing_duration_seconds",
				Help:      "Time spent processing a provider webhook event",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),

		// =======================================================================
		// Events
		// =======================================================================
		EventPublishFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "publish_failures_total",
				Help:      "Domain events that could not be published",
			},
			[]string{"type"},
		),
	}
}

// ObserveProviderCall records one provider API call.
func (m *Metrics) ObserveProviderCall(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderCalls.WithLabelValues(operation, status).Inc()
	m.ProviderLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// CatalogSync records the outcome of a product creation.
func (m *Metrics) CatalogSync(err error) {
	if m == nil {
		return
	}
	m.CatalogSyncs.WithLabelValues(result(err)).Inc()
}

// Orphaned counts provider objects left behind by a local rollback.
func (m *Metrics) Orphaned(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanedProviderObjects.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) DiscountCreated() {
	if m == nil {
		return
	}
	m.DiscountsCreated.Inc()
}

func (m *Metrics) DiscountDeleted() {
	if m == nil {
		return
	}
	m.DiscountsDeleted.Inc()
}

func (m *Metrics) DiscountRedeemed() {
	if m == nil {
		return
	}
	m.DiscountRedemptions.Inc()
}

// Compensation records a compensating action of the named saga.
func (m *Metrics) Compensation(saga string, err error) {
	if m == nil {
		return
	}
	m.SagaCompensations.WithLabelValues(saga, result(err)).Inc()
}

func (m *Metrics) CheckoutCreated(mode string) {
	if m == nil {
		return
	}
	m.CheckoutsCreated.WithLabelValues(mode).Inc()
}

func (m *Metrics) CheckoutFinished(status string) {
	if m == nil {
		return
	}
	m.CheckoutsFinished.WithLabelValues(status).Inc()
}

// CheckoutReconciled records the outcome of reconciling one stale checkout.
func (m *Metrics) CheckoutReconciled(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutsReconciled.WithLabelValues(outcome).Inc()
}

// OutOfBandInvoice records where the pay-out-of-band sequence ended.
func (m *Metrics) OutOfBandInvoice(outcome string) {
	if m == nil {
		return
	}
	m.OutOfBandInvoices.WithLabelValues(outcome).Inc()
}

// Webhook records one processed webhook event.
func (m *Metrics) Webhook(eventType string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(eventType).Inc()
	m.WebhookLatency.WithLabelValues(eventType).Observe(duration.Seconds())
	if err != nil {
		m.WebhookFailed.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) EventPublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(eventType).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
