package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/mercato/internal/service"
	"github.com/dukerupert/mercato/internal/telemetry"
)

// Reconciler settles checkouts that stayed open past their expected
// lifetime.
type Reconciler interface {
	ReconcileStale(ctx context.Context, staleAfter time.Duration, limit int) (*service.ReconcileResult, error)
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance in logs
	WorkerID string

	// PollInterval is how often to sweep for stale checkouts
	PollInterval time.Duration

	// StaleAfter is how long a checkout may stay open before it is
	// checked against the provider
	StaleAfter time.Duration

	// BatchSize is the maximum number of checkouts checked per sweep
	BatchSize int
}

// Worker periodically reconciles stale open checkouts. It covers provider
// webhooks that were never delivered.
type Worker struct {
	config    Config
	checkouts Reconciler
	logger    *slog.Logger
}

// NewWorker creates a new checkout sweeper
func NewWorker(checkouts Reconciler, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Minute
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = service.DefaultReconcileBatch
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:    config,
		checkouts: checkouts,
		logger:    logger.With("worker_id", config.WorkerID),
	}
}

// Start sweeps once, then on every tick until the context is cancelled.
// Sweeps never overlap.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"poll_interval", w.config.PollInterval,
		"stale_after", w.config.StaleAfter,
		"batch_size", w.config.BatchSize,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one reconcile pass, bounded by the poll interval.
func (w *Worker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.config.PollInterval)
	defer cancel()

	start := time.Now()
	result, err := w.checkouts.ReconcileStale(sweepCtx, w.config.StaleAfter, w.config.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("checkout sweep failed", "error", err, "duration", time.Since(start))
		telemetry.CaptureError(ctx, err, map[string]any{"worker_id": w.config.WorkerID})
		return
	}

	w.logger.Debug("checkout sweep finished",
		"checked", result.Checked,
		"failed", result.Failed,
		"duration", time.Since(start),
	)
}
