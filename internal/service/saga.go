package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/mercato/internal/telemetry"
)

// sagaStep is one forward action of a saga. When a later step fails,
// compensate undoes the action; a nil compensate means nothing to undo.
type sagaStep struct {
	name       string
	action     func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs provider-first, database-second writes as an explicit sequence
// with compensating actions.
//
// Steps run in order. If a step fails, the compensations of the steps that
// already completed run in reverse order and the failing step's error is
// returned. A compensation that fails leaves an orphan behind; it is logged
// and counted but does not replace the original error.
type saga struct {
	name    string
	steps   []sagaStep
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

func newSaga(name string, logger *slog.Logger, metrics *telemetry.Metrics) *saga {
	return &saga{name: name, logger: logger, metrics: metrics}
}

func (s *saga) step(name string, action, compensate func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, action: action, compensate: compensate})
	return s
}

func (s *saga) run(ctx context.Context) error {
	for i, st := range s.steps {
		if err := st.action(ctx); err != nil {
			s.logger.Warn("saga step failed",
				"saga", s.name,
				"step", st.name,
				"error", err,
			)
			s.rollback(ctx, i)
			return err
		}
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, failed int) {
	// Compensations must run even if the caller gave up on the request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for i := failed - 1; i >= 0; i-- {
		st := s.steps[i]
		if st.compensate == nil {
			continue
		}
		err := st.compensate(ctx)
		s.metrics.Compensation(s.name, err)
		if err != nil {
			s.logger.Error("saga compensation failed, provider object orphaned",
				"saga", s.name,
				"step", st.name,
				"error", err,
			)
			continue
		}
		s.logger.Info("saga step compensated", "saga", s.name, "step", st.name)
	}
}
