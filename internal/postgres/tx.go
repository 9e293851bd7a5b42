package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/repository"
	"github.com/jackc/pgx/v5"
)

// TxOptions configures one transaction.
type TxOptions struct {
	// Op names the operation owning the transaction, used in errors.
	Op string

	// Timeout bounds the whole transaction, including any provider calls
	// made inside it. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// TxRunner runs a function inside a database transaction. The function
// receives a Querier bound to the transaction; returning an error rolls
// every statement back.
type TxRunner interface {
	RunInTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, q repository.Querier) error) error
}

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements TxRunner on top of a pgx pool.
type TxManager struct {
	db     Beginner
	logger *slog.Logger
}

var _ TxRunner = (*TxManager)(nil)

// NewTxManager creates a transaction manager.
func NewTxManager(db Beginner, logger *slog.Logger) *TxManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{db: db, logger: logger.With("component", "tx")}
}

// RunInTx begins a transaction, runs fn, and commits when fn succeeds.
//
// Errors returned by fn are passed through unchanged after rollback so the
// failing step stays visible. Failures of the transaction itself (begin,
// commit, deadline) are reported as ETXABORTED.
func (m *TxManager) RunInTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, q repository.Querier) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.WrapError(err, domain.ETXABORTED, opts.Op, "failed to begin transaction")
	}

	q := repository.New(tx)
	if err := fn(ctx, q); err != nil {
		// The transaction context may already be done; roll back on a fresh one.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.logger.Error("rollback failed", "op", opts.Op, "error", rbErr)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &domain.Error{
				Code:    domain.ETXABORTED,
				Op:      opts.Op,
				Step:    domain.ErrorStep(err),
				Message: "transaction timed out",
				Err:     err,
			}
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.WrapError(err, domain.ETXABORTED, opts.Op, "transaction timed out")
		}
		return domain.WrapError(err, domain.ETXABORTED, opts.Op, "failed to commit transaction")
	}
	return nil
}
