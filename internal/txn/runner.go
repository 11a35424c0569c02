package txn

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// Manager runs a function inside a transaction. Writes made through the
// Context become visible only on commit; queued effects run only after.
type Manager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txc *Context) error) error
}

// Beginner opens transactions; satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner is the pgx-backed Manager.
type Runner struct {
	db     Beginner
	logger *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(db Beginner, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{db: db, logger: logger}
}

// WithTransaction opens a unit of work, runs fn, and commits if fn
// returns nil. Any error from fn or from commit rolls back fully and
// discards queued effects. Effects drain only after a durable commit,
// so a later effect failure can never unwind the state change.
func (r *Runner) WithTransaction(ctx context.Context, fn func(ctx context.Context, txc *Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	txc := NewContext(tx, r.logger)
	if err := fn(ctx, txc); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return apperrors.NewStoreError(err)
	}

	txc.Drain(ctx)
	return nil
}
