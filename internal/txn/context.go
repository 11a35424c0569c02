package txn

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/persistence"
)

// Effect is a deferred action registered during a transaction and run
// only after that transaction commits.
type Effect func(ctx context.Context) error

// Context is the unit of work handed to a transactional function. It
// binds repositories to the open transaction via DB and collects
// effects to run after commit. It is created per operation and torn
// down at commit or rollback; never persisted or shared.
type Context struct {
	db      persistence.Queryable
	logger  *zap.Logger
	effects []namedEffect
}

type namedEffect struct {
	name string
	run  Effect
}

// NewContext binds a unit of work to the given database handle.
func NewContext(db persistence.Queryable, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{db: db, logger: logger}
}

// DB returns the handle all writes inside this unit of work must use.
func (c *Context) DB() persistence.Queryable {
	return c.db
}

// AfterCommit queues an effect to run strictly after a successful
// commit, in registration order. Rolled-back transactions discard the
// queue.
func (c *Context) AfterCommit(name string, effect Effect) {
	c.effects = append(c.effects, namedEffect{name: name, run: effect})
}

// Drain runs queued effects in FIFO order. Called by the committer once
// the transaction is durable; effects run outside the transaction's
// isolation and each failure is logged without stopping the rest.
func (c *Context) Drain(ctx context.Context) {
	for _, effect := range c.effects {
		runEffect(ctx, c.logger, effect.name, effect.run)
	}
	c.effects = nil
}

// RunNow executes a single effect immediately. Used when no transaction
// is active.
func RunNow(ctx context.Context, logger *zap.Logger, name string, effect Effect) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runEffect(ctx, logger, name, effect)
}

func runEffect(ctx context.Context, logger *zap.Logger, name string, effect Effect) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("effect panicked", zap.String("effect", name), zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	if err := effect(ctx); err != nil {
		logger.Warn("effect failed", zap.String("effect", name), zap.Error(err))
	}
}
