// Package migrate brings a store's tables in line with the current model. The stored
// version lives in PRAGMA user_version and the table list in the metadata table; a
// migration adds what is missing, rebuilds tables SQLite cannot alter in place, and
// never drops a table or column.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/litemap/litemap/internal/database"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// Listener is told about a completed migration
type Listener interface {
	OnCreate(ctx context.Context)
	OnUpgrade(ctx context.Context, oldVersion, newVersion int)
}

// ListenerFuncs adapts plain functions to Listener. Nil functions are skipped.
type ListenerFuncs struct {
	Create  func(ctx context.Context)
	Upgrade func(ctx context.Context, oldVersion, newVersion int)
}

// OnCreate implements Listener
func (l ListenerFuncs) OnCreate(ctx context.Context) {
	if l.Create != nil {
		l.Create(ctx)
	}
}

// OnUpgrade implements Listener
func (l ListenerFuncs) OnUpgrade(ctx context.Context, oldVersion, newVersion int) {
	if l.Upgrade != nil {
		l.Upgrade(ctx, oldVersion, newVersion)
	}
}

// Runner executes migrations with transaction support
type Runner struct {
	txManager *transaction.Manager
	generator *Generator
	logger    *zap.Logger
	listener  Listener
}

// NewRunner creates a new migration runner. logger and listener may be nil.
func NewRunner(txManager *transaction.Manager, logger *zap.Logger, listener Listener) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		txManager: txManager,
		generator: NewGenerator(),
		logger:    logger,
		listener:  listener,
	}
}

// Plan computes what Migrate would do without changing the store
func (r *Runner) Plan(ctx context.Context, current *schema.Schema, version int) (*Plan, error) {
	if err := checkVersion(version); err != nil {
		return nil, err
	}
	snap, err := LoadSnapshot(ctx, r.txManager.DB(), current)
	if err != nil {
		return nil, err
	}
	return r.plan(snap, current, version)
}

func (r *Runner) plan(snap *Snapshot, current *schema.Schema, version int) (*Plan, error) {
	switch {
	case snap.Version > version:
		return nil, &ormerrors.ConfigurationError{
			Subject: "version",
			Reason:  fmt.Sprintf("store is at version %d, requested %d", snap.Version, version),
			Err:     ormerrors.ErrDowngrade,
		}
	case snap.Version == version:
		return &Plan{From: snap.Version, To: version}, nil
	}

	plan, err := r.generator.Generate(snap, current)
	if err != nil {
		return nil, err
	}
	plan.To = version
	return plan, nil
}

// Migrate applies the plan, rewrites the metadata table and stores the version, all in
// one transaction. The listener runs after commit: OnCreate for a fresh store,
// OnUpgrade otherwise. Requesting the stored version does nothing; requesting a lower
// one is a configuration error.
func (r *Runner) Migrate(ctx context.Context, current *schema.Schema, version int) (*Plan, error) {
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	var plan *Plan
	err := r.txManager.WithRetry(ctx, func(ctx context.Context, tx *transaction.Transaction) error {
		snap, err := LoadSnapshot(ctx, tx, current)
		if err != nil {
			return err
		}
		plan, err = r.plan(snap, current, version)
		if err != nil || plan.From == plan.To {
			return err
		}

		for _, stmt := range plan.Statements {
			r.logger.Debug("migration statement", zap.String("sql", stmt))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return ormerrors.Store("migrate", "", fmt.Errorf("%s: %w", stmt, err))
			}
		}
		return ormerrors.Store("migrate", "", database.SetUserVersion(ctx, tx, version))
	})
	if err != nil {
		r.logger.Warn("migration rolled back", zap.Int("version", version), zap.Error(err))
		return nil, err
	}

	if plan.From == plan.To {
		r.logger.Debug("store is up to date", zap.Int("version", version))
		return plan, nil
	}

	r.logger.Info("migration applied",
		zap.Int("from", plan.From),
		zap.Int("to", plan.To),
		zap.Int("changes", len(plan.Changes)),
		zap.Strings("rebuilt", plan.Rebuilt),
	)
	if r.listener != nil {
		if plan.Fresh() {
			r.listener.OnCreate(ctx)
		} else {
			r.listener.OnUpgrade(ctx, plan.From, plan.To)
		}
	}
	return plan, nil
}

func checkVersion(version int) error {
	if version < 1 {
		return ormerrors.Configuration("version", "must be at least 1, got %d", version)
	}
	return nil
}
