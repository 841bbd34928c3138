// Package transaction provides scoped, reentrant transactions over a single SQLite
// handle. A transaction found in the context is reused through a savepoint, so nested
// cascades commit or roll back with their caller.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrTransactionAborted is returned when a transaction is explicitly aborted
	ErrTransactionAborted = errors.New("transaction aborted")
	// ErrNestedTransactionNotSupported is returned when nested transactions are not supported
	ErrNestedTransactionNotSupported = errors.New("nested transactions require an existing transaction")
	// ErrTransactionDone is returned when committing or rolling back a finished transaction
	ErrTransactionDone = errors.New("transaction already finished")
)

// savepointCounter provides guaranteed unique savepoint IDs across all transactions
var savepointCounter atomic.Uint64

// Transaction represents a database transaction with support for nesting
type Transaction struct {
	db            *sql.DB
	tx            *sql.Tx
	ctx           context.Context
	parent        *Transaction
	level         int // 0 = top-level, 1+ = savepoint
	savepointName string
	committed     atomic.Bool
	rolledBack    atomic.Bool
	hooks         hooks
}

// Manager manages database transactions
type Manager struct {
	db *sql.DB
}

// NewManager creates a new transaction manager
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// DB returns the managed handle
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Begin starts a new top-level transaction. SQLite ignores isolation levels; every
// transaction is serializable.
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &Transaction{
		db:  m.db,
		tx:  tx,
		ctx: ctx,
	}, nil
}

// BeginTx starts a plain sql.Tx
func (m *Manager) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return m.db.BeginTx(ctx, nil)
}

// WithTransaction runs fn inside a transaction. When ctx already carries one, fn runs in
// a savepoint of it instead. The context passed to fn carries the transaction in use.
// Commits on success, rolls back on error or panic.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Transaction) error) error {
	var (
		tx  *Transaction
		err error
	)
	if outer, ok := Active(ctx); ok {
		tx, err = outer.BeginNested(ctx)
	} else {
		tx, err = m.Begin(ctx)
	}
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Context returns a context with the transaction embedded
func (t *Transaction) Context() context.Context {
	return WithContext(t.ctx, t)
}

// DB returns the underlying database connection
func (t *Transaction) DB() *sql.DB {
	return t.db
}

// Tx returns the underlying sql.Tx
func (t *Transaction) Tx() *sql.Tx {
	return t.tx
}

// Level returns the nesting level of the transaction
func (t *Transaction) Level() int {
	return t.level
}

// Commit commits the transaction, or releases the savepoint of a nested one. Commit
// hooks of a nested transaction are handed to its parent and run when the top-level
// transaction commits.
func (t *Transaction) Commit() error {
	if t.committed.Load() || t.rolledBack.Load() {
		return ErrTransactionDone
	}

	if t.level > 0 {
		if _, err := t.tx.ExecContext(t.ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", t.savepointName)); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		t.committed.Store(true)
		t.parent.hooks.adopt(&t.hooks)
		return nil
	}

	if err := t.tx.Commit(); err != nil {
		t.rolledBack.Store(true)
		t.hooks.runRollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.committed.Store(true)
	t.hooks.runCommit()
	return nil
}

// Rollback rolls back the transaction, or rolls back to the savepoint of a nested one
func (t *Transaction) Rollback() error {
	if t.committed.Load() {
		return ErrTransactionDone
	}
	if t.rolledBack.Load() {
		return nil
	}

	if t.level > 0 {
		_, err := t.tx.ExecContext(t.ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", t.savepointName))
		if err == nil {
			_, err = t.tx.ExecContext(t.ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", t.savepointName))
		}
		t.rolledBack.Store(true)
		t.hooks.runRollback()
		if err != nil {
			return fmt.Errorf("failed to rollback to savepoint: %w", err)
		}
		return nil
	}

	err := t.tx.Rollback()
	t.rolledBack.Store(true)
	t.hooks.runRollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// BeginNested creates a nested transaction using a savepoint
func (t *Transaction) BeginNested(ctx context.Context) (*Transaction, error) {
	if t.tx == nil {
		return nil, ErrNestedTransactionNotSupported
	}

	savepointName := fmt.Sprintf("sp_%d_%d", savepointCounter.Add(1), t.level+1)

	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", savepointName)); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	return &Transaction{
		db:            t.db,
		tx:            t.tx,
		ctx:           ctx,
		parent:        t,
		level:         t.level + 1,
		savepointName: savepointName,
	}, nil
}

// ExecContext executes a statement that doesn't return rows
func (t *Transaction) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows
func (t *Transaction) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row
func (t *Transaction) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Exec executes a statement with the transaction's context
func (t *Transaction) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

// Query executes a query with the transaction's context
func (t *Transaction) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

// QueryRow executes a single-row query with the transaction's context
func (t *Transaction) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

// IsCommitted returns true if the transaction has been committed
func (t *Transaction) IsCommitted() bool {
	return t.committed.Load()
}

// IsRolledBack returns true if the transaction has been rolled back
func (t *Transaction) IsRolledBack() bool {
	return t.rolledBack.Load()
}

// IsDone returns true once the transaction was committed or rolled back
func (t *Transaction) IsDone() bool {
	return t.IsCommitted() || t.IsRolledBack()
}
