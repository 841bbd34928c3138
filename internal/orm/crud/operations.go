// Package crud persists entity graphs. Every call runs in one transaction: associated
// entities are saved first where a foreign key needs them, the entity's row is written,
// rows of other tables are pointed back at it and join rows are added. A failure rolls
// the store back and puts every touched entity back to its previous state.
package crud

import (
	"context"

	"go.uber.org/zap"

	"github.com/litemap/litemap/internal/orm/hooks"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/relationships"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// Operation represents a CRUD operation type
type Operation int

const (
	// OperationCreate represents a create operation
	OperationCreate Operation = iota
	// OperationRead represents a read operation
	OperationRead
	// OperationUpdate represents an update operation
	OperationUpdate
	// OperationDelete represents a delete operation
	OperationDelete
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operations runs the persistence protocol for every definition of one schema. It does
// not lock; callers serialize access to the store.
type Operations struct {
	schema    *schema.Schema
	catalog   *model.Catalog
	resolver  *relationships.Resolver
	loader    *relationships.Loader
	txManager *transaction.Manager
	logger    *zap.Logger
	maxDepth  int
	hooks     *hooks.Registry
}

// Option configures Operations
type Option func(*Operations)

// WithLogger sets the logger used to report failed cascades
func WithLogger(logger *zap.Logger) Option {
	return func(o *Operations) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHooks runs the lifecycle hooks of r around saves and deletes
func WithHooks(r *hooks.Registry) Option {
	return func(o *Operations) { o.hooks = r }
}

// WithMaxDepth bounds how deep prerequisite saves may recurse
func WithMaxDepth(depth int) Option {
	return func(o *Operations) { o.maxDepth = depth }
}

// NewOperations creates a new Operations instance
func NewOperations(s *schema.Schema, catalog *model.Catalog, txManager *transaction.Manager, opts ...Option) *Operations {
	o := &Operations{
		schema:    s,
		catalog:   catalog,
		resolver:  relationships.NewResolver(s, catalog),
		txManager: txManager,
		logger:    zap.NewNop(),
		maxDepth:  relationships.DefaultMaxDepth,
	}
	o.loader = relationships.NewLoader(s, catalog, o.fetch)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Schema returns the schema the operations write against
func (o *Operations) Schema() *schema.Schema {
	return o.schema
}

// Catalog returns the definitions the operations know about
func (o *Operations) Catalog() *model.Catalog {
	return o.catalog
}

// run executes fn in a transaction (a savepoint when ctx already carries one) with a
// fresh cascade. Touched entities are flagged saved on commit and restored on rollback.
func (o *Operations) run(ctx context.Context, op Operation, table string, fn func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error) error {
	c := relationships.NewCascade(o.maxDepth)
	err := o.txManager.WithTransaction(ctx, func(ctx context.Context, tx *transaction.Transaction) error {
		tx.OnRollback(c.Restore)
		if err := fn(ctx, tx, c); err != nil {
			return err
		}
		if op != OperationDelete {
			tx.OnCommit(c.MarkSaved)
		}
		return nil
	})
	if err != nil {
		o.logger.Warn("cascade rolled back",
			zap.String("op", op.String()),
			zap.String("table", table),
			zap.Error(err),
		)
	}
	return err
}

// tableFor returns the definition and table an entity maps to
func (o *Operations) tableFor(e model.Entity) (*model.Definition, *schema.Table, error) {
	def, err := o.catalog.For(e)
	if err != nil {
		return nil, nil, err
	}
	table, err := o.table(def)
	if err != nil {
		return nil, nil, err
	}
	return def, table, nil
}

func (o *Operations) table(def *model.Definition) (*schema.Table, error) {
	table, ok := o.schema.TableFor(def.Name)
	if !ok {
		return nil, &schemaMissError{name: def.Name}
	}
	return table, nil
}
