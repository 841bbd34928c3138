package crud

import (
	"context"
	"fmt"

	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/hooks"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/relationships"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// Delete removes e's row, the join rows naming it and the foreign keys pointing at it.
// Associated entities are never deleted. After commit e is reset to an unsaved state.
// Deleting an entity that was never persisted does nothing. Lifecycle hooks only run for
// this form; DeleteByID and DeleteWhere have no entity to hand them.
func (o *Operations) Delete(ctx context.Context, e model.Entity) (int64, error) {
	def, table, err := o.tableFor(e)
	if err != nil {
		return 0, err
	}
	if !e.Base().IsPersisted() {
		return 0, nil
	}

	var n int64
	err = o.run(ctx, OperationDelete, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		if err := o.hooks.Run(ctx, def.Name, hooks.BeforeDelete, e); err != nil {
			return err
		}
		n, err = o.deleteRows(ctx, tx, def, table, []int64{e.Base().ID()})
		if err != nil {
			return err
		}
		if o.hooks.Has(def.Name, hooks.AfterDelete) {
			tx.OnCommit(o.hooks.Deferred(ctx, def.Name, hooks.AfterDelete, e))
		}
		tx.OnCommit(e.Base().ClearSavedState)
		return nil
	})
	return n, err
}

// DeleteByID removes the row of def with the given identifier
func (o *Operations) DeleteByID(ctx context.Context, def *model.Definition, id int64) (int64, error) {
	table, err := o.table(def)
	if err != nil {
		return 0, err
	}
	var n int64
	err = o.run(ctx, OperationDelete, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		n, err = o.deleteRows(ctx, tx, def, table, []int64{id})
		return err
	})
	return n, err
}

// DeleteWhere removes every row of def matching the predicate. An empty predicate
// removes all rows.
func (o *Operations) DeleteWhere(ctx context.Context, def *model.Definition, predicate string, args ...interface{}) (int64, error) {
	table, err := o.table(def)
	if err != nil {
		return 0, err
	}
	var n int64
	err = o.run(ctx, OperationDelete, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		ids, err := o.selectIDs(ctx, tx, table, predicate, args...)
		if err != nil {
			return err
		}
		n, err = o.deleteRows(ctx, tx, def, table, ids)
		return err
	})
	return n, err
}

// deleteRows clears every reference to the rows of ids, then deletes them
func (o *Operations) deleteRows(ctx context.Context, tx *transaction.Transaction, def *model.Definition, table *schema.Table, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in := placeholders(len(ids))
	args := idArgs(ids)

	for _, ref := range o.schema.ReferencesTo(def.Name) {
		var query string
		if ref.Join {
			query = fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
				codegen.QuoteIdentifier(ref.Table), codegen.QuoteIdentifier(ref.Column), in)
		} else {
			query = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s IN (%s)",
				codegen.QuoteIdentifier(ref.Table), codegen.QuoteIdentifier(ref.Column), codegen.QuoteIdentifier(ref.Column), in)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, ConvertDBError(OperationDelete, ref.Table, err)
		}
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		codegen.QuoteIdentifier(table.Name), codegen.QuoteIdentifier(schema.IdentityColumn), in)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ConvertDBError(OperationDelete, table.Name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, ConvertDBError(OperationDelete, table.Name, err)
	}
	return n, nil
}
