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

// Save persists e and the associated entities its foreign keys need. A persisted entity
// is updated in place under its own identifier.
func (o *Operations) Save(ctx context.Context, e model.Entity) error {
	def, table, err := o.tableFor(e)
	if err != nil {
		return err
	}
	op := OperationCreate
	if e.Base().IsPersisted() {
		op = OperationUpdate
	}
	return o.run(ctx, op, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		return o.save(ctx, tx, c, def, e)
	})
}

// save is one step of a cascade. A persisted entity is written under its own identifier.
func (o *Operations) save(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade, def *model.Definition, e model.Entity) error {
	var t *target
	if e.Base().IsPersisted() {
		t = byID(e.Base().ID(), nil)
	}
	_, err := o.persist(ctx, tx, c, def, e, t)
	return err
}

// target selects the rows an update writes; a nil target inserts a new row
type target struct {
	where string
	args  []interface{}
	only  map[string]bool
}

func byID(id int64, only map[string]bool) *target {
	return &target{
		where: codegen.QuoteIdentifier(schema.IdentityColumn) + " = ?",
		args:  []interface{}{id},
		only:  only,
	}
}

// persist resolves e's associations, saves its prerequisites and writes its row (or the
// rows t selects). An entity already in progress is skipped so cycles end. It returns
// the number of rows written.
func (o *Operations) persist(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade, def *model.Definition, e model.Entity, t *target) (int64, error) {
	started, err := c.Begin(e)
	if err != nil || !started {
		return 0, err
	}
	defer c.End(e)

	table, err := o.table(def)
	if err != nil {
		return 0, err
	}
	c.Touch(e)

	if err := o.hooks.Run(ctx, def.Name, hooks.BeforeSave, e); err != nil {
		return 0, err
	}
	if o.hooks.Has(def.Name, hooks.AfterSave) {
		tx.OnCommit(o.hooks.Deferred(ctx, def.Name, hooks.AfterSave, e))
	}

	res, err := o.resolver.Resolve(ctx, c, def, e)
	if err != nil {
		return 0, err
	}
	// read every column before anything is written
	if _, _, err := o.rowValues(def, e, res, nil); err != nil {
		return 0, err
	}

	for _, pre := range res.Prerequisites {
		preDef, err := o.catalog.For(pre)
		if err != nil {
			return 0, err
		}
		if err := o.save(ctx, tx, c, preDef, pre); err != nil {
			return 0, err
		}
	}

	if t == nil {
		// prerequisites now have identifiers
		columns, values, err := o.rowValues(def, e, res, nil)
		if err != nil {
			return 0, err
		}
		id, err := o.insertRow(ctx, tx, table, columns, values)
		if err != nil {
			return 0, err
		}
		e.Base().AssignID(id)
		return 1, o.link(ctx, tx, e, []int64{id}, res)
	}

	ids, err := o.selectIDs(ctx, tx, table, t.where, t.args...)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	columns, values, err := o.rowValues(def, e, res, t.only)
	if err != nil {
		return 0, err
	}
	if err := o.updateRows(ctx, tx, table, columns, values, ids); err != nil {
		return 0, err
	}
	return int64(len(ids)), o.link(ctx, tx, e, ids, res)
}

// insertRow inserts one row and returns its identifier
func (o *Operations) insertRow(ctx context.Context, tx *transaction.Transaction, table *schema.Table, columns []string, values []interface{}) (int64, error) {
	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", codegen.QuoteIdentifier(table.Name))
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			codegen.QuoteIdentifier(table.Name),
			codegen.QuoteIdentifiers(columns),
			placeholders(len(columns)),
		)
	}

	result, err := tx.ExecContext(ctx, query, values...)
	if err != nil {
		return 0, ConvertDBError(OperationCreate, table.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, ConvertDBError(OperationCreate, table.Name, err)
	}
	return id, nil
}

// link applies what the analyzers deferred until the saved rows had identifiers: other
// rows pointed back at them, then join rows. Stale links are never removed.
func (o *Operations) link(ctx context.Context, tx *transaction.Transaction, e model.Entity, ids []int64, res *relationships.Resolution) error {
	for _, id := range ids {
		for _, u := range res.Deferred {
			target := u.Target.Base().ID()
			if target <= 0 {
				continue
			}
			query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
				codegen.QuoteIdentifier(u.Table),
				codegen.QuoteIdentifier(u.Column),
				codegen.QuoteIdentifier(schema.IdentityColumn),
			)
			if _, err := tx.ExecContext(ctx, query, id, target); err != nil {
				return ConvertDBError(OperationUpdate, u.Table, err)
			}
		}

		for _, join := range res.Joins {
			for _, other := range e.Base().JoinIDs(join.Key) {
				if err := o.insertJoin(ctx, tx, join, id, other); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// insertJoin adds a join row unless it already exists. A symmetric join matches the
// pair in either orientation.
func (o *Operations) insertJoin(ctx context.Context, tx *transaction.Transaction, join relationships.JoinFlush, id, other int64) error {
	col := codegen.QuoteIdentifier(join.Column)
	otherCol := codegen.QuoteIdentifier(join.OtherColumn)
	table := codegen.QuoteIdentifier(join.Table)

	exists := fmt.Sprintf("%s = ? AND %s = ?", col, otherCol)
	args := []interface{}{id, other, id, other}
	if join.Symmetric {
		exists = fmt.Sprintf("(%s) OR (%s = ? AND %s = ?)", exists, col, otherCol)
		args = append(args, other, id)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM %s WHERE %s)",
		table, col, otherCol, table, exists)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return ConvertDBError(OperationCreate, join.Table, err)
	}
	return nil
}
