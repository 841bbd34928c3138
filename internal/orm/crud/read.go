package crud

import (
	"context"
	"fmt"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/codegen"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// Find loads the row with the given identifier into dst. Associations are not loaded.
// A missing row is reported as ErrNotFound.
func (o *Operations) Find(ctx context.Context, dst model.Entity, id int64) error {
	def, table, err := o.tableFor(dst)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectColumns(table),
		codegen.QuoteIdentifier(table.Name),
		codegen.QuoteIdentifier(schema.IdentityColumn),
	)
	rows, err := o.executor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return ConvertDBError(OperationRead, table.Name, err)
	}
	defer rows.Close()

	found := false
	err = scanRows(rows, func(columns []string, values []interface{}) error {
		found = true
		return o.assignRow(def, dst, columns, values)
	})
	if err != nil {
		return ConvertDBError(OperationRead, table.Name, err)
	}
	if !found {
		return &ormerrors.StoreError{Op: OperationRead.String(), Table: table.Name, Err: ormerrors.ErrNotFound}
	}
	return nil
}

// FindAll loads the rows with the given identifiers, in identifier order. An empty list
// loads every row.
func (o *Operations) FindAll(ctx context.Context, def *model.Definition, ids ...int64) ([]model.Entity, error) {
	table, err := o.table(def)
	if err != nil {
		return nil, err
	}
	return o.fetchTable(ctx, o.executor(ctx), def, table, ids)
}

// FindEager loads the row with the given identifier into dst and fills its associations
// one level deep
func (o *Operations) FindEager(ctx context.Context, dst model.Entity, id int64) error {
	if err := o.Find(ctx, dst, id); err != nil {
		return err
	}
	return o.LoadAssociations(ctx, o.executor(ctx), []model.Entity{dst})
}

// FindAllEager is FindAll followed by LoadAssociations
func (o *Operations) FindAllEager(ctx context.Context, def *model.Definition, ids ...int64) ([]model.Entity, error) {
	out, err := o.FindAll(ctx, def, ids...)
	if err != nil {
		return nil, err
	}
	if err := o.LoadAssociations(ctx, o.executor(ctx), out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadAssociations fills the association fields of loaded entities from the store. The
// associated entities are loaded without their own associations.
func (o *Operations) LoadAssociations(ctx context.Context, exec database.Executor, entities []model.Entity) error {
	groups := make(map[*model.Definition][]model.Entity)
	var order []*model.Definition
	for _, e := range entities {
		def, err := o.catalog.For(e)
		if err != nil {
			return err
		}
		if _, ok := groups[def]; !ok {
			order = append(order, def)
		}
		groups[def] = append(groups[def], e)
	}
	for _, def := range order {
		table, err := o.table(def)
		if err != nil {
			return err
		}
		err = o.loader.Load(ctx, exec, def, groups[def])
		switch {
		case err == nil:
		case ormerrors.IsStore(err), ormerrors.IsConfiguration(err):
			return err
		default:
			return ConvertDBError(OperationRead, table.Name, err)
		}
	}
	return nil
}

// fetch is the relationships.Fetch the loader reads associated rows with
func (o *Operations) fetch(ctx context.Context, exec database.Executor, def *model.Definition, ids []int64) ([]model.Entity, error) {
	table, err := o.table(def)
	if err != nil {
		return nil, err
	}
	return o.fetchTable(ctx, exec, def, table, ids)
}

func (o *Operations) fetchTable(ctx context.Context, exec database.Executor, def *model.Definition, table *schema.Table, ids []int64) ([]model.Entity, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", selectColumns(table), codegen.QuoteIdentifier(table.Name))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE %s IN (%s)", codegen.QuoteIdentifier(schema.IdentityColumn), placeholders(len(ids)))
	}
	query += " ORDER BY " + codegen.QuoteIdentifier(schema.IdentityColumn)
	return o.Load(ctx, exec, def, query, idArgs(ids)...)
}

// executor returns the transaction carried by ctx, or the store handle
func (o *Operations) executor(ctx context.Context) database.Executor {
	if tx, ok := transaction.Active(ctx); ok {
		return tx
	}
	return o.txManager.DB()
}
