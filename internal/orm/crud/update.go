package crud

import (
	"context"
	"fmt"
	"strings"

	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/relationships"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// UpdateByID writes e's values into the row with the given identifier, resolving e's
// associations the way Save does. e keeps its own identifier. When columns are given
// only those are written. It returns the number of rows updated.
func (o *Operations) UpdateByID(ctx context.Context, e model.Entity, id int64, columns ...string) (int64, error) {
	def, table, err := o.tableFor(e)
	if err != nil {
		return 0, err
	}
	var n int64
	err = o.run(ctx, OperationUpdate, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		n, err = o.persist(ctx, tx, c, def, e, byID(id, columnSet(columns)))
		return err
	})
	return n, err
}

// UpdateWhere writes e's values into every row matching the predicate. An empty
// predicate matches every row. Join rows are only ever added.
func (o *Operations) UpdateWhere(ctx context.Context, e model.Entity, columns []string, predicate string, args ...interface{}) (int64, error) {
	def, table, err := o.tableFor(e)
	if err != nil {
		return 0, err
	}
	var n int64
	err = o.run(ctx, OperationUpdate, table.Name, func(ctx context.Context, tx *transaction.Transaction, c *relationships.Cascade) error {
		n, err = o.persist(ctx, tx, c, def, e, &target{where: predicate, args: args, only: columnSet(columns)})
		return err
	})
	return n, err
}

func columnSet(columns []string) map[string]bool {
	if len(columns) == 0 {
		return nil
	}
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[strings.ToLower(c)] = true
	}
	return set
}

// selectIDs returns the identifiers of the rows matching a predicate
func (o *Operations) selectIDs(ctx context.Context, tx *transaction.Transaction, table *schema.Table, predicate string, args ...interface{}) ([]int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", codegen.QuoteIdentifier(schema.IdentityColumn), codegen.QuoteIdentifier(table.Name))
	if predicate != "" {
		query += " WHERE " + predicate
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertDBError(OperationRead, table.Name, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, ConvertDBError(OperationRead, table.Name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ConvertDBError(OperationRead, table.Name, err)
	}
	return ids, nil
}

// updateRows writes the same values into every row of ids
func (o *Operations) updateRows(ctx context.Context, tx *transaction.Transaction, table *schema.Table, columns []string, values []interface{}, ids []int64) error {
	if len(columns) == 0 {
		return nil
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = codegen.QuoteIdentifier(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s IN (%s)",
		codegen.QuoteIdentifier(table.Name),
		strings.Join(sets, ", "),
		codegen.QuoteIdentifier(schema.IdentityColumn),
		placeholders(len(ids)),
	)

	args := append(append([]interface{}{}, values...), idArgs(ids)...)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return ConvertDBError(OperationUpdate, table.Name, err)
	}
	return nil
}
