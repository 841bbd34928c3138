package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/relationships"
	"github.com/litemap/litemap/internal/orm/schema"
)

// rowValues reads the column fields of e and the resolved foreign keys, in the order the
// table declares them. When only is non-nil, columns missing from it are skipped.
func (o *Operations) rowValues(def *model.Definition, e model.Entity, res *relationships.Resolution, only map[string]bool) ([]string, []interface{}, error) {
	var (
		columns []string
		values  []interface{}
	)
	for _, f := range def.Columns() {
		if schema.IsIdentityName(f.Name) {
			continue
		}
		name := o.schema.Casing.Normalize(f.Name)
		if only != nil && !only[strings.ToLower(name)] {
			continue
		}
		v, err := f.Value(e)
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, name)
		values = append(values, v)
	}
	if res != nil {
		for _, fk := range res.ForeignKeys {
			if only != nil && !only[strings.ToLower(fk.Column)] {
				continue
			}
			columns = append(columns, fk.Column)
			values = append(values, fk.Value())
		}
	}
	return columns, values, nil
}

// fieldsByColumn maps lowercased column names to the fields stored in them
func (o *Operations) fieldsByColumn(def *model.Definition) map[string]*model.Field {
	out := make(map[string]*model.Field)
	for _, f := range def.Columns() {
		if schema.IsIdentityName(f.Name) {
			continue
		}
		out[strings.ToLower(o.schema.Casing.Normalize(f.Name))] = f
	}
	return out
}

// Load runs a query against table rows and maps each row into a new entity of def.
// Columns without a matching field, foreign keys among them, are skipped. Loaded
// entities are persisted and flagged saved.
func (o *Operations) Load(ctx context.Context, exec database.Executor, def *model.Definition, query string, args ...interface{}) ([]model.Entity, error) {
	table, err := o.table(def)
	if err != nil {
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertDBError(OperationRead, table.Name, err)
	}
	defer rows.Close()

	var out []model.Entity
	err = scanRows(rows, func(columns []string, values []interface{}) error {
		e := def.New()
		if err := o.assignRow(def, e, columns, values); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, ConvertDBError(OperationRead, table.Name, err)
	}
	return out, nil
}

// assignRow writes one scanned row into e
func (o *Operations) assignRow(def *model.Definition, e model.Entity, columns []string, values []interface{}) error {
	fields := o.fieldsByColumn(def)
	for i, col := range columns {
		if schema.IsIdentityName(col) {
			id, err := model.FromStorage[int64](values[i])
			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}
			e.Base().AssignID(id)
			continue
		}
		f, ok := fields[strings.ToLower(col)]
		if !ok {
			continue
		}
		if err := f.Assign(e, values[i]); err != nil {
			return err
		}
	}
	e.Base().MarkSaved()
	return nil
}

// scanRows scans every row into generic holders and hands them to fn
func scanRows(rows *sql.Rows, fn func(columns []string, values []interface{}) error) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}
		if err := fn(columns, values); err != nil {
			return err
		}
	}

	return rows.Err()
}

// selectColumns lists the identity and field columns of a table for SELECT
func selectColumns(table *schema.Table) string {
	return codegen.QuoteIdentifiers(table.ColumnNames())
}

// placeholders returns n comma separated bind markers
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func idArgs(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
