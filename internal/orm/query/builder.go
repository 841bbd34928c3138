// Package query provides the fluent query over mapped tables: column selection, opaque
// WHERE predicates with bound arguments, ordering, paging and aggregates.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/codegen"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/schema"
)

// Source maps rows into entities. *crud.Operations implements it.
type Source interface {
	Schema() *schema.Schema
	Load(ctx context.Context, exec database.Executor, def *model.Definition, query string, args ...interface{}) ([]model.Entity, error)
	LoadAssociations(ctx context.Context, exec database.Executor, entities []model.Entity) error
}

// Builder provides a fluent API for building SQL queries. Terminal methods hold the
// store lock for the duration of the statement.
type Builder struct {
	source Source
	exec   database.Executor
	mu     sync.Locker

	columns   []string
	predicate string
	args      []interface{}
	orderBy   string
	limit     *int
	offset    *int
	eager     bool
}

// New creates a builder reading through exec
func New(source Source, exec database.Executor, mu sync.Locker) *Builder {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Builder{source: source, exec: exec, mu: mu}
}

// Select restricts the loaded columns. The identifier is always loaded.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = columns
	return b
}

// Where sets the predicate, a SQL boolean expression with ? placeholders for args
func (b *Builder) Where(predicate string, args ...interface{}) *Builder {
	b.predicate = predicate
	b.args = args
	return b
}

// Order sets the ORDER BY clause, e.g. "age desc"
func (b *Builder) Order(orderBy string) *Builder {
	b.orderBy = orderBy
	return b
}

// Limit caps the number of rows returned
func (b *Builder) Limit(n int) *Builder {
	b.limit = &n
	return b
}

// Offset skips rows. Without a limit, no rows are returned.
func (b *Builder) Offset(n int) *Builder {
	b.offset = &n
	return b
}

// Eager fills the associations of the returned entities, one level deep
func (b *Builder) Eager() *Builder {
	b.eager = true
	return b
}

// Find loads every matching row as an entity of def
func (b *Builder) Find(ctx context.Context, def *model.Definition) ([]model.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found, err := b.find(ctx, def, b.orderBy, b.limit)
	if err != nil {
		return nil, err
	}
	if err := b.associate(ctx, found...); err != nil {
		return nil, err
	}
	return found, nil
}

// FindFirst loads the first matching row, or nil. A limit of 0 stays 0.
func (b *Builder) FindFirst(ctx context.Context, def *model.Definition) (model.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := b.limit
	if limit == nil || *limit != 0 {
		one := 1
		limit = &one
	}
	found, err := b.find(ctx, def, b.orderBy, limit)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	if err := b.associate(ctx, found[0]); err != nil {
		return nil, err
	}
	return found[0], nil
}

// FindLast loads the last matching row, or nil. Without a limit or offset the order is
// reversed and one row read; otherwise every row is read and the last one returned.
func (b *Builder) FindLast(ctx context.Context, def *model.Definition) (model.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	orderBy, limit := b.orderBy, b.limit
	if b.offset == nil && b.limit == nil {
		orderBy = reverseOrder(orderBy)
		one := 1
		limit = &one
	}
	found, err := b.find(ctx, def, orderBy, limit)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	last := found[len(found)-1]
	if err := b.associate(ctx, last); err != nil {
		return nil, err
	}
	return last, nil
}

func (b *Builder) associate(ctx context.Context, entities ...model.Entity) error {
	if !b.eager || len(entities) == 0 {
		return nil
	}
	return b.source.LoadAssociations(ctx, b.exec, entities)
}

func reverseOrder(orderBy string) string {
	switch {
	case orderBy == "":
		return schema.IdentityColumn + " desc"
	case strings.HasSuffix(strings.ToLower(orderBy), " desc"):
		return strings.TrimSpace(orderBy[:len(orderBy)-len(" desc")])
	default:
		return orderBy + " desc"
	}
}

func (b *Builder) find(ctx context.Context, def *model.Definition, orderBy string, limit *int) ([]model.Entity, error) {
	table, err := b.table(def)
	if err != nil {
		return nil, err
	}

	columns := table.ColumnNames()
	if len(b.columns) > 0 {
		columns = []string{schema.IdentityColumn}
		for _, c := range b.columns {
			name := b.source.Schema().Casing.Normalize(c)
			if schema.IsIdentityName(name) {
				continue
			}
			if !table.HasColumn(name) {
				return nil, ormerrors.Configuration(table.Name, "no column %q", c)
			}
			columns = append(columns, name)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", codegen.QuoteIdentifiers(columns), codegen.QuoteIdentifier(table.Name))
	b.writeWhere(&sb)
	if orderBy != "" {
		sb.WriteString(" ORDER BY " + orderBy)
	}
	switch {
	case b.offset != nil && limit == nil:
		fmt.Fprintf(&sb, " LIMIT 0 OFFSET %d", *b.offset)
	case b.offset != nil:
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", *limit, *b.offset)
	case limit != nil:
		fmt.Fprintf(&sb, " LIMIT %d", *limit)
	}

	return b.source.Load(ctx, b.exec, def, sb.String(), b.args...)
}

func (b *Builder) writeWhere(sb *strings.Builder) {
	if b.predicate != "" {
		sb.WriteString(" WHERE " + b.predicate)
	}
}

func (b *Builder) table(def *model.Definition) (*schema.Table, error) {
	table, ok := b.source.Schema().TableFor(def.Name)
	if !ok {
		return nil, ormerrors.Configuration(def.Name, "definition is not part of this store")
	}
	return table, nil
}
