package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/litemap/litemap/internal/orm/codegen"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
)

// Count returns the number of rows matching the predicate. Order, limit and offset are
// ignored by every aggregate.
func (b *Builder) Count(ctx context.Context, def *model.Definition) (int64, error) {
	var n int64
	err := b.aggregate(ctx, def, "COUNT(*)", &n)
	return n, err
}

// Average returns the mean of a column over the matching rows, 0 when none match
func (b *Builder) Average(ctx context.Context, def *model.Definition, column string) (float64, error) {
	expr, err := b.columnExpr(def, column)
	if err != nil {
		return 0, err
	}
	var avg float64
	err = b.aggregate(ctx, def, fmt.Sprintf("COALESCE(AVG(%s), 0)", expr), &avg)
	return avg, err
}

// Max scans the largest value of a column into dst, 0 when no row matches
func (b *Builder) Max(ctx context.Context, def *model.Definition, column string, dst interface{}) error {
	return b.fold(ctx, def, "MAX", column, dst)
}

// Min scans the smallest value of a column into dst, 0 when no row matches
func (b *Builder) Min(ctx context.Context, def *model.Definition, column string, dst interface{}) error {
	return b.fold(ctx, def, "MIN", column, dst)
}

// Sum scans the total of a column into dst, 0 when no row matches
func (b *Builder) Sum(ctx context.Context, def *model.Definition, column string, dst interface{}) error {
	return b.fold(ctx, def, "SUM", column, dst)
}

func (b *Builder) fold(ctx context.Context, def *model.Definition, fn, column string, dst interface{}) error {
	expr, err := b.columnExpr(def, column)
	if err != nil {
		return err
	}
	return b.aggregate(ctx, def, fmt.Sprintf("COALESCE(%s(%s), 0)", fn, expr), dst)
}

func (b *Builder) columnExpr(def *model.Definition, column string) (string, error) {
	table, err := b.table(def)
	if err != nil {
		return "", err
	}
	name := b.source.Schema().Casing.Normalize(column)
	if !table.HasColumn(name) {
		return "", ormerrors.Configuration(table.Name, "no column %q", column)
	}
	return codegen.QuoteIdentifier(name), nil
}

func (b *Builder) aggregate(ctx context.Context, def *model.Definition, expr string, dst interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	table, err := b.table(def)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", expr, codegen.QuoteIdentifier(table.Name))
	b.writeWhere(&sb)

	if err := b.exec.QueryRowContext(ctx, sb.String(), b.args...).Scan(dst); err != nil {
		return ormerrors.Store("aggregate", table.Name, err)
	}
	return nil
}
