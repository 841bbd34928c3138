// Package codegen generates the SQLite DDL for tables built by the schema package.
package codegen

import (
	"fmt"
	"strings"

	"github.com/litemap/litemap/internal/orm/schema"
)

// TypeMapper maps schema columns to SQLite column definitions
type TypeMapper struct{}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// MapType returns the declared SQL type of a storage type
func (tm *TypeMapper) MapType(t schema.StorageType) (string, error) {
	switch t {
	case schema.StorageInteger, schema.StorageReal, schema.StorageText, schema.StorageBlob:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unsupported storage type: %d", t)
	}
}

// MapNullability returns the NOT NULL clause, or nothing for nullable columns
func (tm *TypeMapper) MapNullability(c *schema.Column) string {
	if c.Nullable {
		return ""
	}
	return "NOT NULL"
}

// MapDefault returns the DEFAULT clause. Text defaults arrive already quoted.
func (tm *TypeMapper) MapDefault(c *schema.Column) string {
	if c.Default == "" {
		return ""
	}
	return "DEFAULT " + c.Default
}

// ZeroValue is the literal used to fill a NOT NULL column that has no default
func (tm *TypeMapper) ZeroValue(t schema.StorageType) string {
	switch t {
	case schema.StorageText:
		return "''"
	case schema.StorageReal:
		return "0.0"
	case schema.StorageBlob:
		return "x''"
	default:
		return "0"
	}
}

// FillValue is what replaces NULL when copying into a NOT NULL column
func (tm *TypeMapper) FillValue(c *schema.Column) string {
	if c.Default != "" {
		return c.Default
	}
	return tm.ZeroValue(c.Type)
}

// QuoteIdentifier wraps a SQL identifier in double quotes and escapes internal quotes
func QuoteIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

// QuoteIdentifiers quotes each identifier and joins them with commas
func QuoteIdentifiers(identifiers []string) string {
	quoted := make([]string, len(identifiers))
	for i, id := range identifiers {
		quoted[i] = QuoteIdentifier(id)
	}
	return strings.Join(quoted, ", ")
}
