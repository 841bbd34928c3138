package codegen

import (
	"fmt"
	"strings"

	"github.com/litemap/litemap/internal/orm/schema"
)

// DDLGenerator generates SQLite DDL statements from schema tables
type DDLGenerator struct {
	typeMapper *TypeMapper
}

// NewDDLGenerator creates a new DDL generator
func NewDDLGenerator() *DDLGenerator {
	return &DDLGenerator{
		typeMapper: NewTypeMapper(),
	}
}

// GenerateCreateTable generates a CREATE TABLE statement with every column's constraints.
// The identity column always comes first.
func (g *DDLGenerator) GenerateCreateTable(table *schema.Table) (string, error) {
	if table == nil {
		return "", fmt.Errorf("table cannot be nil")
	}
	cols := table.Columns()
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s has no columns", table.Name)
	}

	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		def, err := g.GenerateColumnDefinition(c)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", table.Name, err)
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(table.Name), strings.Join(defs, ", ")), nil
}

// GenerateColumnDefinition renders one column: name, type, then constraints
func (g *DDLGenerator) GenerateColumnDefinition(c *schema.Column) (string, error) {
	if c.IsIdentity() {
		return QuoteIdentifier(c.Name) + " integer primary key autoincrement", nil
	}

	columnType, err := g.typeMapper.MapType(c.Type)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", c.Name, err)
	}

	parts := []string{QuoteIdentifier(c.Name), columnType}
	if n := g.typeMapper.MapNullability(c); n != "" {
		parts = append(parts, n)
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if d := g.typeMapper.MapDefault(c); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " "), nil
}

// CanAddInPlace reports whether ALTER TABLE ADD COLUMN can add c. SQLite refuses
// UNIQUE columns and NOT NULL columns without a default.
func (g *DDLGenerator) CanAddInPlace(c *schema.Column) bool {
	if c.Unique || c.IsIdentity() {
		return false
	}
	return c.Nullable || c.Default != ""
}

// GenerateAddColumn generates an ALTER TABLE ADD COLUMN statement
func (g *DDLGenerator) GenerateAddColumn(tableName string, c *schema.Column) (string, error) {
	if !g.CanAddInPlace(c) {
		return "", fmt.Errorf("column %s.%s cannot be added in place", tableName, c.Name)
	}
	def, err := g.GenerateColumnDefinition(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", QuoteIdentifier(tableName), def), nil
}

// GenerateRebuild reconstructs a table while keeping its rows: rename the old table to
// tempName, create the new definition, copy the columns both have, drop the renamed
// table. NOT NULL columns get NULLs replaced by their default, or by the type's zero
// value when there is none. existing lists the columns of the old table. The rename
// carries the AUTOINCREMENT counter to tempName, so it is moved back before the drop and
// identifiers of deleted rows are not handed out again.
func (g *DDLGenerator) GenerateRebuild(table *schema.Table, existing []string, tempName string) ([]string, error) {
	create, err := g.GenerateCreateTable(table)
	if err != nil {
		return nil, err
	}

	old := make(map[string]bool, len(existing))
	for _, name := range existing {
		old[strings.ToLower(name)] = true
	}

	var (
		targets, sources []string
		identity         bool
	)
	for _, c := range table.Columns() {
		identity = identity || c.IsIdentity()
		inOld := old[strings.ToLower(c.Name)]
		switch {
		case inOld && (c.Nullable || c.IsIdentity()):
			targets = append(targets, QuoteIdentifier(c.Name))
			sources = append(sources, QuoteIdentifier(c.Name))
		case inOld:
			targets = append(targets, QuoteIdentifier(c.Name))
			sources = append(sources, fmt.Sprintf("COALESCE(%s, %s)", QuoteIdentifier(c.Name), g.typeMapper.FillValue(c)))
		case !c.Nullable && c.Default == "":
			// new NOT NULL column without a default
			targets = append(targets, QuoteIdentifier(c.Name))
			sources = append(sources, g.typeMapper.ZeroValue(c.Type))
		}
	}

	stmts := []string{
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", QuoteIdentifier(table.Name), QuoteIdentifier(tempName)),
		create,
	}
	if len(targets) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			QuoteIdentifier(table.Name), strings.Join(targets, ", "), strings.Join(sources, ", "), QuoteIdentifier(tempName)))
	}
	if identity {
		stmts = append(stmts,
			fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = %s AND EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = %s)",
				quoteLiteral(table.Name), quoteLiteral(tempName)),
			fmt.Sprintf("UPDATE sqlite_sequence SET name = %s WHERE name = %s", quoteLiteral(table.Name), quoteLiteral(tempName)),
		)
	}
	stmts = append(stmts, fmt.Sprintf("DROP TABLE %s", QuoteIdentifier(tempName)))
	return stmts, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GenerateDropTable generates a DROP TABLE statement
func (g *DDLGenerator) GenerateDropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdentifier(tableName))
}
