package migrate

import (
	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/schema"
)

// ChangeType represents the type of schema change
type ChangeType int

const (
	// ChangeAddTable creates a table absent from the store
	ChangeAddTable ChangeType = iota
	// ChangeAddColumn adds a column to an existing table
	ChangeAddColumn
	// ChangeModifyColumn changes the type or a constraint of an existing column
	ChangeModifyColumn
)

// String returns the string representation of the change type
func (c ChangeType) String() string {
	switch c {
	case ChangeAddTable:
		return "add_table"
	case ChangeAddColumn:
		return "add_column"
	case ChangeModifyColumn:
		return "modify_column"
	default:
		return "unknown"
	}
}

// SchemaChange represents a detected change between the stored and the current schema
type SchemaChange struct {
	Type     ChangeType
	Table    string
	Column   string
	OldValue *schema.Column
	NewValue *schema.Column

	// Rebuild is set when SQLite cannot apply the change with ALTER TABLE
	Rebuild bool
}

// Differ compares the stored snapshot with the current schema. Tables and columns that
// only exist in the store are left alone and produce no change.
type Differ struct {
	old     *Snapshot
	current *schema.Schema
	ddl     *codegen.DDLGenerator
}

// NewDiffer creates a new schema differ
func NewDiffer(old *Snapshot, current *schema.Schema) *Differ {
	return &Differ{old: old, current: current, ddl: codegen.NewDDLGenerator()}
}

// ComputeDiff computes all changes, ordered by table name then column order
func (d *Differ) ComputeDiff() []SchemaChange {
	var changes []SchemaChange

	for _, table := range d.current.Tables() {
		existing, ok := d.old.Table(table.Name)
		if !ok {
			changes = append(changes, SchemaChange{Type: ChangeAddTable, Table: table.Name})
			continue
		}
		changes = append(changes, d.diffColumns(table, existing)...)
	}

	return changes
}

// diffColumns compares columns between the stored and the current table
func (d *Differ) diffColumns(table, existing *schema.Table) []SchemaChange {
	var changes []SchemaChange

	for _, c := range table.Columns() {
		old, ok := existing.Column(c.Name)
		switch {
		case !ok:
			changes = append(changes, SchemaChange{
				Type:     ChangeAddColumn,
				Table:    table.Name,
				Column:   c.Name,
				NewValue: c,
				Rebuild:  !d.ddl.CanAddInPlace(c),
			})
		case !c.Equal(old):
			changes = append(changes, SchemaChange{
				Type:     ChangeModifyColumn,
				Table:    table.Name,
				Column:   c.Name,
				OldValue: old,
				NewValue: c,
				Rebuild:  true,
			})
		}
	}

	return changes
}

// HasRebuild reports whether any change needs a table rebuild
func HasRebuild(changes []SchemaChange) bool {
	for _, c := range changes {
		if c.Rebuild {
			return true
		}
	}
	return false
}
