package migrate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/schema"
)

// Plan is everything a migration will do, computed before anything runs
type Plan struct {
	From int
	To   int

	Changes    []SchemaChange
	Statements []string

	// Rebuilt lists the tables reconstructed through a temporary copy
	Rebuilt []string
}

// Fresh reports whether the store had no version yet
func (p *Plan) Fresh() bool {
	return p.From == 0
}

// NoOp reports whether the plan changes nothing
func (p *Plan) NoOp() bool {
	return len(p.Statements) == 0
}

// Generator turns a diff into SQLite statements
type Generator struct {
	ddlGen   *codegen.DDLGenerator
	tempName func(table string) string
}

// NewGenerator creates a new migration generator
func NewGenerator() *Generator {
	return &Generator{
		ddlGen: codegen.NewDDLGenerator(),
		tempName: func(table string) string {
			return fmt.Sprintf("%s_%s", table, strings.ReplaceAll(uuid.NewString(), "-", ""))
		},
	}
}

// Generate computes the statements bringing the store from old to current, ending with
// the rewrite of the metadata table. Columns missing from the model survive a rebuild.
func (g *Generator) Generate(old *Snapshot, current *schema.Schema) (*Plan, error) {
	changes := NewDiffer(old, current).ComputeDiff()

	byTable := make(map[string][]SchemaChange)
	var order []string
	for _, c := range changes {
		key := strings.ToLower(c.Table)
		if _, seen := byTable[key]; !seen {
			order = append(order, key)
		}
		byTable[key] = append(byTable[key], c)
	}

	var (
		stmts   []string
		rebuilt []string
	)
	for _, key := range order {
		tableChanges := byTable[key]
		table, _ := current.Table(tableChanges[0].Table)

		if tableChanges[0].Type == ChangeAddTable {
			stmt, err := g.ddlGen.GenerateCreateTable(table)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			continue
		}

		existing, _ := old.Table(table.Name)
		if HasRebuild(tableChanges) {
			merged := retainColumns(table, existing)
			rebuild, err := g.ddlGen.GenerateRebuild(merged, existing.ColumnNames(), g.tempName(table.Name))
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, rebuild...)
			rebuilt = append(rebuilt, table.Name)
			continue
		}

		for _, c := range tableChanges {
			stmt, err := g.ddlGen.GenerateAddColumn(table.Name, c.NewValue)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
	}

	if len(stmts) > 0 || old.Empty() {
		stmts = append(stmts, g.metadataStatements(current)...)
	}
	return &Plan{From: old.Version, Changes: changes, Statements: stmts, Rebuilt: rebuilt}, nil
}

// retainColumns returns the current table plus the stored columns the model dropped
func retainColumns(table, existing *schema.Table) *schema.Table {
	merged := schema.NewTable(table.Name, table.TypeName, table.Kind)
	for _, c := range table.Columns() {
		merged.AddColumn(c)
	}
	for _, c := range existing.Columns() {
		if !merged.HasColumn(c.Name) {
			merged.AddColumn(c)
		}
	}
	return merged
}

// metadataStatements rewrite the metadata table to list every current table
func (g *Generator) metadataStatements(current *schema.Schema) []string {
	meta := codegen.QuoteIdentifier(current.Metadata().Name)
	stmts := []string{"DELETE FROM " + meta}
	for _, t := range current.Tables() {
		if schema.IsMetadata(t.Name) {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ('%s', %d)",
			meta,
			codegen.QuoteIdentifier(current.Casing.Normalize("name")),
			codegen.QuoteIdentifier(current.Casing.Normalize("type")),
			strings.ReplaceAll(t.Name, "'", "''"),
			int(t.Kind),
		))
	}
	return stmts
}
