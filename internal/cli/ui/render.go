package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/litemap/litemap/internal/orm/migrate"
	"github.com/litemap/litemap/internal/orm/schema"
)

// RenderSchema writes every table with its columns, then the associations
func RenderSchema(w io.Writer, p *Palette, s *schema.Schema) {
	RenderTables(w, p, s.Tables())

	assocs := s.Associations()
	if len(assocs) == 0 {
		return
	}
	Header(w, p, "associations")
	table := NewTable(w, p, "KIND", "LEFT", "RIGHT", "STORED IN")
	for _, a := range assocs {
		stored := a.JoinTable
		if a.Kind != schema.ManyToMany {
			holder := a.LeftTable
			if !a.LeftHolds {
				holder = a.RightTable
			}
			stored = holder + "." + a.ForeignKey
		}
		table.AddRow(a.Kind.String(), end(a.Left, a.LeftField), end(a.Right, a.RightField), stored)
	}
	table.Render()
}

// RenderTables writes each table with its columns
func RenderTables(w io.Writer, p *Palette, tables []*schema.Table) {
	for _, t := range tables {
		title := t.Name
		if t.TypeName != "" {
			title += " (" + t.TypeName + ")"
		} else {
			title += " [" + t.Kind.String() + "]"
		}
		Header(w, p, title)

		table := NewTable(w, p, "COLUMN", "TYPE", "NULL", "UNIQUE", "DEFAULT")
		for _, c := range t.Columns() {
			typ := c.Type.String()
			if c.IsIdentity() {
				typ = "integer pk"
			}
			table.AddRow(c.Name, typ, yesNo(c.Nullable && !c.IsIdentity()), yesNo(c.Unique), c.Default)
		}
		table.Render()
		fmt.Fprintln(w)
	}
}

// RenderPlan writes the version step, each change and, when verbose, the statements
func RenderPlan(w io.Writer, p *Palette, plan *migrate.Plan, verbose bool) {
	kv := NewKeyValues(w, p)
	kv.Add("from", version(plan.From))
	kv.Add("to", plan.To)
	kv.Add("changes", len(plan.Changes))
	kv.Render()
	fmt.Fprintln(w)

	if len(plan.Changes) == 0 {
		p.Muted.Fprintln(w, "no schema changes")
		return
	}

	table := NewTable(w, p, "CHANGE", "TABLE", "COLUMN", "METHOD")
	for _, c := range plan.Changes {
		method := "in place"
		if c.Rebuild {
			method = "rebuild"
		}
		table.AddRow(c.Type.String(), c.Table, c.Column, method)
	}
	table.Render()

	if len(plan.Rebuilt) > 0 {
		fmt.Fprintln(w)
		p.Changed.Fprintf(w, "tables rebuilt through a temporary copy: %v\n", plan.Rebuilt)
	}

	if verbose {
		fmt.Fprintln(w)
		for _, stmt := range plan.Statements {
			p.Muted.Fprintln(w, stmt+";")
		}
	}
}

func end(typeName, field string) string {
	if field == "" {
		return typeName
	}
	return typeName + "." + field
}

func version(v int) string {
	if v == 0 {
		return "none"
	}
	return strconv.Itoa(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
