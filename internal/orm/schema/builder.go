package schema

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
)

// Builder builds a Schema from model definitions
type Builder struct {
	casing Casing
	errors []error
}

// NewBuilder creates a new schema builder
func NewBuilder(casing Casing) *Builder {
	return &Builder{casing: casing}
}

// Build produces one table per definition, the metadata table, the join tables and one
// association per relation. All problems are reported together.
func (b *Builder) Build(defs []*model.Definition) (*Schema, error) {
	b.errors = nil
	b.errors = append(b.errors, NewValidator(b.casing).Validate(defs)...)
	if len(b.errors) > 0 {
		return nil, b.failure()
	}

	s := newSchema(b.casing)
	s.addTable(b.metadataTable())

	byName := make(map[string]*model.Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
		s.addTable(b.buildTable(def))
	}

	sorted := make([]*model.Definition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	visited := make(map[string]bool)
	for _, def := range sorted {
		for _, f := range def.Associations() {
			if visited[fieldKey(def.Name, f.Name)] {
				continue
			}
			a, err := b.buildAssociation(def, f, byName[f.Type], visited)
			if err != nil {
				b.errors = append(b.errors, err)
				continue
			}
			if err := b.attach(s, a); err != nil {
				b.errors = append(b.errors, err)
				continue
			}
			s.addAssociation(a)
		}
	}

	if len(b.errors) > 0 {
		return nil, b.failure()
	}
	return s, nil
}

// Errors returns the problems collected by the last Build
func (b *Builder) Errors() []error {
	return b.errors
}

func (b *Builder) failure() error {
	return &ormerrors.ConfigurationError{
		Subject: "schema",
		Reason:  fmt.Sprintf("%d problem(s) in model definitions", len(b.errors)),
		Err:     stderrors.Join(b.errors...),
	}
}

func (b *Builder) metadataTable() *Table {
	t := NewTable(b.casing.Normalize(MetadataTable), "", TableNormal)
	t.AddColumn(b.identity())
	t.AddColumn(NewColumn(b.casing.Normalize("name"), StorageText))
	t.AddColumn(NewColumn(b.casing.Normalize("type"), StorageInteger))
	return t
}

func (b *Builder) identity() *Column {
	return &Column{Name: b.casing.Normalize(IdentityColumn), Type: StorageInteger}
}

func (b *Builder) buildTable(def *model.Definition) *Table {
	t := NewTable(b.casing.Normalize(def.Name), def.Name, TableNormal)
	t.AddColumn(b.identity())
	for _, f := range def.Columns() {
		if IsIdentityName(f.Name) {
			continue
		}
		st, _ := MapType(f.Type)
		c := NewColumn(b.casing.Normalize(f.Name), st)
		c.Nullable = f.Nullable
		c.Unique = f.Unique
		c.SetDefault(f.Default)
		t.AddColumn(c)
	}
	return t
}

// buildAssociation infers the cardinality of f from its own shape and the shape of the
// reverse field on target, if there is exactly one.
func (b *Builder) buildAssociation(def *model.Definition, f *model.Field, target *model.Definition, visited map[string]bool) (*Association, error) {
	self := def.Name == target.Name

	var candidates []*model.Field
	for _, rf := range target.Associations() {
		if rf.Type != def.Name || (self && rf.Name == f.Name) {
			continue
		}
		candidates = append(candidates, rf)
	}
	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		return nil, &ValidationError{
			Type:    def.Name,
			Field:   f.Name,
			Message: fmt.Sprintf("ambiguous reverse association on %s: %s", target.Name, strings.Join(names, ", ")),
			Hint:    "declare at most one field pointing back",
		}
	}

	var reverse *model.Field
	if len(candidates) == 1 {
		reverse = candidates[0]
		if visited[fieldKey(target.Name, reverse.Name)] {
			return nil, &ValidationError{
				Type:    def.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("reverse field %s.%s is already paired with another association", target.Name, reverse.Name),
			}
		}
	}
	if self && reverse != nil && f.Kind == model.KindToOne && reverse.Kind == model.KindToOne {
		return nil, &ValidationError{
			Type:    def.Name,
			Field:   f.Name,
			Message: fmt.Sprintf("self-referential one-to-one with %s is ambiguous", reverse.Name),
			Hint:    "keep a single to-one field, or make one side a collection",
		}
	}

	visited[fieldKey(def.Name, f.Name)] = true
	a := &Association{
		Left:       def.Name,
		Right:      target.Name,
		LeftTable:  b.casing.Normalize(def.Name),
		RightTable: b.casing.Normalize(target.Name),
		LeftField:  f.Name,
	}
	if reverse != nil {
		visited[fieldKey(target.Name, reverse.Name)] = true
		a.RightField = reverse.Name
		a.Bidirectional = true
	}

	own := f.Kind == model.KindToMany
	switch {
	case reverse == nil && own && self:
		a.Kind = ManyToMany
		a.Symmetric = true
		a.Bidirectional = true
		a.RightField = f.Name
	case reverse == nil && own:
		// element side holds the key
		a.Kind = ManyToOne
		a.LeftHolds = false
	case reverse == nil:
		a.Kind = OneToOne
		a.LeftHolds = true
	case !own && reverse.Kind == model.KindToOne:
		a.Kind = OneToOne
		a.LeftHolds = a.LeftTable <= a.RightTable
	case !own:
		a.Kind = ManyToOne
		a.LeftHolds = true
	case reverse.Kind == model.KindToOne:
		a.Kind = ManyToOne
		a.LeftHolds = false
	default:
		a.Kind = ManyToMany
	}

	if a.Kind == ManyToMany {
		a.JoinTable = b.joinTableName(a.LeftTable, a.RightTable)
		if self {
			a.LeftColumn = b.casing.Normalize(a.LeftTable + "_id")
			a.RightColumn = b.casing.Normalize("associated_" + a.RightTable + "_id")
		} else {
			a.LeftColumn = b.casing.Normalize(a.LeftTable + "_id")
			a.RightColumn = b.casing.Normalize(a.RightTable + "_id")
		}
	} else {
		other := a.RightTable
		if !a.LeftHolds {
			other = a.LeftTable
		}
		a.ForeignKey = b.casing.Normalize(other + "_id")
	}
	return a, nil
}

// attach adds the foreign key column or the join table an association needs
func (b *Builder) attach(s *Schema, a *Association) error {
	if a.Kind == ManyToMany {
		if existing, ok := s.Table(a.JoinTable); ok {
			what := "a model table"
			if existing.Kind == TableJoin {
				what = "another many-to-many association"
			}
			return &ValidationError{
				Type:    a.Left,
				Field:   a.LeftField,
				Message: fmt.Sprintf("join table %q collides with %s", a.JoinTable, what),
			}
		}
		join := NewTable(a.JoinTable, "", TableJoin)
		join.AddColumn(NewColumn(a.LeftColumn, StorageInteger))
		join.AddColumn(NewColumn(a.RightColumn, StorageInteger))
		s.addTable(join)
		return nil
	}

	holder, _ := s.TableFor(a.Holder())
	if holder.HasColumn(a.ForeignKey) {
		return &ValidationError{
			Type:    a.Left,
			Field:   a.LeftField,
			Message: fmt.Sprintf("foreign key column %q already exists on %s", a.ForeignKey, holder.Name),
			Hint:    "only one to-one association per pair of tables can hold a key on the same side",
		}
	}
	holder.AddColumn(NewColumn(a.ForeignKey, StorageInteger))
	return nil
}

// joinTableName sorts the two table names and joins them with an underscore
func (b *Builder) joinTableName(left, right string) string {
	names := []string{left, right}
	sort.Strings(names)
	return b.casing.Normalize(names[0] + "_" + names[1])
}

func fieldKey(typeName, field string) string {
	return typeName + "." + field
}
