// Package schema turns model definitions into the relational model the store is built
// from: tables, columns, associations and the join tables between them.
package schema

import (
	"sort"
	"strings"
)

// StorageType is the column type written into the store
type StorageType int

const (
	StorageInteger StorageType = iota
	StorageReal
	StorageText
	StorageBlob
)

// String returns the SQL name of the storage type
func (s StorageType) String() string {
	switch s {
	case StorageInteger:
		return "integer"
	case StorageReal:
		return "real"
	case StorageText:
		return "text"
	case StorageBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// ParseStorageType reads a declared column type back from the store using SQLite's
// affinity rules.
func ParseStorageType(declared string) StorageType {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return StorageInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return StorageText
	case t == "", strings.Contains(t, "BLOB"):
		return StorageBlob
	default:
		return StorageReal
	}
}

// IdentityColumn is the primary key column of every model table
const IdentityColumn = "id"

// MetadataTable holds one row per known table, with its kind
const MetadataTable = "table_schema"

// Column describes one column of a table
type Column struct {
	Name     string
	Type     StorageType
	Nullable bool
	Unique   bool
	Default  string
}

// NewColumn creates a nullable, non-unique column without default
func NewColumn(name string, t StorageType) *Column {
	return &Column{Name: name, Type: t, Nullable: true}
}

// SetDefault sets the default value. Text defaults are quote-wrapped unless they
// already are.
func (c *Column) SetDefault(value string) {
	if value != "" && c.Type == StorageText && !isQuoted(value) {
		value = "'" + strings.ReplaceAll(value, "'", "''") + "'"
	}
	c.Default = value
}

func isQuoted(v string) bool {
	return len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\''
}

// IsIdentity reports whether this is the primary key column
func (c *Column) IsIdentity() bool {
	return IsIdentityName(c.Name)
}

// IsIdentityName reports whether name is "id" or "_id", ignoring case
func IsIdentityName(name string) bool {
	return strings.EqualFold(name, "id") || strings.EqualFold(name, "_id")
}

// Equal compares definitions. Identity columns only compare by name.
func (c *Column) Equal(other *Column) bool {
	if other == nil {
		return false
	}
	if c.IsIdentity() || other.IsIdentity() {
		return c.IsIdentity() && other.IsIdentity()
	}
	return c.Type == other.Type &&
		c.Nullable == other.Nullable &&
		c.Unique == other.Unique &&
		c.Default == other.Default
}

// TableKind is stored in the metadata table's type column
type TableKind int

const (
	TableNormal TableKind = 0
	TableJoin   TableKind = 1
)

// String returns the string representation of the table kind
func (k TableKind) String() string {
	switch k {
	case TableNormal:
		return "normal"
	case TableJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Table describes one table. Columns are keyed by lower-cased name so lookups do not
// depend on how a name was spelled when it arrived.
type Table struct {
	Name     string
	TypeName string
	Kind     TableKind

	columns map[string]*Column
	order   []string
}

// NewTable creates an empty table
func NewTable(name, typeName string, kind TableKind) *Table {
	return &Table{
		Name:     name,
		TypeName: typeName,
		Kind:     kind,
		columns:  make(map[string]*Column),
	}
}

// AddColumn adds or replaces a column
func (t *Table) AddColumn(c *Column) {
	key := strings.ToLower(c.Name)
	if _, exists := t.columns[key]; !exists {
		t.order = append(t.order, key)
	}
	t.columns[key] = c
}

// Column looks a column up by name, ignoring case
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[strings.ToLower(name)]
	return c, ok
}

// HasColumn reports whether the table has the column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Columns returns the identity column first, then the others in insertion order
func (t *Table) Columns() []*Column {
	out := make([]*Column, 0, len(t.order))
	for _, key := range t.order {
		if t.columns[key].IsIdentity() {
			out = append(out, t.columns[key])
		}
	}
	for _, key := range t.order {
		if !t.columns[key].IsIdentity() {
			out = append(out, t.columns[key])
		}
	}
	return out
}

// ColumnNames returns column names in Columns order
func (t *Table) ColumnNames() []string {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// HasIdentity reports whether the table has a primary key column
func (t *Table) HasIdentity() bool {
	for _, c := range t.columns {
		if c.IsIdentity() {
			return true
		}
	}
	return false
}

// Schema is the relational model built from a set of definitions
type Schema struct {
	Casing Casing

	tables       map[string]*Table
	byType       map[string]*Table
	associations []*Association
	ends         map[string]map[string]*End
}

func newSchema(casing Casing) *Schema {
	return &Schema{
		Casing: casing,
		tables: make(map[string]*Table),
		byType: make(map[string]*Table),
		ends:   make(map[string]map[string]*End),
	}
}

func (s *Schema) addTable(t *Table) {
	s.tables[strings.ToLower(t.Name)] = t
	if t.TypeName != "" {
		s.byType[t.TypeName] = t
	}
}

// Table looks a table up by name, ignoring case
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

// TableFor returns the table of a definition
func (s *Schema) TableFor(typeName string) (*Table, bool) {
	t, ok := s.byType[typeName]
	return t, ok
}

// Tables returns every table, metadata table included, sorted by name
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Metadata returns the metadata table
func (s *Schema) Metadata() *Table {
	t, _ := s.Table(MetadataTable)
	return t
}

// IsMetadata reports whether name is the metadata table
func IsMetadata(name string) bool {
	return strings.EqualFold(name, MetadataTable)
}

// Associations returns every association, in build order
func (s *Schema) Associations() []*Association {
	return s.associations
}
