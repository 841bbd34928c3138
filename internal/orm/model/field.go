package model

import (
	"fmt"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
)

// FieldKind distinguishes plain columns from association fields
type FieldKind int

const (
	// KindColumn is a field stored in a column of the entity's own table
	KindColumn FieldKind = iota
	// KindToOne holds a single associated entity
	KindToOne
	// KindToMany holds a collection of associated entities
	KindToMany
)

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindToOne:
		return "to_one"
	case KindToMany:
		return "to_many"
	default:
		return "unknown"
	}
}

// Field describes one field of a mapped type together with its typed accessors.
type Field struct {
	Name string
	Kind FieldKind

	// Type is the semantic type name for columns ("string", "int64", "time.Time", ...)
	// and the target definition name for associations.
	Type string

	Nullable bool
	Unique   bool
	Default  string
	Ignore   bool

	owner string

	get     func(Entity) (interface{}, error)
	set     func(Entity, interface{}) error
	getOne  func(Entity) (Entity, error)
	setOne  func(Entity, Entity) error
	getMany func(Entity) ([]Entity, error)
	setMany func(Entity, []Entity) error
}

func (f *Field) member() {}

// Owner returns the name of the definition the field belongs to
func (f *Field) Owner() string {
	return f.owner
}

// IsAssociation reports whether the field holds associated entities
func (f *Field) IsAssociation() bool {
	return f.Kind == KindToOne || f.Kind == KindToMany
}

// Value reads the field and converts it to its storage representation
func (f *Field) Value(e Entity) (interface{}, error) {
	if f.get == nil {
		return nil, f.wrongKind("read as a column")
	}
	return f.get(e)
}

// Assign converts a stored value and writes it into the field
func (f *Field) Assign(e Entity, src interface{}) error {
	if f.set == nil {
		return f.wrongKind("written as a column")
	}
	return f.set(e, src)
}

// One reads a to-one association; the result is nil when nothing is assigned
func (f *Field) One(e Entity) (Entity, error) {
	if f.getOne == nil {
		return nil, f.wrongKind("read as a to-one association")
	}
	return f.getOne(e)
}

// SetOne writes a to-one association
func (f *Field) SetOne(e Entity, v Entity) error {
	if f.setOne == nil {
		return f.wrongKind("written as a to-one association")
	}
	return f.setOne(e, v)
}

// Many reads a to-many association
func (f *Field) Many(e Entity) ([]Entity, error) {
	if f.getMany == nil {
		return nil, f.wrongKind("read as a to-many association")
	}
	return f.getMany(e)
}

// SetMany writes a to-many association
func (f *Field) SetMany(e Entity, v []Entity) error {
	if f.setMany == nil {
		return f.wrongKind("written as a to-many association")
	}
	return f.setMany(e, v)
}

func (f *Field) wrongKind(action string) error {
	return ormerrors.Configuration(f.qualified(), "%s field cannot be %s", f.Kind, action)
}

func (f *Field) qualified() string {
	if f.owner == "" {
		return f.Name
	}
	return f.owner + "." + f.Name
}

// project returns a copy of f whose accessors reach the field through an embedded value
func (f *Field) project(owner string, through func(Entity) (Entity, error)) *Field {
	p := *f
	p.owner = owner
	if f.get != nil {
		p.get = func(e Entity) (interface{}, error) {
			inner, err := through(e)
			if err != nil {
				return nil, err
			}
			return f.get(inner)
		}
		p.set = func(e Entity, v interface{}) error {
			inner, err := through(e)
			if err != nil {
				return err
			}
			return f.set(inner, v)
		}
	}
	if f.getOne != nil {
		p.getOne = func(e Entity) (Entity, error) {
			inner, err := through(e)
			if err != nil {
				return nil, err
			}
			return f.getOne(inner)
		}
		p.setOne = func(e Entity, v Entity) error {
			inner, err := through(e)
			if err != nil {
				return err
			}
			return f.setOne(inner, v)
		}
	}
	if f.getMany != nil {
		p.getMany = func(e Entity) ([]Entity, error) {
			inner, err := through(e)
			if err != nil {
				return nil, err
			}
			return f.getMany(inner)
		}
		p.setMany = func(e Entity, v []Entity) error {
			inner, err := through(e)
			if err != nil {
				return err
			}
			return f.setMany(inner, v)
		}
	}
	return &p
}

// ColumnOption customizes a column field
type ColumnOption func(*Field)

// NotNull adds a NOT NULL constraint
func NotNull() ColumnOption {
	return func(f *Field) { f.Nullable = false }
}

// Unique adds a UNIQUE constraint
func Unique() ColumnOption {
	return func(f *Field) { f.Unique = true }
}

// Default sets the column default. Text defaults are quoted by the schema layer.
func Default(value string) ColumnOption {
	return func(f *Field) { f.Default = value }
}

// Ignore keeps the field out of the table
func Ignore() ColumnOption {
	return func(f *Field) { f.Ignore = true }
}

// As overrides the semantic type name, e.g. As("char") for a rune stored as text
func As(semantic string) ColumnOption {
	return func(f *Field) { f.Type = semantic }
}

// Column describes a field stored in its own column
func Column[E Entity, V any](name string, get func(E) V, set func(E, V), opts ...ColumnOption) *Field {
	f := &Field{
		Name:     name,
		Kind:     KindColumn,
		Type:     SemanticType[V](),
		Nullable: true,
	}
	f.get = func(e Entity) (interface{}, error) {
		typed, ok := e.(E)
		if !ok {
			return nil, mismatch(f, e)
		}
		v, err := ToStorage(get(typed))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.qualified(), err)
		}
		return v, nil
	}
	f.set = func(e Entity, src interface{}) error {
		typed, ok := e.(E)
		if !ok {
			return mismatch(f, e)
		}
		v, err := FromStorage[V](src)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.qualified(), err)
		}
		set(typed, v)
		return nil
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ToOne describes a field holding a single entity of the target definition
func ToOne[E Entity, A Entity](name, target string, get func(E) A, set func(E, A)) *Field {
	f := &Field{Name: name, Kind: KindToOne, Type: target, Nullable: true}
	f.getOne = func(e Entity) (Entity, error) {
		typed, ok := e.(E)
		if !ok {
			return nil, mismatch(f, e)
		}
		v := get(typed)
		if isNil(v) {
			return nil, nil
		}
		return v, nil
	}
	f.setOne = func(e Entity, v Entity) error {
		typed, ok := e.(E)
		if !ok {
			return mismatch(f, e)
		}
		var assoc A
		if v != nil {
			if assoc, ok = v.(A); !ok {
				return mismatch(f, v)
			}
		}
		set(typed, assoc)
		return nil
	}
	return f
}

// ToMany describes a field holding a collection of entities of the target definition
func ToMany[E Entity, A Entity](name, target string, get func(E) []A, set func(E, []A)) *Field {
	f := &Field{Name: name, Kind: KindToMany, Type: target, Nullable: true}
	f.getMany = func(e Entity) ([]Entity, error) {
		typed, ok := e.(E)
		if !ok {
			return nil, mismatch(f, e)
		}
		items := get(typed)
		out := make([]Entity, 0, len(items))
		for _, item := range items {
			if !isNil(item) {
				out = append(out, item)
			}
		}
		return out, nil
	}
	f.setMany = func(e Entity, v []Entity) error {
		typed, ok := e.(E)
		if !ok {
			return mismatch(f, e)
		}
		items := make([]A, 0, len(v))
		for _, item := range v {
			assoc, ok := item.(A)
			if !ok {
				return mismatch(f, item)
			}
			items = append(items, assoc)
		}
		set(typed, items)
		return nil
	}
	return f
}

func isNil[A Entity](v A) bool {
	var zero A
	return any(v) == any(zero)
}

func mismatch(f *Field, e Entity) error {
	return ormerrors.Configuration(f.qualified(), "accessor does not accept %T", e)
}
