package model

import (
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
)

// Member is a part of a definition: a *Field or an *Embedding
type Member interface {
	member()
}

// Embedding makes the fields of another definition reachable through a projection,
// the way an embedded struct exposes its fields.
type Embedding struct {
	def     *Definition
	project func(Entity) (Entity, error)
}

func (e *Embedding) member() {}

// Embed declares that entities of E carry the fields of parent through project
func Embed[E Entity, P Entity](parent *Definition, project func(E) P) *Embedding {
	emb := &Embedding{def: parent}
	emb.project = func(e Entity) (Entity, error) {
		typed, ok := e.(E)
		if !ok {
			return nil, ormerrors.Configuration(parent.Name, "embedding does not accept %T", e)
		}
		inner := project(typed)
		if isNil(inner) {
			return nil, ormerrors.Configuration(parent.Name, "embedded value of %T is nil", e)
		}
		return inner, nil
	}
	return emb
}

// Definition describes one mapped type: its name, how to instantiate it and its fields.
type Definition struct {
	Name string

	own      []*Field
	fields   []*Field
	byName   map[string]*Field
	newFn    func() Entity
	matches  func(Entity) bool
	problems []error
}

// Define builds the definition of the struct T. PT is inferred, so callers write
// model.Define[Person]("Person", ...).
func Define[T any, PT interface {
	*T
	Entity
}](name string, members ...Member) *Definition {
	d := &Definition{
		Name:    name,
		byName:  make(map[string]*Field),
		newFn:   func() Entity { return PT(new(T)) },
		matches: func(e Entity) bool { _, ok := e.(PT); return ok },
	}

	var embedded []*Field
	for _, m := range members {
		switch v := m.(type) {
		case *Field:
			v.owner = name
			d.own = append(d.own, v)
			d.add(v)
		case *Embedding:
			for _, f := range v.def.Fields() {
				embedded = append(embedded, f.project(name, v.project))
			}
		}
	}
	// fields declared on the type shadow embedded ones with the same name
	for _, f := range embedded {
		if _, ok := d.byName[f.Name]; !ok {
			d.add(f)
		}
	}
	return d
}

func (d *Definition) add(f *Field) {
	if _, dup := d.byName[f.Name]; dup {
		d.problems = append(d.problems, ormerrors.Configuration(d.Name, "field %q declared twice", f.Name))
		return
	}
	d.byName[f.Name] = f
	d.fields = append(d.fields, f)
}

// New returns a fresh zero entity of the defined type
func (d *Definition) New() Entity {
	return d.newFn()
}

// Matches reports whether e is an instance of the defined type
func (d *Definition) Matches(e Entity) bool {
	return e != nil && d.matches(e)
}

// Fields returns own fields followed by fields reached through embeddings
func (d *Definition) Fields() []*Field {
	return d.fields
}

// OwnFields returns only the fields declared directly on the type
func (d *Definition) OwnFields() []*Field {
	return d.own
}

// Field looks up a field by name, including embedded ones
func (d *Definition) Field(name string) (*Field, error) {
	if f, ok := d.byName[name]; ok {
		return f, nil
	}
	return nil, &ormerrors.NotFoundError{Type: d.Name, Field: name}
}

// Columns returns the non-ignored column fields
func (d *Definition) Columns() []*Field {
	var out []*Field
	for _, f := range d.fields {
		if f.Kind == KindColumn && !f.Ignore {
			out = append(out, f)
		}
	}
	return out
}

// Associations returns the association fields
func (d *Definition) Associations() []*Field {
	var out []*Field
	for _, f := range d.fields {
		if f.IsAssociation() && !f.Ignore {
			out = append(out, f)
		}
	}
	return out
}

// Problems returns the errors found while assembling the definition
func (d *Definition) Problems() []error {
	return d.problems
}
