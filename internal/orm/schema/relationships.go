package schema

import ormerrors "github.com/litemap/litemap/internal/orm/errors"

// AssociationKind is the cardinality of an association
type AssociationKind int

const (
	OneToOne   AssociationKind = 1
	ManyToOne  AssociationKind = 2
	ManyToMany AssociationKind = 3
)

// String returns the string representation of the association kind
func (k AssociationKind) String() string {
	switch k {
	case OneToOne:
		return "one_to_one"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// Association describes one relation between two definitions. Left is the side whose
// field was visited first; Right may have no field when the relation is unidirectional.
type Association struct {
	Kind          AssociationKind
	Left, Right   string
	LeftTable     string
	RightTable    string
	LeftField     string
	RightField    string
	Bidirectional bool
	Symmetric     bool

	// to-one kinds: LeftHolds is true when LeftTable carries ForeignKey, which points
	// at the other side's table
	LeftHolds  bool
	ForeignKey string

	// many-to-many
	JoinTable   string
	LeftColumn  string
	RightColumn string
}

// IsSelf reports whether both sides are the same definition
func (a *Association) IsSelf() bool {
	return a.Left == a.Right
}

// End is an association seen from one declared field.
type End struct {
	Association *Association

	Type  string
	Table string
	Field string
	Many  bool

	OtherType  string
	OtherTable string
	OtherField string
	OtherMany  bool

	// HoldsForeignKey is true when this side's table carries ForeignKey
	HoldsForeignKey bool
	ForeignKey      string

	JoinTable       string
	JoinColumn      string
	OtherJoinColumn string
}

// Kind returns the cardinality of the underlying association
func (e *End) Kind() AssociationKind {
	return e.Association.Kind
}

// Symmetric reports a self-referential many-to-many declared through a single field
func (e *End) Symmetric() bool {
	return e.Association.Symmetric
}

func (a *Association) ends() []*End {
	var out []*End
	if a.LeftField != "" {
		out = append(out, a.end(true))
	}
	if a.RightField != "" && !a.Symmetric {
		out = append(out, a.end(false))
	}
	return out
}

func (a *Association) end(left bool) *End {
	e := &End{
		Association: a,
		ForeignKey:  a.ForeignKey,
		JoinTable:   a.JoinTable,
	}
	if left {
		e.Type, e.Table, e.Field = a.Left, a.LeftTable, a.LeftField
		e.OtherType, e.OtherTable, e.OtherField = a.Right, a.RightTable, a.RightField
		e.JoinColumn, e.OtherJoinColumn = a.LeftColumn, a.RightColumn
	} else {
		e.Type, e.Table, e.Field = a.Right, a.RightTable, a.RightField
		e.OtherType, e.OtherTable, e.OtherField = a.Left, a.LeftTable, a.LeftField
		e.JoinColumn, e.OtherJoinColumn = a.RightColumn, a.LeftColumn
	}

	switch a.Kind {
	case OneToOne:
		e.HoldsForeignKey = left == a.LeftHolds
	case ManyToOne:
		// the scalar side holds the key
		e.HoldsForeignKey = left == a.LeftHolds
		e.Many = !e.HoldsForeignKey
		e.OtherMany = e.HoldsForeignKey
	case ManyToMany:
		e.Many, e.OtherMany = true, true
	}
	return e
}

// End returns the association seen from a declared field
func (s *Schema) End(typeName, field string) (*End, error) {
	if e, ok := s.ends[typeName][field]; ok {
		return e, nil
	}
	return nil, &ormerrors.NotFoundError{Type: typeName, Field: field}
}

// Ends returns the associations declared on a definition, keyed by field name
func (s *Schema) Ends(typeName string) map[string]*End {
	return s.ends[typeName]
}

func (s *Schema) addAssociation(a *Association) {
	s.associations = append(s.associations, a)
	for _, e := range a.ends() {
		if s.ends[e.Type] == nil {
			s.ends[e.Type] = make(map[string]*End)
		}
		s.ends[e.Type][e.Field] = e
	}
}

// Reference is a column pointing at rows of some table
type Reference struct {
	Table  string
	Column string
	Join   bool
}

// ReferencesTo lists the foreign key and join-table columns that point at rows of
// typeName. A self-referential join table yields both of its columns.
func (s *Schema) ReferencesTo(typeName string) []Reference {
	var refs []Reference
	for _, a := range s.associations {
		switch a.Kind {
		case OneToOne, ManyToOne:
			target, holderTable := a.Right, a.LeftTable
			if !a.LeftHolds {
				target, holderTable = a.Left, a.RightTable
			}
			if target == typeName {
				refs = append(refs, Reference{Table: holderTable, Column: a.ForeignKey})
			}
		case ManyToMany:
			if a.Left == typeName {
				refs = append(refs, Reference{Table: a.JoinTable, Column: a.LeftColumn, Join: true})
			}
			if a.Right == typeName {
				refs = append(refs, Reference{Table: a.JoinTable, Column: a.RightColumn, Join: true})
			}
		}
	}
	return refs
}

// Holder returns the definition whose table carries the foreign key of a to-one kind
func (a *Association) Holder() string {
	if a.LeftHolds {
		return a.Left
	}
	return a.Right
}
