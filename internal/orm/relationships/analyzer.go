package relationships

import (
	"context"
	"fmt"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/schema"
)

// Analyzer handles one association field of an entity about to be saved. It may mutate
// the associated entities so both sides agree, and records its decisions in res.
type Analyzer interface {
	Analyze(ctx context.Context, c *Cascade, base model.Entity, field *model.Field, end *schema.End, res *Resolution) error
}

// Resolver picks the analyzer for every association field of a definition
type Resolver struct {
	schema     *schema.Schema
	catalog    *model.Catalog
	toOne      Analyzer
	oneToMany  Analyzer
	manyToMany Analyzer
}

// NewResolver creates a resolver over a built schema and the definitions it came from
func NewResolver(s *schema.Schema, catalog *model.Catalog) *Resolver {
	return &Resolver{
		schema:     s,
		catalog:    catalog,
		toOne:      &ToOneAnalyzer{catalog: catalog},
		oneToMany:  &OneToManyAnalyzer{catalog: catalog},
		manyToMany: &ManyToManyAnalyzer{catalog: catalog},
	}
}

// Resolve runs the analyzers over every association field of base. Nothing is written;
// a failing accessor surfaces here, before the entity's row is touched.
func (r *Resolver) Resolve(ctx context.Context, c *Cascade, def *model.Definition, base model.Entity) (*Resolution, error) {
	res := &Resolution{}
	for _, field := range def.Associations() {
		end, err := r.schema.End(def.Name, field.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, def.Name, field.Name)
		}
		if err := r.analyzerFor(end).Analyze(ctx, c, base, field, end, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Resolver) analyzerFor(end *schema.End) Analyzer {
	switch {
	case end.Kind() == schema.ManyToMany:
		return r.manyToMany
	case end.Many:
		return r.oneToMany
	default:
		return r.toOne
	}
}

func target(catalog *model.Catalog, end *schema.End, field *model.Field, assoc model.Entity) (*model.Definition, error) {
	def, err := catalog.MustLookup(end.OtherType)
	if err != nil {
		return nil, err
	}
	if !def.Matches(assoc) {
		return nil, ormerrors.Configuration(field.Name, "holds %T, which is not a %s", assoc, end.OtherType)
	}
	return def, nil
}

// ToOneAnalyzer handles single-valued fields of one-to-one and many-to-one associations.
type ToOneAnalyzer struct {
	catalog *model.Catalog
}

// Analyze queues an unsaved associated entity as a prerequisite, mirrors base into the
// associated entity's reverse field when that is empty, and decides where the foreign
// key goes. When base holds the key a nil field stores NULL.
func (a *ToOneAnalyzer) Analyze(ctx context.Context, c *Cascade, base model.Entity, field *model.Field, end *schema.End, res *Resolution) error {
	assoc, err := field.One(base)
	if err != nil {
		return err
	}
	if assoc == nil {
		if end.HoldsForeignKey {
			res.SetForeignKey(end.ForeignKey, nil)
		}
		return nil
	}

	other, err := target(a.catalog, end, field, assoc)
	if err != nil {
		return err
	}
	if !assoc.Base().IsPersisted() && !c.InProgress(assoc) {
		res.AddPrerequisite(assoc)
	}

	if end.OtherField != "" {
		reverse, err := other.Field(end.OtherField)
		if err != nil {
			return err
		}
		if err := mirror(reverse, assoc, base, end.OtherMany); err != nil {
			return err
		}
	}

	if end.HoldsForeignKey {
		res.SetForeignKey(end.ForeignKey, assoc)
	} else {
		res.Defer(DeferredUpdate{Table: end.OtherTable, Column: end.ForeignKey, Target: assoc})
	}
	return nil
}

// OneToManyAnalyzer handles the collection side of a many-to-one association. The rows
// of the collection carry the foreign key.
type OneToManyAnalyzer struct {
	catalog *model.Catalog
}

// Analyze mirrors base into each item's reverse field when it is empty and points every
// persisted item's row at base. Unsaved items are left alone; saving them later writes
// the key from their side.
func (a *OneToManyAnalyzer) Analyze(ctx context.Context, c *Cascade, base model.Entity, field *model.Field, end *schema.End, res *Resolution) error {
	items, err := field.Many(base)
	if err != nil {
		return err
	}
	for _, item := range items {
		other, err := target(a.catalog, end, field, item)
		if err != nil {
			return err
		}
		if end.OtherField != "" {
			reverse, err := other.Field(end.OtherField)
			if err != nil {
				return err
			}
			if err := mirror(reverse, item, base, false); err != nil {
				return err
			}
		}
		if item.Base().IsPersisted() {
			res.Defer(DeferredUpdate{Table: end.OtherTable, Column: end.ForeignKey, Target: item})
		}
	}
	return nil
}

// ManyToManyAnalyzer handles both sides of a many-to-many association.
type ManyToManyAnalyzer struct {
	catalog *model.Catalog
}

// Analyze declares base's join bucket for the field, adds base to each item's reverse
// collection when missing, and records the identifiers of persisted items for the join
// table. A symmetric field is its own reverse.
func (a *ManyToManyAnalyzer) Analyze(ctx context.Context, c *Cascade, base model.Entity, field *model.Field, end *schema.End, res *Resolution) error {
	items, err := field.Many(base)
	if err != nil {
		return err
	}

	c.Touch(base)
	record := base.Base()
	record.DeclareJoinTable(field.Name)

	reverseName := end.OtherField
	if end.Symmetric() {
		reverseName = field.Name
	}

	for _, item := range items {
		other, err := target(a.catalog, end, field, item)
		if err != nil {
			return err
		}
		if reverseName != "" {
			reverse, err := other.Field(reverseName)
			if err != nil {
				return err
			}
			if err := mirror(reverse, item, base, true); err != nil {
				return err
			}
		}
		if item.Base().IsPersisted() {
			record.AddJoinID(field.Name, item.Base().ID())
		}
	}

	res.Joins = append(res.Joins, JoinFlush{
		Key:         field.Name,
		Table:       end.JoinTable,
		Column:      end.JoinColumn,
		OtherColumn: end.OtherJoinColumn,
		Symmetric:   end.Symmetric(),
	})
	return nil
}

// mirror makes holder's reverse field refer to base: a collection gains base once, an
// empty single-valued field is set to it. A single-valued field already pointing
// elsewhere is kept.
func mirror(reverse *model.Field, holder, base model.Entity, many bool) error {
	if many {
		list, err := reverse.Many(holder)
		if err != nil {
			return err
		}
		if model.Contains(list, base) {
			return nil
		}
		return reverse.SetMany(holder, append(list, base))
	}

	current, err := reverse.One(holder)
	if err != nil {
		return err
	}
	if current != nil {
		return nil
	}
	return reverse.SetOne(holder, base)
}
