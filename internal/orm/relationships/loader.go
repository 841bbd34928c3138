package relationships

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/codegen"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/schema"
)

// Fetch loads the entities of def with the given identifiers through exec
type Fetch func(ctx context.Context, exec database.Executor, def *model.Definition, ids []int64) ([]model.Entity, error)

// Loader fills the association fields of loaded entities one level deep. The associated
// entities come back with their columns only.
type Loader struct {
	schema  *schema.Schema
	catalog *model.Catalog
	fetch   Fetch
}

// NewLoader creates a loader reading associated rows with fetch
func NewLoader(s *schema.Schema, catalog *model.Catalog, fetch Fetch) *Loader {
	return &Loader{schema: s, catalog: catalog, fetch: fetch}
}

// link pairs a base identifier with one associated identifier
type link struct {
	base, other int64
}

// Load assigns every association field of entities, all of which belong to def. Each
// association costs two batched queries regardless of how many entities are given.
func (l *Loader) Load(ctx context.Context, exec database.Executor, def *model.Definition, entities []model.Entity) error {
	byID := make(map[int64][]model.Entity, len(entities))
	var ids []int64
	for _, e := range entities {
		if !e.Base().IsPersisted() {
			continue
		}
		id := e.Base().ID()
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], e)
	}
	if len(ids) == 0 {
		return nil
	}

	for _, f := range def.Associations() {
		end, err := l.schema.End(def.Name, f.Name)
		if err != nil {
			return fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, def.Name, f.Name)
		}
		if err := l.loadEnd(ctx, exec, end, f, ids, byID); err != nil {
			return fmt.Errorf("load %s.%s: %w", def.Name, f.Name, err)
		}
	}
	return nil
}

func (l *Loader) loadEnd(ctx context.Context, exec database.Executor, end *schema.End, f *model.Field, ids []int64, byID map[int64][]model.Entity) error {
	target, err := l.catalog.MustLookup(end.OtherType)
	if err != nil {
		return err
	}

	links, err := l.links(ctx, exec, end, ids)
	if err != nil {
		return err
	}

	var otherIDs []int64
	seen := make(map[int64]bool)
	for _, lk := range links {
		if !seen[lk.other] {
			seen[lk.other] = true
			otherIDs = append(otherIDs, lk.other)
		}
	}

	others := make(map[int64]model.Entity, len(otherIDs))
	if len(otherIDs) > 0 {
		loaded, err := l.fetch(ctx, exec, target, otherIDs)
		if err != nil {
			return err
		}
		for _, e := range loaded {
			others[e.Base().ID()] = e
		}
	}

	grouped := make(map[int64][]model.Entity)
	for _, lk := range links {
		if e, ok := others[lk.other]; ok {
			grouped[lk.base] = append(grouped[lk.base], e)
		}
	}

	for id, entities := range byID {
		related := grouped[id]
		for _, e := range entities {
			if end.Many {
				if related == nil {
					related = []model.Entity{}
				}
				if err := f.SetMany(e, related); err != nil {
					return err
				}
				continue
			}
			var one model.Entity
			if len(related) > 0 {
				one = related[0]
			}
			if err := f.SetOne(e, one); err != nil {
				return err
			}
		}
	}
	return nil
}

// links reads the (base, other) identifier pairs of end for the given base identifiers,
// ordered by the associated identifier
func (l *Loader) links(ctx context.Context, exec database.Executor, end *schema.End, ids []int64) ([]link, error) {
	identity := l.schema.Casing.Normalize(schema.IdentityColumn)

	var queries []string
	switch {
	case end.JoinTable != "":
		queries = append(queries, linkQuery(end.JoinTable, end.JoinColumn, end.OtherJoinColumn, end.JoinColumn, len(ids)))
		if end.Symmetric() {
			queries = append(queries, linkQuery(end.JoinTable, end.OtherJoinColumn, end.JoinColumn, end.OtherJoinColumn, len(ids)))
		}
	case end.HoldsForeignKey:
		queries = append(queries, linkQuery(end.Table, identity, end.ForeignKey, identity, len(ids))+
			fmt.Sprintf(" AND %s IS NOT NULL", codegen.QuoteIdentifier(end.ForeignKey)))
	default:
		queries = append(queries, linkQuery(end.OtherTable, end.ForeignKey, identity, end.ForeignKey, len(ids)))
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var out []link
	seen := make(map[link]bool)
	for _, q := range queries {
		rows, err := exec.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var lk link
			if err := rows.Scan(&lk.base, &lk.other); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[lk] {
				seen[lk] = true
				out = append(out, lk)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].other < out[j].other })
	return out, nil
}

// linkQuery selects base and other columns of table where in matches the placeholders
func linkQuery(table, base, other, in string, n int) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)",
		codegen.QuoteIdentifier(base), codegen.QuoteIdentifier(other), codegen.QuoteIdentifier(table), codegen.QuoteIdentifier(in),
		strings.TrimSuffix(strings.Repeat("?, ", n), ", "),
	)
}
