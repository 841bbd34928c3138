package relationships

import "github.com/litemap/litemap/internal/orm/model"

// ForeignKey is a column of the saved entity's own row that points at Target. A nil
// Target stores NULL.
type ForeignKey struct {
	Column string
	Target model.Entity
}

// DeferredUpdate points a row of another table back at the saved entity once the saved
// entity has an identifier: UPDATE Table SET Column = <saved id> WHERE id = <Target id>.
type DeferredUpdate struct {
	Table  string
	Column string
	Target model.Entity
}

// JoinFlush inserts the pending links of one many-to-many field after the saved entity
// has an identifier.
type JoinFlush struct {
	Key         string
	Table       string
	Column      string
	OtherColumn string
	Symmetric   bool
}

// Resolution is what the analyzers decided for one entity
type Resolution struct {
	Prerequisites []model.Entity
	ForeignKeys   []ForeignKey
	Deferred      []DeferredUpdate
	Joins         []JoinFlush
}

// AddPrerequisite queues e to be saved before the entity itself. Queuing the same
// instance twice is a no-op.
func (r *Resolution) AddPrerequisite(e model.Entity) {
	if model.Contains(r.Prerequisites, e) {
		return
	}
	r.Prerequisites = append(r.Prerequisites, e)
}

// SetForeignKey records the value of a foreign key column. The last call for a column
// wins.
func (r *Resolution) SetForeignKey(column string, target model.Entity) {
	for i := range r.ForeignKeys {
		if r.ForeignKeys[i].Column == column {
			r.ForeignKeys[i].Target = target
			return
		}
	}
	r.ForeignKeys = append(r.ForeignKeys, ForeignKey{Column: column, Target: target})
}

// Defer queues an update of another table's row
func (r *Resolution) Defer(u DeferredUpdate) {
	for _, existing := range r.Deferred {
		if existing.Table == u.Table && existing.Column == u.Column && model.Same(existing.Target, u.Target) {
			return
		}
	}
	r.Deferred = append(r.Deferred, u)
}

// Value returns the identifier a foreign key column must store, or nil for
// NULL. It is read when the row is written so prerequisites saved meanwhile count.
func (fk ForeignKey) Value() interface{} {
	if fk.Target == nil || !fk.Target.Base().IsPersisted() {
		return nil
	}
	return fk.Target.Base().ID()
}
