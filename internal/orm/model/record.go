// Package model describes mapped entities without runtime reflection. Every mapped
// struct embeds Record, and is described once by a Definition built from typed field
// accessors.
package model

import "sort"

// Entity is implemented by every mapped struct through its embedded Record.
type Entity interface {
	Base() *Record
}

// Record carries the persistence state of an entity: its identifier, the saved flag and
// the many-to-many links waiting to be written into join tables.
type Record struct {
	id    int64
	saved bool

	// association field name -> associated identifiers pending join-table insertion
	joins map[string]map[int64]struct{}
}

// Base returns the record itself so that embedding structs implement Entity
func (r *Record) Base() *Record {
	return r
}

// ID returns the identifier, or 0 if the entity was never persisted
func (r *Record) ID() int64 {
	return r.id
}

// IsPersisted reports whether the entity has an identifier
func (r *Record) IsPersisted() bool {
	return r.id > 0
}

// IsSaved reports whether the last cascade touching this entity completed
func (r *Record) IsSaved() bool {
	return r.saved
}

// ClearSavedState forgets the identifier so that the next save inserts a new row
func (r *Record) ClearSavedState() {
	r.id = 0
	r.saved = false
	r.joins = nil
}

// AssignID sets the identifier returned by the store
func (r *Record) AssignID(id int64) {
	r.id = id
}

// MarkSaved sets the saved flag and drops the pending join buckets
func (r *Record) MarkSaved() {
	r.saved = true
	r.joins = nil
}

// DeclareJoinTable creates an empty bucket under key. Declaring the same
// key twice keeps the existing bucket.
func (r *Record) DeclareJoinTable(key string) {
	if r.joins == nil {
		r.joins = make(map[string]map[int64]struct{})
	}
	if _, ok := r.joins[key]; !ok {
		r.joins[key] = make(map[int64]struct{})
	}
}

// AddJoinID records an associated identifier under key for insertion into a join table
func (r *Record) AddJoinID(key string, id int64) {
	r.DeclareJoinTable(key)
	r.joins[key][id] = struct{}{}
}

// JoinTables returns the keys with a declared bucket, sorted
func (r *Record) JoinTables() []string {
	names := make([]string, 0, len(r.joins))
	for name := range r.joins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JoinIDs returns the pending identifiers under key, sorted
func (r *Record) JoinIDs(key string) []int64 {
	bucket := r.joins[key]
	ids := make([]int64, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot captures the mutable state so a failed cascade can put it back
func (r *Record) Snapshot() RecordState {
	state := RecordState{id: r.id, saved: r.saved}
	if r.joins != nil {
		state.joins = make(map[string]map[int64]struct{}, len(r.joins))
		for table, bucket := range r.joins {
			copied := make(map[int64]struct{}, len(bucket))
			for id := range bucket {
				copied[id] = struct{}{}
			}
			state.joins[table] = copied
		}
	}
	return state
}

// Restore puts back a state captured by Snapshot
func (r *Record) Restore(state RecordState) {
	r.id = state.id
	r.saved = state.saved
	r.joins = state.joins
}

// RecordState is an opaque copy of a Record's persistence state
type RecordState struct {
	id    int64
	saved bool
	joins map[string]map[int64]struct{}
}

// Same reports whether two entities are the same instance
func Same(a, b Entity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Base() == b.Base()
}

// Contains reports whether list holds the given instance
func Contains(list []Entity, e Entity) bool {
	for _, item := range list {
		if Same(item, e) {
			return true
		}
	}
	return false
}
