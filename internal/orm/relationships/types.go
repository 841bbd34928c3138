// Package relationships works out what saving an entity means for the entities it is
// associated with: which must be written first, which foreign keys the row carries,
// which rows of other tables must be pointed back at it, and which join rows to add.
package relationships

import (
	"sync"

	"github.com/litemap/litemap/internal/orm/model"
)

// DefaultMaxDepth bounds how deep a cascade may recurse through prerequisites
const DefaultMaxDepth = 64

// Cascade tracks one top-level save: the entities currently being saved, so cycles stop
// at them, and the state every touched record had before the cascade changed it.
type Cascade struct {
	inProgress map[*model.Record]bool
	touched    map[*model.Record]model.RecordState
	order      []*model.Record
	depth      int
	maxDepth   int
	mu         sync.Mutex
}

// NewCascade creates a cascade with the given depth limit. A limit below 1 uses
// DefaultMaxDepth.
func NewCascade(maxDepth int) *Cascade {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Cascade{
		inProgress: make(map[*model.Record]bool),
		touched:    make(map[*model.Record]model.RecordState),
		maxDepth:   maxDepth,
	}
}

// Begin marks e as being saved. It returns false when e is already in progress, in which
// case the caller must not recurse into it.
func (c *Cascade) Begin(e model.Entity) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := e.Base()
	if c.inProgress[r] {
		return false, nil
	}
	if c.depth >= c.maxDepth {
		return false, ErrMaxDepthExceeded
	}
	c.depth++
	c.inProgress[r] = true
	return true, nil
}

// End leaves the nesting level entered by Begin. The entity stays in progress so that
// later analyzers in the same cascade do not save it twice.
func (c *Cascade) End(e model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth--
}

// InProgress reports whether e is being saved by this cascade
func (c *Cascade) InProgress(e model.Entity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress[e.Base()]
}

// Touch captures e's persistence state the first time the cascade is about to change it
func (c *Cascade) Touch(e model.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := e.Base()
	if _, ok := c.touched[r]; ok {
		return
	}
	c.touched[r] = r.Snapshot()
	c.order = append(c.order, r)
}

// Records returns every record the cascade touched, in the order it touched them
func (c *Cascade) Records() []*model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*model.Record(nil), c.order...)
}

// Restore puts every touched record back to the state it had before the cascade
func (c *Cascade) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.order {
		r.Restore(c.touched[r])
	}
}

// MarkSaved flags every touched record as saved
func (c *Cascade) MarkSaved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.order {
		r.MarkSaved()
	}
}
