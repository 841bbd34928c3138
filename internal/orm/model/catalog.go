package model

import (
	"fmt"
	"sort"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
)

// Catalog indexes a fixed set of definitions by name and finds the definition of an
// entity instance.
type Catalog struct {
	byName map[string]*Definition
	names  []string
}

// NewCatalog builds a catalog. Definition names must be unique.
func NewCatalog(defs ...*Definition) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		if _, dup := c.byName[def.Name]; dup {
			return nil, ormerrors.Configuration(def.Name, "definition listed twice")
		}
		c.byName[def.Name] = def
		c.names = append(c.names, def.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup finds a definition by name
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// MustLookup finds a definition by name or returns a configuration error
func (c *Catalog) MustLookup(name string) (*Definition, error) {
	if def, ok := c.byName[name]; ok {
		return def, nil
	}
	return nil, ormerrors.Configuration(name, "definition is not part of this store")
}

// For finds the definition an entity instance belongs to
func (c *Catalog) For(e Entity) (*Definition, error) {
	if e == nil {
		return nil, ormerrors.Configuration("entity", "nil entity")
	}
	for _, name := range c.names {
		if def := c.byName[name]; def.Matches(e) {
			return def, nil
		}
	}
	return nil, ormerrors.Configuration(fmt.Sprintf("%T", e), "no definition maps this type")
}

// Definitions returns every definition sorted by name
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, len(c.names))
	for i, name := range c.names {
		out[i] = c.byName[name]
	}
	return out
}
