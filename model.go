package litemap

import (
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/hooks"
	"github.com/litemap/litemap/internal/orm/migrate"
	"github.com/litemap/litemap/internal/orm/model"
)

type (
	// Record is embedded by every mapped struct
	Record = model.Record
	// Entity is any struct embedding Record
	Entity = model.Entity
	// Definition describes one mapped type
	Definition = model.Definition
	// Field is one column or association of a definition
	Field = model.Field
	// Member is a Field or an Embedding
	Member = model.Member
	// ColumnOption customizes a column
	ColumnOption = model.ColumnOption

	// Listener is told when Open created or upgraded the store
	Listener = migrate.Listener
	// ListenerFuncs adapts plain functions to Listener
	ListenerFuncs = migrate.ListenerFuncs
	// Plan describes what a migration did or would do
	Plan = migrate.Plan

	// Event is a point of an entity's lifecycle hooks run at
	Event = hooks.Event
	// HookFunc is a lifecycle hook
	HookFunc = hooks.Func
)

// Lifecycle events
const (
	BeforeSave   = hooks.BeforeSave
	AfterSave    = hooks.AfterSave
	BeforeDelete = hooks.BeforeDelete
	AfterDelete  = hooks.AfterDelete
)

// Column options
var (
	NotNull = model.NotNull
	Unique  = model.Unique
	Default = model.Default
	Ignore  = model.Ignore
	As      = model.As
)

// Error classification
var (
	ErrNotFound        = ormerrors.ErrNotFound
	ErrConfiguration   = ormerrors.ErrConfiguration
	ErrDowngrade       = ormerrors.ErrDowngrade
	ErrNotPersisted    = ormerrors.ErrNotPersisted
	IsConfiguration    = ormerrors.IsConfiguration
	IsNotFound         = ormerrors.IsNotFound
	IsStore            = ormerrors.IsStore
	IsUniqueViolation  = ormerrors.IsUniqueViolation
	IsNotNullViolation = ormerrors.IsNotNullViolation
)

// Define builds the definition of the struct T, e.g. litemap.Define[Song]("Song", ...)
func Define[T any, PT interface {
	*T
	Entity
}](name string, members ...Member) *Definition {
	return model.Define[T, PT](name, members...)
}

// Column declares a field stored in its own column
func Column[E Entity, V any](name string, get func(E) V, set func(E, V), opts ...ColumnOption) *Field {
	return model.Column(name, get, set, opts...)
}

// ToOne declares a field holding one entity of the target definition
func ToOne[E Entity, A Entity](name, target string, get func(E) A, set func(E, A)) *Field {
	return model.ToOne(name, target, get, set)
}

// ToMany declares a field holding a collection of entities of the target definition
func ToMany[E Entity, A Entity](name, target string, get func(E) []A, set func(E, []A)) *Field {
	return model.ToMany(name, target, get, set)
}

// Embed gives entities of E the fields of parent, reached through project
func Embed[E Entity, P Entity](parent *Definition, project func(E) P) Member {
	return model.Embed(parent, project)
}
