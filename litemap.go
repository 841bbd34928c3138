// Package litemap maps plain Go structs onto a single-file SQLite store. Open builds the
// schema from model definitions, migrates the store to the requested version and returns
// a DB through which object graphs are saved, updated, deleted and loaded.
package litemap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/litemap/litemap/internal/database"
	"github.com/litemap/litemap/internal/orm/crud"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/hooks"
	"github.com/litemap/litemap/internal/orm/migrate"
	"github.com/litemap/litemap/internal/orm/model"
	"github.com/litemap/litemap/internal/orm/query"
	"github.com/litemap/litemap/internal/orm/schema"
	"github.com/litemap/litemap/internal/orm/transaction"
)

// Config names a store and the model it holds
type Config struct {
	// Name of the database file; ".db" is appended when missing. ":memory:" opens a
	// private in-memory store.
	Name string `mapstructure:"name"`

	// Version of the model. Raising it migrates the store on the next Open.
	Version int `mapstructure:"version"`

	// Storage is the directory holding the file. Empty means the working directory.
	Storage string `mapstructure:"storage"`

	// Cases is the table and column casing policy: lower (default), upper or keep
	Cases string `mapstructure:"cases"`

	// Models restricts the store to the named definitions. Empty keeps all of them.
	Models []string `mapstructure:"models"`

	// WAL enables write-ahead logging for file stores
	WAL bool `mapstructure:"wal"`
}

// Path returns the file the store lives in
func (c Config) Path() string {
	return database.ResolvePath(c.Storage, c.Name)
}

// Validate checks the fields Open cannot work without
func (c Config) Validate() error {
	if c.Name == "" {
		return ormerrors.Configuration("name", "database name is required")
	}
	if c.Version < 1 {
		return ormerrors.Configuration("version", "must be at least 1, got %d", c.Version)
	}
	if _, err := schema.ParseCasing(c.Cases); err != nil {
		return err
	}
	return nil
}

// Option configures Open
type Option func(*options)

type options struct {
	logger   *zap.Logger
	listener Listener
	maxDepth int
	hooks    []hook
}

type hook struct {
	definition string
	event      Event
	fn         HookFunc
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithListener is told whether Open created or upgraded the store
func WithListener(l Listener) Option {
	return func(o *options) { o.listener = l }
}

// WithMaxDepth bounds how deep a cascade may recurse through associations
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithHook runs fn at event for every entity of the named definition. Hooks run under the
// store lock and must not call back into the DB.
func WithHook(definition string, event Event, fn HookFunc) Option {
	return func(o *options) { o.hooks = append(o.hooks, hook{definition, event, fn}) }
}

// DB is an open, migrated store. Every operation holds the store lock for its full
// duration, so a DB may be shared between goroutines.
type DB struct {
	mu sync.Mutex

	cfg       Config
	conn      *database.DB
	schema    *schema.Schema
	ops       *crud.Operations
	migration *migrate.Plan
	logger    *zap.Logger
}

// Open builds the schema of defs, opens the store and migrates it to cfg.Version. Each
// call owns its own handle, so several named stores can be open at once.
func Open(ctx context.Context, cfg Config, defs []*Definition, opts ...Option) (*DB, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, catalog, err := Build(cfg, defs)
	if err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry(o.logger)
	for _, h := range o.hooks {
		if _, err := catalog.MustLookup(h.definition); err != nil {
			return nil, err
		}
		registry.Register(h.definition, h.event, h.fn)
	}

	conn, err := database.Open(database.Config{Path: cfg.Path(), WALMode: cfg.WAL})
	if err != nil {
		return nil, ormerrors.Store("open", "", err)
	}

	txManager := transaction.NewManager(conn.DB)
	plan, err := migrate.NewRunner(txManager, o.logger, o.listener).Migrate(ctx, s, cfg.Version)
	if err != nil {
		conn.Close() //nolint:errcheck // the migration error is the one worth returning
		return nil, err
	}

	o.logger.Debug("store opened",
		zap.String("path", conn.Path()),
		zap.Int("version", cfg.Version),
		zap.Int("tables", len(s.Tables())),
	)

	return &DB{
		cfg:       cfg,
		conn:      conn,
		schema:    s,
		ops:       crud.NewOperations(s, catalog, txManager, crud.WithLogger(o.logger), crud.WithMaxDepth(o.maxDepth), crud.WithHooks(registry)),
		migration: plan,
		logger:    o.logger,
	}, nil
}

// Build validates defs and returns the schema and catalog of the definitions cfg selects
func Build(cfg Config, defs []*Definition) (*schema.Schema, *model.Catalog, error) {
	casing, err := schema.ParseCasing(cfg.Cases)
	if err != nil {
		return nil, nil, err
	}

	registry := schema.NewRegistry()
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, nil, err
		}
	}
	selected, err := registry.Select(cfg.Models)
	if err != nil {
		return nil, nil, err
	}
	if len(selected) == 0 {
		return nil, nil, ormerrors.Configuration("models", "no model definitions to map")
	}

	s, err := schema.NewBuilder(casing).Build(selected)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := model.NewCatalog(selected...)
	if err != nil {
		return nil, nil, err
	}
	return s, catalog, nil
}

// Inspect computes the migration Open would run against the store, without changing it
func Inspect(ctx context.Context, cfg Config, defs []*Definition) (*Plan, *schema.Schema, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	s, _, err := Build(cfg, defs)
	if err != nil {
		return nil, nil, err
	}

	// a store that does not exist yet plans like an empty one
	conn, err := database.Open(database.Config{Path: cfg.Path(), ReadOnly: true})
	if errors.Is(err, database.ErrNoStore) {
		conn, err = database.Open(database.Config{Path: database.Memory})
	}
	if err != nil {
		return nil, nil, ormerrors.Store("open", "", err)
	}
	defer conn.Close() //nolint:errcheck // read-only use

	plan, err := migrate.NewRunner(transaction.NewManager(conn.DB), nil, nil).Plan(ctx, s, cfg.Version)
	if err != nil {
		return nil, nil, err
	}
	return plan, s, nil
}

// Close releases the store handle
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.conn.Close()
}

// Config returns the configuration the store was opened with
func (db *DB) Config() Config {
	return db.cfg
}

// Schema returns the tables and associations the store was built with
func (db *DB) Schema() *schema.Schema {
	return db.schema
}

// Migration returns what Open did to bring the store to its version
func (db *DB) Migration() *Plan {
	return db.migration
}

// Definition returns the definition registered under name
func (db *DB) Definition(name string) (*Definition, error) {
	return db.ops.Catalog().MustLookup(name)
}

// Save inserts e, or updates it when it is already persisted, together with every
// association reachable from it. Nothing is written when any part fails.
func (db *DB) Save(ctx context.Context, e Entity) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.Save(ctx, e)
}

// Update writes e over its own row, limited to columns when any are given
func (db *DB) Update(ctx context.Context, e Entity, columns ...string) (int64, error) {
	if !e.Base().IsPersisted() {
		return 0, fmt.Errorf("update %T: %w", e, ormerrors.ErrNotPersisted)
	}
	return db.UpdateByID(ctx, e, e.Base().ID(), columns...)
}

// UpdateByID writes e over the row with the given identifier
func (db *DB) UpdateByID(ctx context.Context, e Entity, id int64, columns ...string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.UpdateByID(ctx, e, id, columns...)
}

// UpdateWhere writes e over every row matching predicate
func (db *DB) UpdateWhere(ctx context.Context, e Entity, columns []string, predicate string, args ...interface{}) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.UpdateWhere(ctx, e, columns, predicate, args...)
}

// Delete removes e's row and resets e. Associated entities are kept; links to e are removed.
func (db *DB) Delete(ctx context.Context, e Entity) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.Delete(ctx, e)
}

// DeleteByID removes the row of def with the given identifier
func (db *DB) DeleteByID(ctx context.Context, def *Definition, id int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.DeleteByID(ctx, def, id)
}

// DeleteWhere removes every row of def matching predicate. An empty predicate removes all.
func (db *DB) DeleteWhere(ctx context.Context, def *Definition, predicate string, args ...interface{}) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.DeleteWhere(ctx, def, predicate, args...)
}

// Find loads the row with the given identifier into dst
func (db *DB) Find(ctx context.Context, dst Entity, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.Find(ctx, dst, id)
}

// FindAll loads the rows of def with the given identifiers, or every row when none are given
func (db *DB) FindAll(ctx context.Context, def *Definition, ids ...int64) ([]Entity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.FindAll(ctx, def, ids...)
}

// FindEager loads the row with the given identifier into dst together with its associated
// entities. Those are loaded one level deep: their own associations stay empty.
func (db *DB) FindEager(ctx context.Context, dst Entity, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.FindEager(ctx, dst, id)
}

// FindAllEager is FindAll with associations loaded one level deep
func (db *DB) FindAllEager(ctx context.Context, def *Definition, ids ...int64) ([]Entity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.ops.FindAllEager(ctx, def, ids...)
}

// Query starts a fluent query. Its terminal methods take the store lock.
func (db *DB) Query() *query.Builder {
	return query.New(db.ops, db.conn.DB, &db.mu)
}

// FindAs loads the entity of def with the given identifier as an E
func FindAs[E Entity](ctx context.Context, db *DB, def *Definition, id int64) (E, error) {
	var zero E
	e := def.New()
	if err := db.Find(ctx, e, id); err != nil {
		return zero, err
	}
	typed, ok := e.(E)
	if !ok {
		return zero, ormerrors.Configuration(def.Name, "definition creates %T, not %T", e, zero)
	}
	return typed, nil
}

// Collect converts loaded entities to E, skipping those of another type
func Collect[E Entity](entities []Entity) []E {
	out := make([]E, 0, len(entities))
	for _, e := range entities {
		if typed, ok := e.(E); ok {
			out = append(out, typed)
		}
	}
	return out
}
