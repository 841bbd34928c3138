package commands

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/litemap/litemap"
	"github.com/litemap/litemap/internal/cli/ui"
	"github.com/litemap/litemap/internal/database"
	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/migrate"
	"github.com/litemap/litemap/internal/orm/schema"
)

func newInspectCommand(a *app) *cobra.Command {
	var (
		model bool
		dump  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the tables of the store",
		Long: `Show the stored version and the tables the store holds, read back from the
database. With --model, show the schema built from the model definitions instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if model {
				if err := a.requireDefinitions(); err != nil {
					return err
				}
				s, _, err := litemap.Build(a.cfg.Config, a.defs)
				if err != nil {
					return err
				}
				if dump {
					spew.Fdump(out, s)
					return nil
				}
				ui.RenderSchema(out, a.palette, s)
				return nil
			}

			// without definitions only the tables the metadata table lists are shown
			var s *schema.Schema
			if len(a.defs) > 0 {
				built, _, err := litemap.Build(a.cfg.Config, a.defs)
				if err != nil {
					return err
				}
				s = built
			}

			snap, err := loadSnapshot(cmd.Context(), a, s)
			if err != nil {
				return err
			}
			if dump {
				spew.Fdump(out, snap)
				return nil
			}

			kv := ui.NewKeyValues(out, a.palette)
			kv.Add("store", a.cfg.Path())
			kv.Add("version", snap.Version)
			kv.Add("tables", len(snap.Tables()))
			kv.Render()
			fmt.Fprintln(out)
			ui.RenderTables(out, a.palette, snap.Tables())
			return nil
		},
	}

	cmd.Flags().BoolVar(&model, "model", false, "show the schema built from the definitions")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the raw structures")

	return cmd
}

// loadSnapshot reads the tables the store holds without migrating it. s may be nil.
func loadSnapshot(ctx context.Context, a *app, s *schema.Schema) (*migrate.Snapshot, error) {
	conn, err := database.Open(database.Config{Path: a.cfg.Path(), ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // read-only use

	return migrate.LoadSnapshot(ctx, conn, s)
}

// requireDefinitions refuses to work without a model. Stamping a version over an empty
// model would mark the store reconciled while nothing was applied.
func (a *app) requireDefinitions() error {
	if len(a.defs) == 0 {
		return ormerrors.Configuration("models", "no model definitions registered; build the command with pkg/cli and pass them")
	}
	return nil
}

func newPlanCommand(a *app) *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the migration the configured version requires",
		Long:  "Compare the store with the model definitions and list the changes a migration would apply, without applying them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDefinitions(); err != nil {
				return err
			}
			plan, _, err := litemap.Inspect(cmd.Context(), a.cfg.Config, a.defs)
			if err != nil {
				return err
			}
			ui.RenderPlan(cmd.OutOrStdout(), a.palette, plan, showSQL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the statements")

	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the store to the configured version",
		Long: `Bring the store to the version in litemap.yml. Tables SQLite cannot alter in
place are rebuilt through a temporary copy; this asks for confirmation unless --yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDefinitions(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			plan, _, err := litemap.Inspect(ctx, a.cfg.Config, a.defs)
			if err != nil {
				return err
			}
			if len(plan.Rebuilt) > 0 && !yes {
				ok, err := a.confirm(fmt.Sprintf("Rebuild %v to migrate to version %d?", plan.Rebuilt, plan.To))
				if err != nil {
					return err
				}
				if !ok {
					a.palette.Warning.Fprintln(out, "migration cancelled")
					return nil
				}
			}

			listener := litemap.ListenerFuncs{
				Create: func(context.Context) {
					a.palette.Added.Fprintf(out, "created %s at version %d\n", a.cfg.Path(), a.cfg.Version)
				},
				Upgrade: func(_ context.Context, from, to int) {
					a.palette.Added.Fprintf(out, "upgraded %s from version %d to %d\n", a.cfg.Path(), from, to)
				},
			}
			db, err := litemap.Open(ctx, a.cfg.Config, a.defs, litemap.WithLogger(a.logger), litemap.WithListener(listener))
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // nothing was written after the migration

			applied := db.Migration()
			if applied.From == applied.To {
				a.palette.Muted.Fprintf(out, "%s is already at version %d\n", a.cfg.Path(), applied.To)
				return nil
			}
			ui.RenderPlan(out, a.palette, applied, false)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before rebuilding tables")

	return cmd
}
