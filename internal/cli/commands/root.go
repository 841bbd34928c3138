// Package commands implements the litemap CLI: inspecting, planning and applying
// migrations of a store described by a litemap.yml file and a set of model definitions.
package commands

import (
	"io"
	"os"
	"runtime"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/litemap/litemap"
	"github.com/litemap/litemap/internal/cli/config"
	"github.com/litemap/litemap/internal/cli/ui"
	"github.com/litemap/litemap/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// ConfirmFunc asks the user a yes/no question
type ConfirmFunc func(message string) (bool, error)

// app is the state shared by every command of one invocation
type app struct {
	defs    []*litemap.Definition
	confirm ConfirmFunc

	dir      string
	noColor  bool
	logLevel string

	cfg     *config.Config
	logger  *zap.Logger
	palette *ui.Palette
}

// Option customizes the root command
type Option func(*app)

// WithConfirm replaces the interactive prompt used before destructive migrations
func WithConfirm(fn ConfirmFunc) Option {
	return func(a *app) { a.confirm = fn }
}

// NewRootCommand creates the root command operating on defs
func NewRootCommand(defs []*litemap.Definition, opts ...Option) *cobra.Command {
	a := &app{defs: defs, confirm: surveyConfirm}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "litemap",
		Short: "Inspect and migrate litemap SQLite stores",
		Long: `litemap maps Go structs onto a single-file SQLite store.

The store is described by litemap.yml (name, version, storage, cases, models);
LITEMAP_* environment variables and a .env file override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", "", "directory holding litemap.yml (default: nearest parent)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newInspectCommand(a))
	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newMigrateCommand(a))

	return rootCmd
}

func (a *app) load(out io.Writer) error {
	dir := a.dir
	if dir == "" {
		if root, err := config.FindRoot(); err == nil {
			dir = root
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.palette = ui.NewPalette(a.noColor || plainOutput(out))
	return nil
}

// plainOutput reports whether w cannot show colors: redirected stdout or any other writer
func plainOutput(w io.Writer) bool {
	return color.NoColor || w != io.Writer(os.Stdout)
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the litemap version, Git commit, build date, and Go version",
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValues(cmd.OutOrStdout(), ui.NewPalette(color.NoColor))
			kv.Add("litemap version", Version)
			kv.Add("Git commit", GitCommit)
			kv.Add("Build date", BuildDate)
			kv.Add("Go version", goVer)
			kv.Render()
		},
	}
}

// Execute runs the root command over defs
func Execute(defs []*litemap.Definition) error {
	rootCmd := NewRootCommand(defs)
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
