// Package cli exposes the litemap command line to programs that declare their own
// models. A typical main:
//
//	func main() {
//		if err := cli.Execute(models.Song(), models.Album()); err != nil {
//			os.Exit(1)
//		}
//	}
package cli

import (
	"github.com/spf13/cobra"

	"github.com/litemap/litemap"
	"github.com/litemap/litemap/internal/cli/commands"
)

// New returns the root command operating on defs
func New(defs ...*litemap.Definition) *cobra.Command {
	return commands.NewRootCommand(defs)
}

// Execute runs the command line over defs and reports errors on stderr
func Execute(defs ...*litemap.Definition) error {
	return commands.Execute(defs)
}
