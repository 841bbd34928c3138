// Command litemap inspects litemap stores. Without model definitions it can show what a
// store holds and its version; programs embedding pkg/cli can also plan and migrate.
package main

import (
	"os"

	"github.com/litemap/litemap/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
