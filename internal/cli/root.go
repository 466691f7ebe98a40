// Package cli implements the pantry command-line interface.
// See docs/ARCHITECTURE.md § CLI.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/paths"
	"github.com/pantrydb/pantry/internal/register"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
}

var flags rootFlags

// NewRootCmd creates the top-level "pantry" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Schema-checked database access with triggers",
		Long: "Pantry manages named database connections and gives applications\n" +
			"a schema-checked, trigger-aware access layer over SQLite or PostgreSQL.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDBCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// loadRegister opens the connection register in the resolved config
// directory.
func loadRegister() (*register.Register, error) {
	path, err := paths.RegisterFile(flags.configDir)
	if err != nil {
		return nil, err
	}
	return register.Load(path)
}
