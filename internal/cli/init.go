package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/paths"
	"github.com/pantrydb/pantry/internal/register"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the pantry configuration directory",
		Long:  "Create the configuration directory and an empty connection register.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	path, err := paths.RegisterFile(flags.configDir)
	if err != nil {
		return err
	}
	// Keep an existing register untouched; init is idempotent.
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Pantry already initialized at %s\n", dir)
		return nil
	}

	reg, err := register.Load(path)
	if err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pantry initialized at %s\n", dir)
	return nil
}
