package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/pkg/pantry"
)

const modulePath = "github.com/pantrydb/pantry"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pantry version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pantry v%s\nmodule: %s\n", pantry.Version, modulePath)
			return nil
		},
	}
}
