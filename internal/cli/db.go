package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrydb/pantry/internal/register"
	"github.com/pantrydb/pantry/pkg/pantry"
)

func newDBCmd() *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Manage named database connections",
	}
	db.AddCommand(newDBAddCmd())
	db.AddCommand(newDBListCmd())
	db.AddCommand(newDBGetCmd())
	db.AddCommand(newDBRemoveCmd())
	db.AddCommand(newDBCheckCmd())
	return db
}

func newDBAddCmd() *cobra.Command {
	var backend, dsn string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a named connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegister()
			if err != nil {
				return err
			}
			if err := reg.Add(args[0], register.Connection{Backend: backend, DSN: dsn}); err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q (%s)\n", args[0], backend)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "backend kind: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "connection string")
	_ = cmd.MarkFlagRequired("backend")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}

func newDBListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegister()
			if err != nil {
				return err
			}
			names := reg.List()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No connections registered")
				return nil
			}
			for _, name := range names {
				c, err := reg.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", name, c.Backend, c.DSN)
			}
			return nil
		},
	}
}

func newDBGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one registered connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegister()
			if err != nil {
				return err
			}
			c, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nbackend: %s\ndsn: %s\n", args[0], c.Backend, c.DSN)
			return nil
		},
	}
}

func newDBRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registered connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegister()
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", args[0])
			return nil
		},
	}
}

func newDBCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Open a registered connection and report whether it works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegister()
			if err != nil {
				return err
			}
			cfg, err := reg.Config(args[0])
			if err != nil {
				return err
			}
			db, err := pantry.Open(cfg)
			if err != nil {
				return fmt.Errorf("connection %q failed: %w", args[0], err)
			}
			if err := db.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection %q OK\n", args[0])
			return nil
		},
	}
}
