package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/ui"
)

// newStoresCmd groups the store catalog commands.
func newStoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Manage the store catalog",
	}

	cmd.AddCommand(newStoresListCmd())
	cmd.AddCommand(newStoresRegisterCmd())
	cmd.AddCommand(newStoresSetDefaultCmd())
	cmd.AddCommand(newStoresDeleteCmd())
	cmd.AddCommand(newStoresRenameCmd())

	return cmd
}

func newStoresListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stores, err := a.Registry.List()
			if err != nil {
				return err
			}
			defaultName, _ := a.Registry.DefaultName()

			ui.NewRenderer(cmd.OutOrStdout()).RenderStores(stores, defaultName)
			return nil
		},
	}
}

func newStoresRegisterCmd() *cobra.Command {
	var (
		sourceType  string
		description string
		makeDefault bool
	)

	cmd := &cobra.Command{
		Use:   "register <name> <index-file>",
		Short: "Register an index file as a named store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			meta, err := a.Registry.Register(args[0], args[1], sourceType, description)
			if err != nil {
				return err
			}

			if makeDefault {
				if err := a.Registry.SetDefault(meta.Name); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "registered %q (%d records)\n", meta.Name, meta.RecordCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceType, "source-type", "markdown", "Source type label for the store")
	cmd.Flags().StringVar(&description, "description", "", "Free-form store description")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Also set this store as the default")

	return cmd
}

func newStoresSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <name>",
		Short: "Set the default store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Registry.SetDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default store is now %q\n", args[0])
			return nil
		},
	}
}

func newStoresDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a store from the catalog (keeps the index file)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Registry.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}

func newStoresRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Registry.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %q to %q\n", args[0], args[1])
			return nil
		},
	}
}
