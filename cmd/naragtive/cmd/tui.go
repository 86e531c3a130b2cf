package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/registry"
	"github.com/naragtive/naragtive/internal/search"
	"github.com/naragtive/naragtive/internal/ui"
)

// newTuiCmd creates the interactive search command.
func newTuiCmd() *cobra.Command {
	var storeName string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive search session",
		Long: `Open an interactive search screen. Each submitted query cancels
the one still in flight, so the screen always reflects the latest
query only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !ui.IsTTY(os.Stdout) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			// Resolve up front so a missing store fails before the
			// alternate screen opens.
			if _, err := a.Registry.Get(storeName); err != nil {
				return err
			}

			displayName := storeName
			if displayName == "" || displayName == registry.DefaultName {
				if def, ok := a.Registry.DefaultName(); ok {
					displayName = def
				}
			}

			dispatcher := a.NewDispatcher()
			defer dispatcher.Close()

			return ui.RunInteractive(dispatcher, displayName, search.Options{
				RerankEnabled: a.Config.Search.RerankEnabled,
			})
		},
	}

	cmd.Flags().StringVarP(&storeName, "store", "s", "", "Store to search (default: the default store)")

	return cmd
}
