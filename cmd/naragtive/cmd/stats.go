package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/registry"
	"github.com/naragtive/naragtive/internal/ui"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [store]",
		Short: "Show index statistics for a store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			storeName := ""
			if len(args) > 0 {
				storeName = args[0]
			}

			snap, err := a.StoreStats(storeName)
			if err != nil {
				return err
			}

			displayName := storeName
			if displayName == "" || displayName == registry.DefaultName {
				if def, ok := a.Registry.DefaultName(); ok {
					displayName = def
				}
			}

			ui.NewRenderer(cmd.OutOrStdout()).RenderStats(displayName, snap)
			return nil
		},
	}
}
