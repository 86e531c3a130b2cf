package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/ui"
)

// newHistoryCmd creates the history command.
func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		showTerms bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.History == nil {
				return fmt.Errorf("search history is unavailable")
			}

			r := ui.NewRenderer(cmd.OutOrStdout())

			if showTerms {
				terms, err := a.History.TopTerms(limit)
				if err != nil {
					return err
				}
				for _, tc := range terms {
					fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", tc.Count, tc.Term)
				}
				return nil
			}

			recent, err := a.History.Recent(limit)
			if err != nil {
				return err
			}
			r.RenderHistory(recent)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&showTerms, "terms", false, "Show most frequent queries instead")

	return cmd
}
