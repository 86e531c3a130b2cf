package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/search"
	"github.com/naragtive/naragtive/internal/ui"
)

// newSearchCmd creates the one-shot search command.
func newSearchCmd() *cobra.Command {
	var (
		storeName  string
		limit      int
		noRerank   bool
		poolSize   int
		location   string
		pov        string
		character  string
		dateFrom   string
		dateTo     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a store",
		Long: `Search a registered store. Without --store the default store is
used. Reranking runs when the cross-encoder server is reachable;
otherwise results fall back to similarity order and say so.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			opts := search.Options{
				ResultLimit:    limit,
				RerankEnabled:  !noRerank && a.Config.Search.RerankEnabled,
				RerankPoolSize: poolSize,
			}
			if location != "" || pov != "" || character != "" || dateFrom != "" || dateTo != "" {
				opts.Filter = &search.Filter{
					Location:  location,
					POV:       pov,
					Character: character,
					DateFrom:  dateFrom,
					DateTo:    dateTo,
				}
			}

			queryText := strings.Join(args, " ")
			rs, err := a.SearchStore(cmd.Context(), storeName, queryText, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(searchResultJSON(queryText, rs))
			}

			ui.NewRenderer(cmd.OutOrStdout()).RenderResults(queryText, rs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeName, "store", "s", "", "Store to search (default: the default store)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Skip the cross-encoder stage")
	cmd.Flags().IntVar(&poolSize, "pool", 0, "Candidates fed to the reranker (default from config)")
	cmd.Flags().StringVar(&location, "location", "", "Filter by scene location")
	cmd.Flags().StringVar(&pov, "pov", "", "Filter by point-of-view character")
	cmd.Flags().StringVar(&character, "character", "", "Filter by character present")
	cmd.Flags().StringVar(&dateFrom, "from", "", "Filter by in-world date >= (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "Filter by in-world date <= (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// resultJSON is the machine-readable search output. A candidate
// without a rerank score omits the field entirely.
type resultJSON struct {
	Query    string          `json:"query"`
	Degraded bool            `json:"degraded"`
	Results  []candidateJSON `json:"results"`
}

type candidateJSON struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Stage1Score float64  `json:"similarity_score"`
	Stage2Score *float64 `json:"rerank_score,omitempty"`
	Date        string   `json:"date,omitempty"`
	Location    string   `json:"location,omitempty"`
	POV         string   `json:"pov,omitempty"`
	Characters  []string `json:"characters,omitempty"`
}

func searchResultJSON(queryText string, rs *search.ResultSet) resultJSON {
	out := resultJSON{
		Query:    queryText,
		Degraded: rs.Degraded,
		Results:  make([]candidateJSON, 0, len(rs.Candidates)),
	}
	for _, c := range rs.Candidates {
		out.Results = append(out.Results, candidateJSON{
			ID:          c.Record.ID,
			Text:        c.Record.Text,
			Stage1Score: c.Stage1Score,
			Stage2Score: c.Stage2Score,
			Date:        c.Record.Metadata.Date,
			Location:    c.Record.Metadata.Location,
			POV:         c.Record.Metadata.POV,
			Characters:  c.Record.Metadata.Characters,
		})
	}
	return out
}
