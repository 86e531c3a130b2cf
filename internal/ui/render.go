package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/naragtive/naragtive/internal/registry"
	"github.com/naragtive/naragtive/internal/search"
	"github.com/naragtive/naragtive/internal/store"
	"github.com/naragtive/naragtive/internal/telemetry"
)

// snippetLength bounds the text preview per result.
const snippetLength = 160

// Renderer writes formatted output to one writer.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer, enabling color only for TTYs that
// have not opted out.
func NewRenderer(out io.Writer) *Renderer {
	noColor := !IsTTY(out) || DetectNoColor()
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// RenderResults prints one result set.
func (r *Renderer) RenderResults(queryText string, rs *search.ResultSet) {
	s := r.styles

	fmt.Fprintln(r.out, s.Header.Render(fmt.Sprintf("Results for %q", queryText)))
	if rs.Degraded {
		fmt.Fprintln(r.out, s.Warning.Render("note: reranking unavailable, showing similarity order"))
	}
	if len(rs.Candidates) == 0 {
		fmt.Fprintln(r.out, s.Dim.Render("no matches"))
		return
	}

	for i, cand := range rs.Candidates {
		fmt.Fprintf(r.out, "%s %s  %s\n",
			s.Dim.Render(fmt.Sprintf("%2d.", i+1)),
			s.Title.Render(cand.Record.ID),
			s.Score.Render(formatScores(&cand)))

		if meta := formatMetadata(&cand.Record.Metadata); meta != "" {
			fmt.Fprintf(r.out, "    %s\n", s.Meta.Render(meta))
		}
		fmt.Fprintf(r.out, "    %s\n", snippet(cand.Record.Text))
	}

	fmt.Fprintln(r.out, s.Dim.Render(fmt.Sprintf("%d results in %s", len(rs.Candidates), rs.Elapsed.Round(time.Millisecond))))
}

// RenderStores prints the store catalog.
func (r *Renderer) RenderStores(stores []registry.StoreMetadata, defaultName string) {
	s := r.styles

	if len(stores) == 0 {
		fmt.Fprintln(r.out, s.Dim.Render("no stores registered"))
		return
	}

	fmt.Fprintln(r.out, s.Header.Render("Stores"))
	for _, meta := range stores {
		marker := "  "
		if meta.Name == defaultName {
			marker = s.Success.Render("* ")
		}
		fmt.Fprintf(r.out, "%s%s  %s\n",
			marker,
			s.Title.Render(meta.Name),
			s.Meta.Render(fmt.Sprintf("%d records, %s", meta.RecordCount, meta.SourceType)))
		if meta.Description != "" {
			fmt.Fprintf(r.out, "    %s\n", s.Dim.Render(meta.Description))
		}
	}
}

// RenderStats prints an index statistics snapshot.
func (r *Renderer) RenderStats(name string, snap store.StatsSnapshot) {
	s := r.styles

	fmt.Fprintln(r.out, s.Header.Render(fmt.Sprintf("Store %q", name)))
	fmt.Fprintf(r.out, "  %s %d\n", s.Meta.Render("records:"), snap.RecordCount)
	fmt.Fprintf(r.out, "  %s %d\n", s.Meta.Render("dimensions:"), snap.Dimensions)
	fmt.Fprintf(r.out, "  %s %s\n", s.Meta.Render("file size:"), formatBytes(snap.FileSizeBytes))

	if len(snap.ByLocation) > 0 {
		fmt.Fprintln(r.out, s.Meta.Render("  by location:"))
		for _, kv := range sortedCounts(snap.ByLocation) {
			fmt.Fprintf(r.out, "    %-24s %d\n", kv.key, kv.count)
		}
	}
	if len(snap.ByPOV) > 0 {
		fmt.Fprintln(r.out, s.Meta.Render("  by point of view:"))
		for _, kv := range sortedCounts(snap.ByPOV) {
			fmt.Fprintf(r.out, "    %-24s %d\n", kv.key, kv.count)
		}
	}
}

// RenderHistory prints recent searches.
func (r *Renderer) RenderHistory(records []telemetry.SearchRecord) {
	s := r.styles

	if len(records) == 0 {
		fmt.Fprintln(r.out, s.Dim.Render("no search history"))
		return
	}

	fmt.Fprintln(r.out, s.Header.Render("Recent searches"))
	for _, rec := range records {
		status := ""
		if rec.Degraded {
			status = s.Warning.Render(" (degraded)")
		}
		fmt.Fprintf(r.out, "  %s  %s%s\n",
			s.Title.Render(rec.Query),
			s.Meta.Render(fmt.Sprintf("%d results, %s, store %s", rec.ResultCount, rec.Elapsed, rec.Store)),
			status)
	}
}

// RenderError prints a failure with its suggestion, if any.
func (r *Renderer) RenderError(err error) {
	fmt.Fprintln(r.out, r.styles.Error.Render("error: "+err.Error()))
}

// formatScores shows the stage-2 score when present, always alongside
// the similarity score. Missing rerank scores are simply absent, never
// shown as zero.
func formatScores(c *search.Candidate) string {
	if c.Stage2Score != nil {
		return fmt.Sprintf("rerank %.3f  sim %.3f", *c.Stage2Score, c.Stage1Score)
	}
	return fmt.Sprintf("sim %.3f", c.Stage1Score)
}

func formatMetadata(m *store.Metadata) string {
	var parts []string
	if m.Date != "" {
		parts = append(parts, m.Date)
	}
	if m.Location != "" {
		parts = append(parts, m.Location)
	}
	if m.POV != "" {
		parts = append(parts, "pov: "+m.POV)
	}
	if len(m.Characters) > 0 {
		parts = append(parts, strings.Join(m.Characters, ", "))
	}
	return strings.Join(parts, " | ")
}

// snippet flattens and truncates document text for display.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	if len(flat) <= snippetLength {
		return flat
	}
	return flat[:snippetLength] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders a breakdown by count descending, then name.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
