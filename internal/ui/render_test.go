package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/naragtive/naragtive/internal/registry"
	"github.com/naragtive/naragtive/internal/search"
	"github.com/naragtive/naragtive/internal/store"
)

func candidate(id, text string, sim float64, rerank *float64) search.Candidate {
	return search.Candidate{
		Record: &store.DocumentRecord{
			ID:   id,
			Text: text,
			Metadata: store.Metadata{
				Date:     "2024-03-01",
				Location: "Bridge",
				POV:      "Admiral",
			},
		},
		Stage1Score: sim,
		Stage2Score: rerank,
	}
}

func TestRenderResults_ShowsScoresAndMetadata(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	rerank := 0.87
	r.RenderResults("storm at sea", &search.ResultSet{
		Candidates: []search.Candidate{
			candidate("scene-12", "the storm broke over the bow", 0.91, &rerank),
			candidate("scene-03", "calm waters at dawn", 0.62, nil),
		},
		Elapsed: 42 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, `Results for "storm at sea"`)
	assert.Contains(t, out, "scene-12")
	assert.Contains(t, out, "rerank 0.870")
	assert.Contains(t, out, "sim 0.910")
	assert.Contains(t, out, "Bridge")
	// A candidate without a rerank score shows only similarity.
	assert.Contains(t, out, "sim 0.620")
	assert.NotContains(t, out, "rerank 0.000")
}

func TestRenderResults_DegradedNotice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.RenderResults("storm", &search.ResultSet{
		Candidates: []search.Candidate{candidate("a", "text", 0.5, nil)},
		Degraded:   true,
	})

	assert.Contains(t, buf.String(), "reranking unavailable")
}

func TestRenderResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.RenderResults("nothing", &search.ResultSet{})
	assert.Contains(t, buf.String(), "no matches")
}

func TestRenderStores_MarksDefault(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.RenderStores([]registry.StoreMetadata{
		{Name: "voyage", RecordCount: 12, SourceType: "markdown"},
		{Name: "mutiny", RecordCount: 3, SourceType: "markdown"},
	}, "voyage")

	out := buf.String()
	assert.Contains(t, out, "voyage")
	assert.Contains(t, out, "mutiny")
	assert.Contains(t, out, "12 records")

	// The default line carries the marker, the other does not.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "voyage") {
			assert.True(t, strings.HasPrefix(line, "* "), "default store should be marked: %q", line)
		}
	}
}

func TestRenderStats_Breakdowns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	r.RenderStats("voyage", store.StatsSnapshot{
		RecordCount:   3,
		Dimensions:    256,
		FileSizeBytes: 2048,
		ByLocation:    map[string]int{"Bridge": 2, "Engine Room": 1},
	})

	out := buf.String()
	assert.Contains(t, out, "records:")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "Bridge")
	assert.Contains(t, out, "Engine Room")
}

func TestSnippet_Truncates(t *testing.T) {
	long := strings.Repeat("wave after wave ", 30)
	short := "a   short\n\ttext"

	assert.Equal(t, "a short text", snippet(short))
	flat := snippet(long)
	assert.LessOrEqual(t, len(flat), snippetLength+3)
	assert.True(t, strings.HasSuffix(flat, "..."))
}

func TestSortedCounts_DescendingThenName(t *testing.T) {
	out := sortedCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	assert.Equal(t, []keyCount{{"c", 5}, {"a", 2}, {"b", 2}}, out)
}
