package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// --- Test Helpers ---

func newTestIndex(t *testing.T, records []DocumentRecord) *Index {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scenes.col")
	idx, err := Create(path, 3)
	require.NoError(t, err)

	if len(records) > 0 {
		_, err = idx.Append(records, false)
		require.NoError(t, err)
	}
	return idx
}

func record(id string, embedding []float32) DocumentRecord {
	return DocumentRecord{
		ID:        id,
		Text:      "scene text for " + id,
		Embedding: embedding,
		Metadata: Metadata{
			SceneID:    id,
			Date:       "2024-03-01",
			Location:   "Bridge",
			POV:        "Admiral",
			Characters: []string{"Admiral", "Navigator"},
		},
	}
}

// --- Query ---

func TestIndexQuery_RanksByDescendingSimilarity(t *testing.T) {
	// Given: five documents at known angles to the query vector
	idx := newTestIndex(t, []DocumentRecord{
		record("opposite", []float32{-1, 0, 0}),
		record("orthogonal", []float32{0, 1, 0}),
		record("exact", []float32{1, 0, 0}),
		record("close", []float32{1, 0.2, 0}),
		record("far", []float32{-1, 0.5, 0}),
	})

	// When: querying for the top 3
	results, err := idx.Query([]float32{1, 0, 0}, 3)
	require.NoError(t, err)

	// Then: 3 results, descending, each score in [0,1]
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Record.ID)
	assert.Equal(t, "close", results[1].Record.ID)
	assert.Equal(t, "orthogonal", results[2].Record.ID)

	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}

	// Identical vector canonicalizes to exactly 1.0
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestIndexQuery_ClampsKToIndexSize(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{
		record("a", []float32{1, 0, 0}),
		record("b", []float32{0, 1, 0}),
	})

	results, err := idx.Query([]float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndexQuery_TiesResolveByInsertionOrder(t *testing.T) {
	// Given: three records with identical embeddings (guaranteed tie)
	idx := newTestIndex(t, []DocumentRecord{
		record("first", []float32{0, 1, 0}),
		record("second", []float32{0, 1, 0}),
		record("third", []float32{0, 1, 0}),
	})

	results, err := idx.Query([]float32{1, 1, 0}, 3)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Record.ID)
	assert.Equal(t, "second", results[1].Record.ID)
	assert.Equal(t, "third", results[2].Record.ID)
}

func TestIndexQuery_EmptyIndexFails(t *testing.T) {
	idx := newTestIndex(t, nil)

	_, err := idx.Query([]float32{1, 0, 0}, 5)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeEmptyIndex, naragerr.GetCode(err))
}

func TestIndexQuery_DimensionMismatchFails(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{record("a", []float32{1, 0, 0})})

	_, err := idx.Query([]float32{1, 0}, 1)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeDimensionMismatch, naragerr.GetCode(err))
}

func TestIndexQuery_InvalidKFails(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{record("a", []float32{1, 0, 0})})

	_, err := idx.Query([]float32{1, 0, 0}, 0)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeInvalidInput, naragerr.GetCode(err))
}

// --- Append ---

func TestIndexAppend_DeduplicatesById(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{record("a", []float32{1, 0, 0})})

	// Appending a batch whose ID already exists leaves the index
	// unchanged: existing records win.
	changed := record("a", []float32{0, 0, 1})
	changed.Text = "different text"

	res, err := idx.Append([]DocumentRecord{changed, record("b", []float32{0, 1, 0})}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Replaced)
	assert.Equal(t, 2, idx.Count())
	assert.Equal(t, "scene text for a", idx.Get("a").Text)
}

func TestIndexAppend_IdempotentBatchLeavesIndexUnchanged(t *testing.T) {
	batch := []DocumentRecord{
		record("a", []float32{1, 0, 0}),
		record("b", []float32{0, 1, 0}),
	}
	idx := newTestIndex(t, batch)

	before, err := os.Stat(idx.Path())
	require.NoError(t, err)

	res, err := idx.Append(batch, false)
	require.NoError(t, err)
	assert.Equal(t, AppendResult{Skipped: 2}, res)
	assert.Equal(t, 2, idx.Count())

	// No changes means no rewrite of the file.
	after, err := os.Stat(idx.Path())
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestIndexAppend_OverwriteReplacesExisting(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{record("a", []float32{1, 0, 0})})

	changed := record("a", []float32{0, 0, 1})
	changed.Text = "rewritten"

	res, err := idx.Append([]DocumentRecord{changed}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 1, idx.Count())
	assert.Equal(t, "rewritten", idx.Get("a").Text)
	assert.Equal(t, []float32{0, 0, 1}, idx.Get("a").Embedding)
}

func TestIndexAppend_RejectsDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, []DocumentRecord{record("a", []float32{1, 0, 0})})

	_, err := idx.Append([]DocumentRecord{record("b", []float32{1, 0})}, false)
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeDimensionMismatch, naragerr.GetCode(err))
	assert.Equal(t, 1, idx.Count())
}

// --- Persistence round-trip ---

func TestIndexRoundTrip_BitExactEmbeddings(t *testing.T) {
	// Given: an index persisted with awkward float values
	path := filepath.Join(t.TempDir(), "scenes.col")
	idx, err := Create(path, 3)
	require.NoError(t, err)

	original := []DocumentRecord{
		record("a", []float32{0.1, -0.30000001, 1e-7}),
		record("b", []float32{3.1415927, 0, -2.7182818}),
	}
	_, err = idx.Append(original, false)
	require.NoError(t, err)

	// When: reloading from disk
	reloaded, err := Open(path)
	require.NoError(t, err)

	// Then: identical count, ids, metadata, and bit-exact vectors
	require.Equal(t, idx.Count(), reloaded.Count())
	for _, want := range original {
		got := reloaded.Get(want.ID)
		require.NotNil(t, got, "record %q missing after reload", want.ID)
		assert.Equal(t, want.Embedding, got.Embedding)
		assert.Equal(t, want.Text, got.Text)
		assert.Equal(t, want.Metadata, got.Metadata)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.col"))
	require.Error(t, err)
	assert.Equal(t, naragerr.ErrCodeFileNotFound, naragerr.GetCode(err))
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.col")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	_, err := Open(path)
	require.Error(t, err)

	var ne *naragerr.NaragError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, naragerr.CategoryStorage, ne.Category)
}

// --- Stats ---

func TestIndexStats_Breakdowns(t *testing.T) {
	a := record("a", []float32{1, 0, 0})
	b := record("b", []float32{0, 1, 0})
	b.Metadata.Location = "Engine Room"
	b.Metadata.POV = "Navigator"
	c := record("c", []float32{0, 0, 1})

	idx := newTestIndex(t, []DocumentRecord{a, b, c})

	snap := idx.Stats()
	assert.Equal(t, 3, snap.RecordCount)
	assert.Equal(t, 3, snap.Dimensions)
	assert.Positive(t, snap.FileSizeBytes)
	assert.Equal(t, map[string]int{"Bridge": 2, "Engine Room": 1}, snap.ByLocation)
	assert.Equal(t, map[string]int{"Admiral": 2, "Navigator": 1}, snap.ByPOV)
}
