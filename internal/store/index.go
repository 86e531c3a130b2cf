package store

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// Index is an in-memory embedding index over one columnar file.
//
// Reads (Query, Stats) take the read lock and may run concurrently;
// Append takes the write lock, so in-flight reads finish, the write
// proceeds, and subsequent reads see the new state with no partial
// visibility.
type Index struct {
	mu sync.RWMutex

	path       string
	dimensions int
	records    []DocumentRecord
	byID       map[string]int // ID -> insertion position

	fileSize int64
	loadedAt time.Time
}

// Open loads a columnar index file into memory.
// Fails with a storage error on a missing file, unreadable schema, or
// embedding-dimension mismatch across rows.
func Open(path string) (*Index, error) {
	dims, records, err := readColumnar(path)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(records))
	for i, rec := range records {
		if _, dup := byID[rec.ID]; dup {
			return nil, naragerr.New(naragerr.ErrCodeFileCorrupt,
				fmt.Sprintf("duplicate record id %q in %s", rec.ID, path), nil)
		}
		byID[rec.ID] = i
	}

	idx := &Index{
		path:       path,
		dimensions: dims,
		records:    records,
		byID:       byID,
		loadedAt:   time.Now(),
	}
	idx.refreshFileSize()

	slog.Debug("index_loaded",
		slog.String("path", path),
		slog.Int("records", len(records)),
		slog.Int("dimensions", dims))

	return idx, nil
}

// Create writes a new empty index file with the given embedding
// dimension and returns the opened index. Used by ingestion before the
// first Append.
func Create(path string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, naragerr.ValidationError(
			fmt.Sprintf("embedding dimension must be positive, got %d", dimensions), nil)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, naragerr.ValidationError(
			fmt.Sprintf("index file already exists: %s", path), nil)
	}
	if err := writeColumnar(path, dimensions, nil); err != nil {
		return nil, err
	}
	return Open(path)
}

// Path returns the on-disk location of the index.
func (x *Index) Path() string {
	return x.path
}

// Count returns the number of records.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Dimensions returns the embedding dimension D shared by all records.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimensions
}

// Query returns the top-k records ranked by cosine similarity,
// descending. k is clamped to the index size; ties break by insertion
// order. Scores are canonicalized to [0,1] here, once; no downstream
// component re-normalizes.
//
// Full scan, O(n*D) per query. Fine at this scale; approximate
// indexing is deliberately out of scope.
func (x *Index) Query(queryEmbedding []float32, k int) ([]QueryResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.records) == 0 {
		return nil, naragerr.New(naragerr.ErrCodeEmptyIndex,
			fmt.Sprintf("index %s has no records", x.path), nil)
	}
	if k < 1 {
		return nil, naragerr.ValidationError(fmt.Sprintf("k must be >= 1, got %d", k), nil)
	}
	if len(queryEmbedding) != x.dimensions {
		return nil, naragerr.New(naragerr.ErrCodeDimensionMismatch,
			fmt.Sprintf("query has %d dimensions, index has %d", len(queryEmbedding), x.dimensions), nil)
	}

	if k > len(x.records) {
		k = len(x.records)
	}

	results := make([]QueryResult, len(x.records))
	for i := range x.records {
		results[i] = QueryResult{
			Record:   &x.records[i],
			Score:    canonicalScore(queryEmbedding, x.records[i].Embedding),
			Position: i,
		}
	}

	// Stable sort over insertion order makes equal scores resolve
	// deterministically.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results[:k], nil
}

// Append adds records, deduplicating by ID. Existing IDs win and the
// conflicting new records are skipped unless overwrite is requested.
// The whole index is persisted atomically before the call returns.
func (x *Index) Append(records []DocumentRecord, overwrite bool) (AppendResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var res AppendResult
	if len(records) == 0 {
		return res, nil
	}

	dims := x.dimensions
	for _, rec := range records {
		if rec.ID == "" {
			return AppendResult{}, naragerr.ValidationError("record with empty id", nil)
		}
		if len(rec.Embedding) != dims {
			return AppendResult{}, naragerr.New(naragerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("record %q has %d dimensions, index has %d", rec.ID, len(rec.Embedding), dims), nil)
		}
	}

	// Mutate a copy so a failed persist leaves memory untouched.
	updated := make([]DocumentRecord, len(x.records), len(x.records)+len(records))
	copy(updated, x.records)
	updatedByID := make(map[string]int, len(x.byID)+len(records))
	for id, pos := range x.byID {
		updatedByID[id] = pos
	}

	for _, rec := range records {
		if pos, exists := updatedByID[rec.ID]; exists {
			if !overwrite {
				res.Skipped++
				continue
			}
			updated[pos] = rec
			res.Replaced++
			continue
		}
		updatedByID[rec.ID] = len(updated)
		updated = append(updated, rec)
		res.Added++
	}

	if res.Added == 0 && res.Replaced == 0 {
		// Idempotent no-op: nothing changed, skip the disk write.
		return res, nil
	}

	if err := writeColumnar(x.path, dims, updated); err != nil {
		return AppendResult{}, err
	}

	x.records = updated
	x.byID = updatedByID
	x.refreshFileSize()

	slog.Info("index_appended",
		slog.String("path", x.path),
		slog.Int("added", res.Added),
		slog.Int("skipped", res.Skipped),
		slog.Int("replaced", res.Replaced),
		slog.Int("total", len(x.records)))

	return res, nil
}

// Get returns the record with the given ID, or nil.
func (x *Index) Get(id string) *DocumentRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	pos, ok := x.byID[id]
	if !ok {
		return nil
	}
	return &x.records[pos]
}

// Stats returns a snapshot of index statistics with per-field
// breakdowns. Pure read.
func (x *Index) Stats() StatsSnapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := StatsSnapshot{
		RecordCount:   len(x.records),
		Dimensions:    x.dimensions,
		FileSizeBytes: x.fileSize,
		ByLocation:    make(map[string]int),
		ByPOV:         make(map[string]int),
		LoadedAt:      x.loadedAt,
	}

	for i := range x.records {
		meta := &x.records[i].Metadata
		if meta.Location != "" {
			snap.ByLocation[meta.Location]++
		}
		if meta.POV != "" {
			snap.ByPOV[meta.POV]++
		}
	}

	return snap
}

// refreshFileSize re-stats the index file. Callers hold the lock.
func (x *Index) refreshFileSize() {
	if info, err := os.Stat(x.path); err == nil {
		x.fileSize = info.Size()
	}
}

// canonicalScore maps cosine similarity into [0,1] via (cos+1)/2.
// The shift is monotonic, so ranking is unchanged, and it keeps the
// score well-defined for anti-parallel vectors. Zero-norm vectors
// score as orthogonal.
func canonicalScore(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0.5
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	score := (cos + 1) / 2

	// Guard against float drift at the boundaries.
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
