// Package store provides the in-memory embedding index and its
// columnar on-disk persistence. One index holds one named collection
// of narrative documents with fixed-dimension embeddings.
package store

import "time"

// Metadata holds the structured per-document fields. A small set of
// required indexed fields plus free-form extension fields, so display
// and filtering never encounter silently-missing keys.
type Metadata struct {
	// SceneID is the source scene identifier (may differ from the
	// record ID when one scene produces several documents).
	SceneID string `json:"scene_id"`

	// Date is the in-world ISO date (YYYY-MM-DD).
	Date string `json:"date"`

	// Location is where the scene takes place.
	Location string `json:"location"`

	// POV is the point-of-view character.
	POV string `json:"pov"`

	// Characters lists the characters present in the scene.
	Characters []string `json:"characters"`

	// Extra carries source-specific extension fields.
	Extra map[string]string `json:"extra,omitempty"`
}

// DocumentRecord is one indexed document. Records are immutable after
// write; Append never mutates an existing record in place.
type DocumentRecord struct {
	// ID is unique within an index.
	ID string

	// Text is the full document text.
	Text string

	// Embedding is the document vector. All embeddings in one index
	// share the same dimension.
	Embedding []float32

	// Metadata holds the structured fields.
	Metadata Metadata
}

// QueryResult is a single similarity match from Index.Query.
type QueryResult struct {
	// Record is the matched document.
	Record *DocumentRecord

	// Score is the canonicalized similarity in [0,1]. The index is the
	// only component that normalizes; downstream consumers must not
	// re-normalize.
	Score float64

	// Position is the record's insertion position, the deterministic
	// tie-breaker for equal scores.
	Position int
}

// StatsSnapshot is a pure read of index statistics.
type StatsSnapshot struct {
	RecordCount   int
	Dimensions    int
	FileSizeBytes int64
	ByLocation    map[string]int
	ByPOV         map[string]int
	LoadedAt      time.Time
}

// AppendResult reports the outcome of an Append call.
type AppendResult struct {
	// Added is the number of records written to the index.
	Added int

	// Skipped is the number of records dropped because their ID
	// already existed and overwrite was not requested.
	Skipped int

	// Replaced is the number of existing records overwritten.
	Replaced int
}
