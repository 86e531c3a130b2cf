// Package search implements two-stage retrieval: embedding similarity
// over an index (stage 1) followed by optional cross-encoder reranking
// (stage 2). The Coordinator is the only component that mixes the two
// stages' outcomes.
package search

import (
	"time"

	"github.com/naragtive/naragtive/internal/store"
)

// Default search parameters.
const (
	DefaultResultLimit    = 10
	DefaultRerankPoolSize = 50
	DefaultMinQueryLength = 3
)

// Candidate is one document flowing through the retrieval stages,
// carrying all of its scores together. One record per candidate means
// a missing rerank score is a property of the record, never a length
// mismatch between parallel arrays.
type Candidate struct {
	// Record is the matched document.
	Record *store.DocumentRecord

	// Stage1Score is the canonicalized embedding similarity in [0,1].
	// Always present once stage 1 has run.
	Stage1Score float64

	// Stage2Score is the cross-encoder relevance score. Nil unless
	// reranking completed for this candidate; never zero-filled.
	Stage2Score *float64

	// Position is the record's insertion position in the index, the
	// final tie-breaker in every ordering.
	Position int
}

// Reranked reports whether this candidate carries a stage-2 score.
func (c *Candidate) Reranked() bool {
	return c.Stage2Score != nil
}

// ResultSet is the single validated result of one search call.
type ResultSet struct {
	// Candidates are ordered best-first.
	Candidates []Candidate

	// Degraded is true when reranking was requested but not fully
	// applied, so the ordering is stage-1 only.
	Degraded bool

	// ResultLimit is the limit actually honored.
	ResultLimit int

	// Elapsed is the total search duration.
	Elapsed time.Duration
}

// Options control a single search call. The zero value is usable:
// Normalize fills in defaults.
type Options struct {
	// ResultLimit is the maximum number of candidates returned (>= 1).
	ResultLimit int

	// RerankEnabled requests the cross-encoder stage.
	RerankEnabled bool

	// RerankPoolSize is how many stage-1 candidates feed the reranker.
	RerankPoolSize int

	// MinQueryLength rejects shorter queries before any work runs.
	MinQueryLength int

	// Timeout bounds the whole call. Zero means no deadline beyond the
	// caller's context.
	Timeout time.Duration

	// Filter restricts candidates by metadata. Nil means no filter.
	Filter *Filter
}

// Normalize fills unset options with defaults.
func (o Options) Normalize() Options {
	if o.ResultLimit < 1 {
		o.ResultLimit = DefaultResultLimit
	}
	if o.RerankPoolSize < 1 {
		o.RerankPoolSize = DefaultRerankPoolSize
	}
	if o.MinQueryLength < 1 {
		o.MinQueryLength = DefaultMinQueryLength
	}
	return o
}
