package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naragtive/naragtive/internal/embed"
	naragerr "github.com/naragtive/naragtive/internal/errors"
	"github.com/naragtive/naragtive/internal/store"
)

// Coordinator orchestrates stage-1 retrieval and optional stage-2
// reranking into a single validated ResultSet. It is the sole place
// where the two stages' outcomes are mixed, and the enforcement point
// for the score-cardinality invariant: a rerank that does not return
// exactly one score per candidate is rejected, never padded.
type Coordinator struct {
	embedder embed.Embedder
	provider *RerankerProvider
	defaults Options
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRerankerProvider installs the lazy reranker source. Without one
// the coordinator runs stage-1 only and flags rerank requests as
// degraded.
func WithRerankerProvider(p *RerankerProvider) CoordinatorOption {
	return func(c *Coordinator) {
		c.provider = p
	}
}

// WithDefaultOptions sets the baseline options merged under each call's
// options.
func WithDefaultOptions(opts Options) CoordinatorOption {
	return func(c *Coordinator) {
		c.defaults = opts
	}
}

// NewCoordinator creates a coordinator around an embedder.
func NewCoordinator(embedder embed.Embedder, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{embedder: embedder}
	for _, opt := range opts {
		opt(c)
	}
	c.defaults = c.defaults.Normalize()
	return c
}

// Search runs one query against an index.
//
// Validation failures and stage-1 failures abort the call. Stage-2
// failures degrade: the stage-1 ordering is returned with Degraded set,
// and no candidate ever receives a placeholder score.
func (c *Coordinator) Search(ctx context.Context, idx *store.Index, queryText string, opts Options) (*ResultSet, error) {
	start := time.Now()
	opts = c.mergeOptions(opts)

	if idx == nil {
		return nil, naragerr.StoreNotLoadedError("")
	}

	trimmed := strings.TrimSpace(queryText)
	if utf8.RuneCountInString(trimmed) < opts.MinQueryLength {
		return nil, naragerr.New(naragerr.ErrCodeQueryTooShort,
			fmt.Sprintf("query must be at least %d characters", opts.MinQueryLength), nil)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	candidates, err := c.stageOne(ctx, idx, trimmed, opts)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Candidates:  candidates,
		ResultLimit: opts.ResultLimit,
	}

	if opts.RerankEnabled {
		pool := candidates
		if len(pool) > opts.RerankPoolSize {
			pool = pool[:opts.RerankPoolSize]
		}
		reranked, err := c.stageTwo(ctx, trimmed, pool)
		if err != nil {
			// Fall back to stage-1 ordering and say so, instead of
			// guessing at missing scores.
			slog.Warn("rerank_degraded",
				slog.String("code", naragerr.GetCode(err)),
				slog.Any("error", err))
			rs.Degraded = true
		} else {
			rs.Candidates = reranked
		}
	}

	if len(rs.Candidates) > opts.ResultLimit {
		rs.Candidates = rs.Candidates[:opts.ResultLimit]
	}
	rs.Elapsed = time.Since(start)

	slog.Info("search_done",
		slog.Int("results", len(rs.Candidates)),
		slog.Bool("reranked", opts.RerankEnabled && !rs.Degraded),
		slog.Bool("degraded", rs.Degraded),
		slog.Duration("elapsed", rs.Elapsed))

	return rs, nil
}

// Stats returns a snapshot of index statistics.
func (c *Coordinator) Stats(idx *store.Index) (store.StatsSnapshot, error) {
	if idx == nil {
		return store.StatsSnapshot{}, naragerr.StoreNotLoadedError("")
	}
	return idx.Stats(), nil
}

// Close tears down the cached reranker, if any.
func (c *Coordinator) Close() error {
	if c.provider != nil {
		return c.provider.Unload()
	}
	return nil
}

// mergeOptions layers call options over the coordinator defaults.
func (c *Coordinator) mergeOptions(opts Options) Options {
	if opts.ResultLimit < 1 {
		opts.ResultLimit = c.defaults.ResultLimit
	}
	if opts.RerankPoolSize < 1 {
		opts.RerankPoolSize = c.defaults.RerankPoolSize
	}
	if opts.MinQueryLength < 1 {
		opts.MinQueryLength = c.defaults.MinQueryLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.defaults.Timeout
	}
	return opts.Normalize()
}

// stageOne embeds the query and runs the similarity scan. Any failure
// here is fatal to the call.
func (c *Coordinator) stageOne(ctx context.Context, idx *store.Index, query string, opts Options) ([]Candidate, error) {
	queryEmbedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// Pull the rerank pool even when only ResultLimit will be shown, so
	// stage 2 has enough candidates to reorder. A filter thins results
	// after scoring, so over-fetch when one is set.
	k := opts.ResultLimit
	if opts.RerankEnabled && opts.RerankPoolSize > k {
		k = opts.RerankPoolSize
	}
	if !opts.Filter.Empty() {
		k = idx.Count()
	}

	matches, err := idx.Query(queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if !opts.Filter.Empty() && !opts.Filter.Matches(&m.Record.Metadata) {
			continue
		}
		candidates = append(candidates, Candidate{
			Record:      m.Record,
			Stage1Score: m.Score,
			Position:    m.Position,
		})
	}

	return candidates, nil
}

// stageTwo reranks the candidate pool. On success every candidate
// carries a stage-2 score; on any failure the error propagates and the
// caller falls back to stage-1 ordering.
func (c *Coordinator) stageTwo(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	if c.provider == nil {
		return nil, naragerr.New(naragerr.ErrCodeRerankUnavailable, "no reranker configured", nil)
	}

	reranker, err := c.provider.Get(ctx)
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRerankUnavailable, err)
	}
	if !reranker.Available(ctx) {
		return nil, naragerr.New(naragerr.ErrCodeRerankUnavailable, "reranker backend not available", nil)
	}

	documents := make([]string, len(candidates))
	for i := range candidates {
		documents[i] = candidates[i].Record.Text
	}

	scores, err := reranker.Rerank(ctx, query, documents)
	if err != nil {
		return nil, err
	}

	// Cardinality check: exactly one score per candidate, each index in
	// range and scored once. A scorer that drops candidates while
	// reporting success violates its contract; reject the whole result
	// rather than zero-filling the gap.
	if len(scores) != len(candidates) {
		return nil, naragerr.ConsistencyError(
			fmt.Sprintf("reranker returned %d scores for %d candidates", len(scores), len(candidates)))
	}

	reranked := make([]Candidate, len(candidates))
	copy(reranked, candidates)

	seen := make([]bool, len(candidates))
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(candidates) {
			return nil, naragerr.ConsistencyError(
				fmt.Sprintf("reranker returned out-of-range index %d for %d candidates", s.Index, len(candidates)))
		}
		if seen[s.Index] {
			return nil, naragerr.ConsistencyError(
				fmt.Sprintf("reranker scored candidate %d twice", s.Index))
		}
		seen[s.Index] = true

		score := s.Score
		reranked[s.Index].Stage2Score = &score
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		a, b := &reranked[i], &reranked[j]
		if *a.Stage2Score != *b.Stage2Score {
			return *a.Stage2Score > *b.Stage2Score
		}
		if a.Stage1Score != b.Stage1Score {
			return a.Stage1Score > b.Stage1Score
		}
		return a.Position < b.Position
	})

	return reranked, nil
}
