package search

import "context"

// RerankScore is one scored document from a rerank call.
type RerankScore struct {
	// Index is the position in the input documents slice.
	Index int

	// Score is the cross-encoder relevance score in [0,1].
	Score float64
}

// Reranker re-scores documents against a query with a cross-encoder.
// Cross-encoders jointly encode query-document pairs for more accurate
// relevance than bi-encoders, at higher computational cost.
//
// Contract: a successful Rerank returns exactly one score per input
// document. An implementation that cannot score some subset must fail
// the whole call; it may never silently omit or zero-fill individual
// documents while returning success.
type Reranker interface {
	// Rerank scores every document against the query.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankScore, error)

	// Available reports whether the scoring backend is ready. An
	// unavailable reranker is a normal state, not an error; callers
	// proceed stage-1-only.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NoOpReranker scores documents in their given order with decreasing
// scores. Used when reranking is disabled.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

// Rerank returns one score per document, preserving input order.
func (n *NoOpReranker) Rerank(_ context.Context, _ string, documents []string) ([]RerankScore, error) {
	scores := make([]RerankScore, len(documents))
	for i := range documents {
		scores[i] = RerankScore{Index: i, Score: 1.0 - float64(i)*0.01}
	}
	return scores, nil
}

// Available always returns true.
func (n *NoOpReranker) Available(_ context.Context) bool {
	return true
}

// Close is a no-op.
func (n *NoOpReranker) Close() error {
	return nil
}
