package search

import (
	"context"
	"log/slog"
	"sync"
)

// RerankerProvider owns the process-wide reranker instance. The model
// is expensive to load, so it is initialized lazily on the first
// rerank request, shared across queries, and retained until Unload.
// Ownership is explicit: the provider is created by the engine and
// torn down with it, never ambient global state.
type RerankerProvider struct {
	factory func(ctx context.Context) (Reranker, error)

	mu       sync.Mutex
	reranker Reranker
	loadErr  error
	loaded   bool
}

// NewRerankerProvider creates a provider around a reranker factory.
// The factory runs at most once per load cycle; after Unload the next
// Get loads again.
func NewRerankerProvider(factory func(ctx context.Context) (Reranker, error)) *RerankerProvider {
	return &RerankerProvider{factory: factory}
}

// Get returns the cached reranker, loading it on first use. A failed
// load is cached too, so an unreachable backend does not get probed on
// every query.
func (p *RerankerProvider) Get(ctx context.Context) (Reranker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		p.reranker, p.loadErr = p.factory(ctx)
		p.loaded = true

		if p.loadErr != nil {
			slog.Warn("reranker_load_failed", slog.Any("error", p.loadErr))
		} else {
			slog.Debug("reranker_loaded")
		}
	}

	return p.reranker, p.loadErr
}

// Unload closes the cached reranker and resets the provider. The next
// Get loads a fresh instance.
func (p *RerankerProvider) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.reranker != nil {
		err = p.reranker.Close()
	}

	p.reranker = nil
	p.loadErr = nil
	p.loaded = false
	return err
}
