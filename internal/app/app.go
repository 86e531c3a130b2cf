// Package app wires the engine together: configuration, embedder,
// reranker provider, store registry, query coordinator, and search
// history. The CLI and TUI both run on top of an App.
package app

import (
	"context"
	"log/slog"

	"github.com/naragtive/naragtive/internal/config"
	"github.com/naragtive/naragtive/internal/embed"
	"github.com/naragtive/naragtive/internal/query"
	"github.com/naragtive/naragtive/internal/registry"
	"github.com/naragtive/naragtive/internal/search"
	"github.com/naragtive/naragtive/internal/store"
	"github.com/naragtive/naragtive/internal/telemetry"
)

// App owns the engine's shared components for one process.
type App struct {
	Config      *config.Config
	Registry    *registry.Registry
	Coordinator *search.Coordinator
	History     *telemetry.History

	embedder embed.Embedder
}

// New builds an App from configuration. The embedder is constructed
// eagerly (the static fallback needs no I/O; Ollama gets a health
// check); the reranker stays unloaded until the first rerank request.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.Paths.DataDir)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	provider := search.NewRerankerProvider(func(ctx context.Context) (search.Reranker, error) {
		return search.NewHTTPReranker(ctx, search.HTTPRerankerConfig{
			Endpoint:      cfg.Reranker.Endpoint,
			Model:         cfg.Reranker.Model,
			Timeout:       cfg.Reranker.Timeout.Std(),
			SigmoidScores: cfg.Reranker.SigmoidScores,
		})
	})

	coordinator := search.NewCoordinator(embedder,
		search.WithRerankerProvider(provider),
		search.WithDefaultOptions(search.Options{
			ResultLimit:    cfg.Search.ResultLimit,
			RerankEnabled:  cfg.Search.RerankEnabled,
			RerankPoolSize: cfg.Search.RerankPoolSize,
			MinQueryLength: cfg.Search.MinQueryLength,
			Timeout:        cfg.Search.Timeout.Std(),
		}))

	history, err := telemetry.Open(cfg.Paths.HistoryPath)
	if err != nil {
		// History is a convenience, not a dependency of search.
		slog.Warn("history_unavailable", slog.Any("error", err))
		history = nil
	}

	return &App{
		Config:      cfg,
		Registry:    reg,
		Coordinator: coordinator,
		History:     history,
		embedder:    embedder,
	}, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	if cfg.Embeddings.Provider == "static" {
		return embed.NewStaticEmbedder(), nil
	}
	return embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
		Host:       cfg.Embeddings.OllamaHost,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
	})
}

// SearchStore resolves a store name, runs one search, and records it
// in the history. An empty name resolves to the default store.
func (a *App) SearchStore(ctx context.Context, storeName, queryText string, opts search.Options) (*search.ResultSet, error) {
	idx, err := a.Registry.Get(storeName)
	if err != nil {
		return nil, err
	}

	rs, err := a.Coordinator.Search(ctx, idx, queryText, opts)
	if err != nil {
		return nil, err
	}

	if a.History != nil {
		if histErr := a.History.RecordSearch(telemetry.SearchRecord{
			Store:       a.resolveName(storeName),
			Query:       queryText,
			ResultCount: len(rs.Candidates),
			Degraded:    rs.Degraded,
			Reranked:    opts.RerankEnabled && !rs.Degraded,
			Elapsed:     rs.Elapsed,
		}); histErr != nil {
			slog.Warn("history_write_failed", slog.Any("error", histErr))
		}
	}

	return rs, nil
}

// StoreStats resolves a store and returns its statistics snapshot.
func (a *App) StoreStats(storeName string) (store.StatsSnapshot, error) {
	idx, err := a.Registry.Get(storeName)
	if err != nil {
		return store.StatsSnapshot{}, err
	}
	return a.Coordinator.Stats(idx)
}

// NewDispatcher creates a single-flight dispatcher for one interactive
// session, backed by this App's search path.
func (a *App) NewDispatcher() *query.Dispatcher {
	return query.NewDispatcher(a.SearchStore)
}

// Close releases the embedder, the cached reranker, and the history
// database.
func (a *App) Close() error {
	var firstErr error

	if err := a.Coordinator.Close(); err != nil {
		firstErr = err
	}
	if err := a.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) resolveName(storeName string) string {
	if storeName == "" || storeName == registry.DefaultName {
		if def, ok := a.Registry.DefaultName(); ok {
			return def
		}
	}
	return storeName
}
