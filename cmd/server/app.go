package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/cache"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/config"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/features"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/orchestrator"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/platform/gemini"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/processor"
)

// application holds the assembled dependency graph of the server.
type application struct {
	config       *config.Config
	logger       *slog.Logger
	cacheStore   *cache.Store
	orchestrator *orchestrator.Orchestrator
}

// newApplication wires the cache, feature extractor, LLM analyzer and
// rate limiter into a processor factory and hands it to the orchestrator.
// The analyzer and rate limiter are shared across batches so the external
// call interval is enforced process-wide.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*application, error) {
	cacheStore, err := cache.NewStore(cfg.Cache.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}

	analyzer, err := gemini.NewAnalyzer(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	extractor := features.NewFilenameExtractor()
	limiter := processor.NewRateLimiter(
		time.Duration(cfg.Batch.RateLimitIntervalSeconds)*time.Second, logger)

	factory := func(sourceDir string, opts domain.BatchOptions) (orchestrator.CollectionProcessor, error) {
		return processor.New(sourceDir, cacheStore, extractor, analyzer, limiter, opts, logger)
	}

	batchOrchestrator, err := orchestrator.New(factory, orchestrator.DefaultConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	return &application{
		config:       cfg,
		logger:       logger,
		cacheStore:   cacheStore,
		orchestrator: batchOrchestrator,
	}, nil
}

// defaultBatchOptions translates the configured batch defaults into
// domain options applied when a create request omits overrides.
func (app *application) defaultBatchOptions() domain.BatchOptions {
	return domain.BatchOptions{
		GroupSize:                app.config.Batch.GroupSize,
		TimeoutSeconds:           app.config.Batch.TimeoutSeconds,
		MaxRetries:               app.config.Batch.MaxRetries,
		RateLimitIntervalSeconds: app.config.Batch.RateLimitIntervalSeconds,
	}
}

// cleanup waits for in-flight batch runs to stop before the process exits.
func (app *application) cleanup() {
	app.orchestrator.Shutdown()
}
