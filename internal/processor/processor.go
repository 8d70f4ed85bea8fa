// Package processor drives batched sample analysis: it discovers work items
// in a source directory, skips items already in the work cache, groups the
// remainder for throttled external calls, and persists one cache entry per
// successfully analyzed item so a crashed run resumes where it stopped.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/analysis"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/cache"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/executor"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/features"
)

// Common construction errors
var (
	ErrNilCache     = errors.New("cache store cannot be nil")
	ErrNilExtractor = errors.New("feature extractor cannot be nil")
	ErrNilAnalyzer  = errors.New("analyzer cannot be nil")
	ErrNilLimiter   = errors.New("rate limiter cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// Totals aggregates the outcome of a full ProcessCollection run.
type Totals struct {
	TotalItems     int
	ProcessedItems int
	SuccessCount   int
	ErrorCount     int
	Errors         []string
}

// ProgressFn receives a running update after each processed group.
type ProgressFn func(group domain.GroupResult, totals Totals)

// Processor processes one source collection. It is driven by a single
// goroutine; only the shared rate limiter and cache are touched by
// concurrent batches.
type Processor struct {
	sourceDir string
	cache     *cache.Store
	extractor features.Extractor
	analyzer  analysis.Analyzer
	limiter   *RateLimiter
	opts      domain.BatchOptions
	logger    *slog.Logger

	// results is the ordered, append-only record of processed groups.
	results []domain.GroupResult
}

// New creates a Processor over sourceDir using the given collaborators.
func New(
	sourceDir string,
	cacheStore *cache.Store,
	extractor features.Extractor,
	analyzer analysis.Analyzer,
	limiter *RateLimiter,
	opts domain.BatchOptions,
	logger *slog.Logger,
) (*Processor, error) {
	if sourceDir == "" {
		return nil, fmt.Errorf("%w: source directory cannot be empty", domain.ErrValidation)
	}
	if cacheStore == nil {
		return nil, ErrNilCache
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Processor{
		sourceDir: sourceDir,
		cache:     cacheStore,
		extractor: extractor,
		analyzer:  analyzer,
		limiter:   limiter,
		opts:      opts,
		logger:    logger.With("component", "batch_processor", "source_dir", sourceDir),
	}, nil
}

// Discover enumerates candidate work items from the source directory,
// filtered to the recognized audio extensions.
func (p *Processor) Discover() ([]domain.WorkItem, error) {
	return discoverItems(p.sourceDir)
}

// Unprocessed returns the discovered items that have no valid cache entry.
// This is the sole gate enforcing resumability: cached items never reach the
// external service again.
func (p *Processor) Unprocessed() ([]domain.WorkItem, error) {
	items, err := p.Discover()
	if err != nil {
		return nil, err
	}
	unprocessed := make([]domain.WorkItem, 0, len(items))
	for _, item := range items {
		if !p.cache.Has(item) {
			unprocessed = append(unprocessed, item)
		}
	}
	return unprocessed, nil
}

// Results returns the group results recorded so far, in processing order.
func (p *Processor) Results() []domain.GroupResult {
	return p.results
}

// ProcessGroup analyzes one group of items with exactly one throttled
// external call. Items that gained a cache entry since discovery are counted
// as successes without contacting the service. A failed external call fails
// every remaining item in the group uniformly; no partial credit is given.
func (p *Processor) ProcessGroup(
	ctx context.Context,
	items []domain.WorkItem,
	groupNumber int,
) domain.GroupResult {
	start := time.Now()
	result := domain.GroupResult{
		GroupNumber:    groupNumber,
		ItemsProcessed: len(items),
		Errors:         []string{},
	}
	logger := p.logger.With("group", groupNumber, "group_size", len(items))
	logger.Info("processing group")

	// Extract local features for items still missing a cache entry.
	pending := make([]analysis.ItemFeatures, 0, len(items))
	for _, item := range items {
		if p.cache.Has(item) {
			result.SuccessCount++
			continue
		}
		feats, err := p.extractor.Extract(item)
		if err != nil {
			logger.Error("local feature extraction failed", "item", item.Name, "error", err)
			result.ErrorCount++
			result.Errors = append(result.Errors,
				fmt.Sprintf("group %d: feature extraction failed for %s: %v",
					groupNumber, item.Name, err))
			continue
		}
		pending = append(pending, analysis.ItemFeatures{Item: item, Features: feats})
	}

	if len(pending) > 0 {
		p.analyzePending(ctx, pending, groupNumber, logger, &result)
	}

	result.Duration = time.Since(start)
	p.results = append(p.results, result)
	logger.Info("group processed",
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount,
		"duration", result.Duration)
	return result
}

// analyzePending issues the single external call for the group and persists
// one cache entry per item on success.
func (p *Processor) analyzePending(
	ctx context.Context,
	pending []analysis.ItemFeatures,
	groupNumber int,
	logger *slog.Logger,
	result *domain.GroupResult,
) {
	if err := p.limiter.Wait(ctx); err != nil {
		result.ErrorCount += len(pending)
		result.Errors = append(result.Errors,
			fmt.Sprintf("group %d: %v", groupNumber, fmt.Errorf("%w: %v", domain.ErrCancelled, err)))
		return
	}

	execResult := executor.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return p.analyzer.AnalyzeBatch(ctx, pending)
	}, executor.Options{
		Timeout:    time.Duration(p.opts.TimeoutSeconds) * time.Second,
		MaxRetries: p.opts.MaxRetries,
		RetryIf: func(err error) bool {
			return errors.Is(err, analysis.ErrTransientFailure) ||
				errors.Is(err, domain.ErrTransient) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	}, logger)

	if execResult.Status != executor.StatusSuccess {
		// The external call is atomic at group granularity: every item in
		// the group fails together.
		err := fmt.Errorf("%w: %v", domain.ErrExternalService, execResult.Err)
		logger.Error("external analysis call failed for group",
			"status", execResult.Status,
			"retries", execResult.Retries,
			"error", execResult.Err)
		result.ErrorCount += len(pending)
		result.Errors = append(result.Errors, fmt.Sprintf("group %d: %v", groupNumber, err))
		return
	}

	itemResults, ok := execResult.Payload.([]analysis.ItemResult)
	if !ok {
		result.ErrorCount += len(pending)
		result.Errors = append(result.Errors,
			fmt.Sprintf("group %d: %v", groupNumber,
				fmt.Errorf("%w: unexpected payload type", domain.ErrExternalService)))
		return
	}

	byFingerprint := make(map[string]domain.SampleAnalysis, len(itemResults))
	for _, ir := range itemResults {
		byFingerprint[ir.Fingerprint] = ir.Analysis
	}

	for _, pf := range pending {
		sample := domain.Sample{
			Features: pf.Features,
			Analysis: byFingerprint[pf.Item.Fingerprint],
		}
		if err := p.cache.Put(pf.Item, sample); err != nil {
			// Cache persistence failure: the item stays unprocessed for this
			// run but does not abort the batch.
			logger.Warn("failed to persist cache entry, item left unprocessed",
				"item", pf.Item.Name, "error", err)
			continue
		}
		result.SuccessCount++
	}
}

// ProcessCollection runs ProcessGroup over sequential fixed-size slices of
// the unprocessed items, invoking onProgress after each group, until every
// discovered item has been attempted once. Cancellation is observed only at
// group boundaries; an in-flight group finishes before the cancellation is
// honored, and the returned error wraps domain.ErrCancelled.
func (p *Processor) ProcessCollection(ctx context.Context, onProgress ProgressFn) (Totals, error) {
	discovered, err := p.Discover()
	if err != nil {
		return Totals{}, err
	}
	unprocessed, err := p.Unprocessed()
	if err != nil {
		return Totals{}, err
	}

	totals := Totals{
		TotalItems: len(discovered),
		// Items with a cache hit were fully processed by an earlier run.
		ProcessedItems: len(discovered) - len(unprocessed),
		SuccessCount:   len(discovered) - len(unprocessed),
		Errors:         []string{},
	}
	p.logger.Info("starting collection run",
		"total_items", totals.TotalItems,
		"cached_items", totals.ProcessedItems,
		"unprocessed_items", len(unprocessed),
		"group_size", p.opts.GroupSize)

	groupNumber := 0
	for offset := 0; offset < len(unprocessed); offset += p.opts.GroupSize {
		if err := ctx.Err(); err != nil {
			p.logger.Info("collection run cancelled at group boundary",
				"groups_completed", groupNumber)
			return totals, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}

		end := offset + p.opts.GroupSize
		if end > len(unprocessed) {
			end = len(unprocessed)
		}
		groupNumber++

		group := p.ProcessGroup(ctx, unprocessed[offset:end], groupNumber)
		totals.ProcessedItems += group.ItemsProcessed
		totals.SuccessCount += group.SuccessCount
		totals.ErrorCount += group.ErrorCount
		totals.Errors = append(totals.Errors, group.Errors...)

		if onProgress != nil {
			onProgress(group, totals)
		}
	}

	p.logger.Info("collection run finished",
		"processed_items", totals.ProcessedItems,
		"success_count", totals.SuccessCount,
		"error_count", totals.ErrorCount)
	return totals, nil
}
