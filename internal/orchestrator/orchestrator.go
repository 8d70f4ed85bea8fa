// Package orchestrator owns the lifecycle of named batches: it creates them,
// drives a batch processor per run, republishes progress to observers over
// per-batch channels, and supports cooperative cancellation. Live runs are
// tracked in an explicit registry keyed by batch ID; terminal batches stay
// addressable for historical queries after their registry entry is removed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/processor"
)

// Common construction errors
var (
	ErrNilFactory = errors.New("processor factory cannot be nil")
	ErrNilLogger  = errors.New("logger cannot be nil")
	ErrNotPending = errors.New("batch is not pending")
)

// CollectionProcessor is the slice of the batch processor the orchestrator
// drives. Satisfied by *processor.Processor.
type CollectionProcessor interface {
	Discover() ([]domain.WorkItem, error)
	ProcessCollection(ctx context.Context, onProgress processor.ProgressFn) (processor.Totals, error)
}

// ProcessorFactory builds a processor for one batch run.
type ProcessorFactory func(sourceDir string, opts domain.BatchOptions) (CollectionProcessor, error)

// Config holds orchestrator configuration
type Config struct {
	// ProgressBufferSize is the capacity of each batch's progress channel.
	ProgressBufferSize int

	// HeartbeatInterval is how long WatchProgress waits for a live event
	// before synthesizing a heartbeat snapshot.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		ProgressBufferSize: 16,
		HeartbeatInterval:  30 * time.Second,
	}
}

// runHandle tracks one live batch run: its cancellation hook and the bounded
// channel progress snapshots are pushed into. Created on Run, removed when
// the run reaches a terminal state.
type runHandle struct {
	cancel   context.CancelFunc
	progress chan domain.ProgressSnapshot
}

// Orchestrator tracks batches through their state machine and multiplexes
// progress to observers.
type Orchestrator struct {
	factory ProcessorFactory
	config  Config
	logger  *slog.Logger

	// mu protects batches, handles and every Batch reachable from them.
	mu      sync.RWMutex
	batches map[uuid.UUID]*domain.Batch
	handles map[uuid.UUID]*runHandle

	// wg tracks run goroutines for clean shutdown
	wg sync.WaitGroup
}

// New creates an Orchestrator using factory to build per-batch processors.
func New(factory ProcessorFactory, config Config, logger *slog.Logger) (*Orchestrator, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if config.ProgressBufferSize <= 0 {
		config.ProgressBufferSize = DefaultConfig().ProgressBufferSize
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}

	return &Orchestrator{
		factory: factory,
		config:  config,
		logger:  logger.With("component", "batch_orchestrator"),
		batches: make(map[uuid.UUID]*domain.Batch),
		handles: make(map[uuid.UUID]*runHandle),
	}, nil
}

// Create validates the source collection and registers a new Pending batch.
// Processing does not start until Run is called.
func (o *Orchestrator) Create(
	name, sourceDir string,
	opts domain.BatchOptions,
) (*domain.Batch, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: source directory %s is not readable: %v",
			domain.ErrValidation, sourceDir, err)
	}
	hasSamples := false
	for _, entry := range entries {
		if !entry.IsDir() && processor.IsRecognizedSample(entry.Name()) {
			hasSamples = true
			break
		}
	}
	if !hasSamples {
		return nil, fmt.Errorf("%w: source directory %s contains no recognized samples",
			domain.ErrValidation, sourceDir)
	}

	batch, err := domain.NewBatch(name, sourceDir, opts)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.batches[batch.ID] = batch
	o.mu.Unlock()

	o.logger.Info("batch created",
		"batch_id", batch.ID,
		"name", name,
		"source_dir", sourceDir)
	return batch, nil
}

// Get returns a snapshot copy of the batch with the given ID.
func (o *Orchestrator) Get(id uuid.UUID) (*domain.Batch, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	batch, ok := o.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	copied := *batch
	copied.ErrorLog = append([]string{}, batch.ErrorLog...)
	return &copied, nil
}

// Run transitions the batch to Processing and spawns its processing
// goroutine. Each completed group updates the batch counters and pushes a
// progress snapshot into the batch's channel.
func (o *Orchestrator) Run(id uuid.UUID) error {
	o.mu.Lock()
	batch, ok := o.batches[id]
	if !ok {
		o.mu.Unlock()
		return domain.ErrBatchNotFound
	}
	if batch.Status != domain.BatchStatusPending {
		o.mu.Unlock()
		return fmt.Errorf("%w: batch %s is %s", ErrNotPending, id, batch.Status)
	}
	if err := batch.TransitionTo(domain.BatchStatusProcessing); err != nil {
		o.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &runHandle{
		cancel:   cancel,
		progress: make(chan domain.ProgressSnapshot, o.config.ProgressBufferSize),
	}
	o.handles[id] = handle
	o.pushLocked(handle, o.snapshotLocked(batch, "batch processing started"))
	o.mu.Unlock()

	o.wg.Add(1)
	go o.runBatch(ctx, batch, handle)
	return nil
}

// Shutdown waits for all in-flight runs to finish.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for _, handle := range o.handles {
		handle.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// runBatch drives the processor for one batch and settles the batch into a
// terminal state when processing ends.
func (o *Orchestrator) runBatch(
	ctx context.Context,
	batch *domain.Batch,
	handle *runHandle,
) {
	defer o.wg.Done()
	logger := o.logger.With("batch_id", batch.ID, "batch_name", batch.Name)
	logger.Info("batch run started")

	proc, err := o.factory(batch.SourceDir, batch.Options)
	if err != nil {
		o.finishRun(batch, handle, processor.Totals{}, err)
		return
	}

	items, err := proc.Discover()
	if err != nil {
		o.finishRun(batch, handle, processor.Totals{}, err)
		return
	}
	o.mu.Lock()
	batch.TotalItems = len(items)
	o.pushLocked(handle, o.snapshotLocked(batch,
		fmt.Sprintf("discovered %d samples", len(items))))
	o.mu.Unlock()

	totals, err := proc.ProcessCollection(ctx, func(group domain.GroupResult, t processor.Totals) {
		o.mu.Lock()
		defer o.mu.Unlock()
		batch.ProcessedItems = t.ProcessedItems
		batch.SuccessCount = t.SuccessCount
		batch.ErrorCount = t.ErrorCount
		batch.ErrorLog = append([]string{}, t.Errors...)
		o.pushLocked(handle, o.snapshotLocked(batch,
			fmt.Sprintf("processed group %d", group.GroupNumber)))
	})

	o.finishRun(batch, handle, totals, err)
}

// finishRun applies final totals, settles the terminal status, pushes the
// final snapshot and retires the registry entry. A processor-level error is
// the only path to Failed; a batch whose groups partially failed still
// completes, with the failures recorded in its error log.
func (o *Orchestrator) finishRun(
	batch *domain.Batch,
	handle *runHandle,
	totals processor.Totals,
	runErr error,
) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if totals.TotalItems > 0 || totals.ProcessedItems > 0 {
		batch.TotalItems = totals.TotalItems
		batch.ProcessedItems = totals.ProcessedItems
		batch.SuccessCount = totals.SuccessCount
		batch.ErrorCount = totals.ErrorCount
		batch.ErrorLog = append([]string{}, totals.Errors...)
	}

	message := "batch completed"
	switch {
	case runErr != nil && errors.Is(runErr, domain.ErrCancelled):
		// Cancel usually set the terminal status already, but a run stopped
		// by its context alone (e.g. Shutdown) still has to settle here.
		if !batch.IsTerminal() {
			if err := batch.TransitionTo(domain.BatchStatusCancelled); err != nil {
				o.logger.Error("failed to mark batch cancelled", "batch_id", batch.ID, "error", err)
			}
		}
		message = "batch cancelled"
	case runErr != nil:
		batch.ErrorLog = append(batch.ErrorLog, runErr.Error())
		if !batch.IsTerminal() {
			if err := batch.TransitionTo(domain.BatchStatusFailed); err != nil {
				o.logger.Error("failed to mark batch failed", "batch_id", batch.ID, "error", err)
			}
		}
		message = "batch failed: " + runErr.Error()
	default:
		if !batch.IsTerminal() {
			if err := batch.TransitionTo(domain.BatchStatusCompleted); err != nil {
				o.logger.Error("failed to mark batch completed", "batch_id", batch.ID, "error", err)
			}
		} else {
			message = "batch cancelled"
		}
	}

	// Observers are never left waiting: push the terminal snapshot, then
	// close the channel so draining streams see an unambiguous end.
	o.pushLocked(handle, o.snapshotLocked(batch, message))
	close(handle.progress)
	delete(o.handles, batch.ID)

	o.logger.Info("batch run finished",
		"batch_id", batch.ID,
		"status", batch.Status,
		"processed_items", batch.ProcessedItems,
		"success_count", batch.SuccessCount,
		"error_count", batch.ErrorCount)
}

// Cancel requests cancellation of a Pending or Processing batch. It returns
// false once the batch is terminal or unknown. Cancellation is cooperative:
// a group already dispatched to the external service finishes and its
// progress still lands before the run stops at the next group boundary.
func (o *Orchestrator) Cancel(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	batch, ok := o.batches[id]
	if !ok || batch.IsTerminal() {
		return false
	}
	if err := batch.TransitionTo(domain.BatchStatusCancelled); err != nil {
		o.logger.Error("failed to cancel batch", "batch_id", id, "error", err)
		return false
	}

	if handle, live := o.handles[id]; live {
		handle.cancel()
	}
	o.logger.Info("batch cancelled", "batch_id", id)
	return true
}

// WatchProgress returns a stream of progress snapshots for the batch. For a
// batch with no live run (terminal, or never started) it yields exactly one
// synthesized snapshot of the last known state and ends. For a live run it
// drains the batch's channel, synthesizing a heartbeat snapshot whenever no
// event arrives within the heartbeat window, and ends after yielding a
// snapshot with a terminal status.
func (o *Orchestrator) WatchProgress(
	ctx context.Context,
	id uuid.UUID,
) (<-chan domain.ProgressSnapshot, error) {
	o.mu.RLock()
	batch, ok := o.batches[id]
	if !ok {
		o.mu.RUnlock()
		return nil, domain.ErrBatchNotFound
	}
	handle, live := o.handles[id]
	var initial domain.ProgressSnapshot
	if !live {
		initial = o.snapshotLocked(batch, "batch is "+string(batch.Status))
	}
	o.mu.RUnlock()

	out := make(chan domain.ProgressSnapshot, 1)
	if !live {
		out <- initial
		close(out)
		return out, nil
	}

	go func() {
		defer close(out)
		for {
			select {
			case snap, open := <-handle.progress:
				if !open {
					// Run ended; deliver the terminal state even if the
					// final pushed snapshot was dropped or already consumed.
					o.deliver(ctx, out, o.currentSnapshot(id, "batch finished"))
					return
				}
				if !o.deliver(ctx, out, snap) {
					return
				}
				if snap.Terminal() {
					return
				}
			case <-time.After(o.config.HeartbeatInterval):
				snap := o.currentSnapshot(id, "still processing")
				if !o.deliver(ctx, out, snap) {
					return
				}
				if snap.Terminal() {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// deliver forwards a snapshot to the observer unless it disconnects first.
func (o *Orchestrator) deliver(
	ctx context.Context,
	out chan<- domain.ProgressSnapshot,
	snap domain.ProgressSnapshot,
) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// currentSnapshot synthesizes a snapshot from the batch's current state.
func (o *Orchestrator) currentSnapshot(id uuid.UUID, message string) domain.ProgressSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	batch, ok := o.batches[id]
	if !ok {
		return domain.ProgressSnapshot{BatchID: id, Message: message, Timestamp: time.Now().UTC()}
	}
	return o.snapshotLocked(batch, message)
}

// snapshotLocked builds an immutable progress snapshot. Callers must hold
// o.mu in at least read mode.
func (o *Orchestrator) snapshotLocked(
	batch *domain.Batch,
	message string,
) domain.ProgressSnapshot {
	percentage := 0.0
	if batch.TotalItems > 0 {
		percentage = float64(batch.ProcessedItems) / float64(batch.TotalItems) * 100
	}
	return domain.ProgressSnapshot{
		BatchID:        batch.ID,
		Status:         batch.Status,
		TotalItems:     batch.TotalItems,
		ProcessedItems: batch.ProcessedItems,
		SuccessCount:   batch.SuccessCount,
		ErrorCount:     batch.ErrorCount,
		Percentage:     percentage,
		ETA:            o.ETA(batch, batch.ProcessedItems, batch.TotalItems),
		Message:        message,
		Timestamp:      time.Now().UTC(),
	}
}

// pushLocked publishes a snapshot without blocking the run loop. When the
// channel is full the snapshot is dropped; observers are only guaranteed the
// eventual terminal snapshot, which WatchProgress synthesizes on close.
func (o *Orchestrator) pushLocked(handle *runHandle, snap domain.ProgressSnapshot) {
	select {
	case handle.progress <- snap:
	default:
		o.logger.Debug("progress channel full, dropping snapshot",
			"batch_id", snap.BatchID)
	}
}

// ETA estimates the remaining processing time from the average time per item
// so far. Returns zero before any item has been processed.
func (o *Orchestrator) ETA(batch *domain.Batch, processed, total int) time.Duration {
	if processed <= 0 || batch.StartedAt == nil {
		return 0
	}
	remaining := total - processed
	if remaining <= 0 {
		return 0
	}
	elapsed := time.Since(*batch.StartedAt)
	return time.Duration(float64(elapsed) / float64(processed) * float64(remaining))
}
