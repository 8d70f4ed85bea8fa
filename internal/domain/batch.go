package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the lifecycle state of a batch
type BatchStatus string

// Possible batch status values. Pending batches move to Processing when run,
// then settle into exactly one of the three terminal states.
const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// Common validation errors for Batch
var (
	ErrEmptyBatchName   = errors.New("batch name cannot be empty")
	ErrEmptySourceDir   = errors.New("batch source directory cannot be empty")
	ErrInvalidBatchStatus = errors.New("invalid batch status")
)

// Batch represents a named run over an entire source collection. Counters
// are only mutated by the orchestrator while the status is Processing; once
// a terminal status is set the batch is read-only.
type Batch struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	SourceDir      string      `json:"source_dir"`
	Status         BatchStatus `json:"status"`
	Options        BatchOptions `json:"options"`
	TotalItems     int         `json:"total_items"`
	ProcessedItems int         `json:"processed_items"`
	SuccessCount   int         `json:"success_count"`
	ErrorCount     int         `json:"error_count"`
	CreatedAt      time.Time   `json:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ErrorLog       []string    `json:"error_log"`
}

// NewBatch creates a new Batch in the Pending state with the given name,
// source directory and options. Returns an error if validation fails.
func NewBatch(name, sourceDir string, opts BatchOptions) (*Batch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrEmptyBatchName)
	}
	if sourceDir == "" {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrEmptySourceDir)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Batch{
		ID:        uuid.New(),
		Name:      name,
		SourceDir: sourceDir,
		Status:    BatchStatusPending,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
		ErrorLog:  []string{},
	}, nil
}

// IsTerminal reports whether the batch has reached an absorbing state.
func (b *Batch) IsTerminal() bool {
	switch b.Status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// TransitionTo moves the batch to the given status, enforcing the lifecycle
// state machine. Entering Processing records StartedAt; entering a terminal
// state records CompletedAt.
func (b *Batch) TransitionTo(status BatchStatus) error {
	if !isValidBatchStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidBatchStatus, status)
	}
	if !canTransition(b.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, status)
	}

	now := time.Now().UTC()
	b.Status = status
	switch status {
	case BatchStatusProcessing:
		b.StartedAt = &now
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		b.CompletedAt = &now
	}
	return nil
}

// canTransition encodes the allowed edges of the batch state machine.
// Terminal states are absorbing.
func canTransition(from, to BatchStatus) bool {
	switch from {
	case BatchStatusPending:
		return to == BatchStatusProcessing || to == BatchStatusCancelled || to == BatchStatusFailed
	case BatchStatusProcessing:
		return to == BatchStatusCompleted || to == BatchStatusFailed || to == BatchStatusCancelled
	default:
		return false
	}
}

func isValidBatchStatus(status BatchStatus) bool {
	switch status {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted,
		BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// BatchOptions enumerates every recognized batch option and its default.
// It replaces the loose parameter bags of earlier iterations: options are
// validated once at batch creation and immutable afterwards.
type BatchOptions struct {
	// GroupSize is the number of unprocessed items sent per external call.
	GroupSize int `json:"group_size"`

	// TimeoutSeconds bounds a single external call attempt.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `json:"max_retries"`

	// RateLimitIntervalSeconds is the minimum spacing between external
	// call starts, derived from the service's requests-per-minute ceiling.
	RateLimitIntervalSeconds int `json:"rate_limit_interval_seconds"`
}

// DefaultBatchOptions returns BatchOptions with reasonable defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		GroupSize:                5,
		TimeoutSeconds:           60,
		MaxRetries:               3,
		RateLimitIntervalSeconds: 6,
	}
}

// Validate checks all option values, rejecting non-positive sizes and
// negative retry counts.
func (o BatchOptions) Validate() error {
	if o.GroupSize <= 0 {
		return fmt.Errorf("%w: group size must be positive, got %d", ErrValidation, o.GroupSize)
	}
	if o.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %d", ErrValidation, o.TimeoutSeconds)
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative, got %d", ErrValidation, o.MaxRetries)
	}
	if o.RateLimitIntervalSeconds < 0 {
		return fmt.Errorf("%w: rate limit interval cannot be negative, got %d",
			ErrValidation, o.RateLimitIntervalSeconds)
	}
	return nil
}

// GroupResult records the outcome of one processed group. Instances are
// appended to an ordered list owned by the processor and never mutated.
type GroupResult struct {
	GroupNumber    int           `json:"group_number"`
	ItemsProcessed int           `json:"items_processed"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	Duration       time.Duration `json:"duration"`
	Errors         []string      `json:"errors"`
}

// ProgressSnapshot is an immutable copy of batch progress emitted on every
// state change and on a heartbeat cadence. Consumers must not assume one
// snapshot per item, only that a terminal snapshot eventually arrives.
type ProgressSnapshot struct {
	BatchID        uuid.UUID     `json:"batch_id"`
	Status         BatchStatus   `json:"status"`
	TotalItems     int           `json:"total_items"`
	ProcessedItems int           `json:"processed_items"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	Percentage     float64       `json:"percentage"`
	ETA            time.Duration `json:"eta"`
	Message        string        `json:"message"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Terminal reports whether the snapshot carries an absorbing status,
// which ends a progress stream.
func (s ProgressSnapshot) Terminal() bool {
	switch s.Status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}
