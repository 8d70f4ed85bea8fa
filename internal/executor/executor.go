// Package executor wraps a single unit of work with timeout enforcement and
// bounded retry with exponential backoff. Outcomes are reported as a tagged
// Result rather than surfaced as errors, so callers handle every terminal
// condition explicitly.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// maxBackoff caps the exponential backoff delay between attempts.
const maxBackoff = 60 * time.Second

// Status is the terminal outcome of an Execute call.
type Status string

// Possible execution statuses
const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// UnitOfWork represents one attempt at the wrapped operation. It must honor
// ctx cancellation; the executor makes no attempt to preempt a running
// attempt beyond cancelling its context. Retried attempts re-invoke the same
// function, so the operation must be safe to repeat.
type UnitOfWork func(ctx context.Context) (interface{}, error)

// Options configures a single Execute call.
type Options struct {
	// Timeout bounds each individual attempt. Zero means no per-attempt
	// timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so the
	// executor performs at most MaxRetries+1 attempts.
	MaxRetries int

	// RetryIf decides whether a failed attempt is worth retrying. When nil,
	// only transient errors and attempt timeouts are retried; validation
	// errors never are.
	RetryIf func(error) bool
}

// Result is the outcome of one Execute invocation. Produced once and never
// mutated after return.
type Result struct {
	Status   Status
	Payload  interface{}
	Err      error
	Retries  int
	Duration time.Duration
}

// defaultRetryIf retries transient failures and per-attempt timeouts only.
func defaultRetryIf(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Execute runs fn under the configured timeout and retry policy.
//
// On success it returns immediately with StatusSuccess and the payload. On a
// retryable failure it waits min(2^attempt, 60s) before the next attempt. A
// non-retryable error short-circuits without consuming the backoff delay.
// Cancellation of ctx observed during a backoff wait aborts immediately with
// a result wrapping domain.ErrCancelled. When retries are exhausted the
// result is StatusFailed, or StatusTimedOut if the last attempt's terminal
// condition was a timeout.
func Execute(ctx context.Context, fn UnitOfWork, opts Options, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	retryIf := opts.RetryIf
	if retryIf == nil {
		retryIf = defaultRetryIf
	}

	start := time.Now()
	retries := 0
	var lastErr error
	lastTimedOut := false

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{
				Status:   StatusFailed,
				Err:      fmt.Errorf("%w: %v", domain.ErrCancelled, err),
				Retries:  retries,
				Duration: time.Since(start),
			}
		}

		payload, timedOut, err := runAttempt(ctx, fn, opts.Timeout)
		if err == nil {
			return Result{
				Status:   StatusSuccess,
				Payload:  payload,
				Retries:  retries,
				Duration: time.Since(start),
			}
		}

		lastErr = err
		lastTimedOut = timedOut
		logger.Warn("attempt failed",
			"attempt", attempt+1,
			"max_attempts", opts.MaxRetries+1,
			"timed_out", timedOut,
			"error", err)

		if !retryIf(err) {
			logger.Warn("non-retryable error, not retrying", "error", err)
			break
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := backoff(attempt)
		logger.Debug("retrying after backoff", "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Result{
				Status:   StatusFailed,
				Err:      fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err()),
				Retries:  retries,
				Duration: time.Since(start),
			}
		}
		retries++
	}

	status := StatusFailed
	if lastTimedOut {
		status = StatusTimedOut
	}
	return Result{
		Status:   status,
		Err:      lastErr,
		Retries:  retries,
		Duration: time.Since(start),
	}
}

// runAttempt invokes fn once under an optional per-attempt timeout. timedOut
// reports whether the attempt ended because the timeout elapsed. A timed-out
// attempt leaves fn running until it observes its cancelled context; its
// eventual result is discarded.
func runAttempt(
	ctx context.Context,
	fn UnitOfWork,
	timeout time.Duration,
) (payload interface{}, timedOut bool, err error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type attemptOutcome struct {
		payload interface{}
		err     error
	}
	done := make(chan attemptOutcome, 1)
	go func() {
		payload, err := fn(attemptCtx)
		done <- attemptOutcome{payload: payload, err: err}
	}()

	select {
	case outcome := <-done:
		if outcome.err != nil && errors.Is(outcome.err, context.DeadlineExceeded) {
			return nil, true, outcome.err
		}
		return outcome.payload, false, outcome.err
	case <-attemptCtx.Done():
		ctxErr := attemptCtx.Err()
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("attempt timed out after %s: %w", timeout, ctxErr)
		}
		return nil, false, fmt.Errorf("%w: %v", domain.ErrCancelled, ctxErr)
	}
}

// backoff returns min(2^attempt, 60s) for the given zero-based attempt.
func backoff(attempt int) time.Duration {
	seconds := math.Min(math.Pow(2, float64(attempt)), maxBackoff.Seconds())
	return time.Duration(seconds * float64(time.Second))
}
