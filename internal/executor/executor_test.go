package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestExecuteSuccess(t *testing.T) {
	var calls int32
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "payload", nil
	}, Options{Timeout: time.Second, MaxRetries: 3}, testLogger())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "payload", result.Payload)
	assert.NoError(t, result.Err)
	assert.Equal(t, 0, result.Retries)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	var calls int32
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, fmt.Errorf("%w: connection reset", domain.ErrTransient)
	}, Options{Timeout: time.Second, MaxRetries: 2}, testLogger())

	// maxRetries+1 attempts for a persistently transient failure.
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrTransient)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, result.Retries)
}

func TestExecuteRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, fmt.Errorf("%w: flaky", domain.ErrTransient)
		}
		return 42, nil
	}, Options{Timeout: time.Second, MaxRetries: 3}, testLogger())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 42, result.Payload)
	assert.Equal(t, 1, result.Retries)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExecuteDoesNotRetryValidationErrors(t *testing.T) {
	var calls int32
	start := time.Now()
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, fmt.Errorf("%w: missing source", domain.ErrValidation)
	}, Options{Timeout: time.Second, MaxRetries: 5}, testLogger())

	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrValidation)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, result.Retries)
	// Short-circuit must not consume the backoff delay.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecuteTimeout(t *testing.T) {
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		select {
		case <-time.After(5 * time.Second):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, Options{Timeout: 20 * time.Millisecond, MaxRetries: 0}, testLogger())

	assert.Equal(t, StatusTimedOut, result.Status)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestExecuteCustomRetryPredicate(t *testing.T) {
	sentinel := errors.New("special")
	var calls int32
	result := Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, sentinel
	}, Options{
		Timeout:    time.Second,
		MaxRetries: 1,
		RetryIf:    func(err error) bool { return errors.Is(err, sentinel) },
	}, testLogger())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExecuteCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	result := Execute(ctx, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}, Options{Timeout: time.Second, MaxRetries: 3}, testLogger())

	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrCancelled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- Execute(ctx, func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return nil, fmt.Errorf("%w: down", domain.ErrTransient)
		}, Options{Timeout: time.Second, MaxRetries: 5}, testLogger())
	}()

	// Let the first attempt fail and the backoff wait begin, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case result := <-resultCh:
		assert.Equal(t, StatusFailed, result.Status)
		assert.ErrorIs(t, result.Err, domain.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return promptly after cancellation")
	}
}

func TestBackoffCappedAtSixtySeconds(t *testing.T) {
	require.Equal(t, 1*time.Second, backoff(0))
	require.Equal(t, 2*time.Second, backoff(1))
	require.Equal(t, 8*time.Second, backoff(3))
	require.Equal(t, 60*time.Second, backoff(6))
	require.Equal(t, 60*time.Second, backoff(20))
}
