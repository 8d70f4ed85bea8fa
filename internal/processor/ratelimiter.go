package processor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum spacing between calls to a throttled
// external dependency. One instance is shared by every processor talking to
// the same dependency, so the spacing holds process-wide: concurrent batches
// serialize through it rather than each carrying their own quota.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter that allows one call per interval.
// A zero or negative interval disables throttling.
func NewRateLimiter(interval time.Duration, logger *slog.Logger) *RateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "rate_limiter"),
	}
}

// Wait blocks until the configured interval has elapsed since the previous
// permitted call, or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("rate limiter wait aborted", "error", err)
		return err
	}
	if waited := time.Since(start); waited > time.Second {
		r.logger.Debug("throttled external call", "waited", waited)
	}
	return nil
}
