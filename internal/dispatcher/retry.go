package dispatcher

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/config"
)

// RetryHandler computes exponential backoff delays for delivery attempts.
type RetryHandler struct {
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	enableJitter bool
	logger       zerolog.Logger
}

// NewRetryHandler creates a retry handler from the alert retry configuration.
func NewRetryHandler(cfg config.RetryConfig, logger zerolog.Logger) *RetryHandler {
	return &RetryHandler{
		maxRetries:   cfg.MaxRetries,
		baseDelay:    cfg.BaseDelay(),
		maxDelay:     cfg.MaxDelay(),
		enableJitter: cfg.EnableJitter,
		logger:       logger.With().Str("component", "RetryHandler").Logger(),
	}
}

// MaxRetries returns the configured retry cap.
func (rh *RetryHandler) MaxRetries() int {
	return rh.maxRetries
}

// CalculateDelay returns the backoff delay for the given attempt using
// exponential backoff capped at the configured maximum.
func (rh *RetryHandler) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rh.baseDelay
	}

	delay := rh.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > rh.maxDelay {
		delay = rh.maxDelay
	}

	// Jitter to avoid thundering herd against a recovering collector.
	if rh.enableJitter && delay >= 10*time.Millisecond {
		jitter := time.Duration(rand.Intn(int(delay.Milliseconds()/10))) * time.Millisecond
		delay += jitter
	}

	return delay
}

// WaitForRetry sleeps for the attempt's backoff delay, returning early with
// the context error on cancellation.
func (rh *RetryHandler) WaitForRetry(ctx context.Context, attempt int, path string) error {
	delay := rh.CalculateDelay(attempt)

	rh.logger.Warn().
		Str("path", path).
		Int("attempt", attempt+1).
		Int("max_retries", rh.maxRetries).
		Dur("delay", delay).
		Msg("Delivery failed, waiting before retry")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
