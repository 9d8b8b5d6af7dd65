package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

// Backoff strategies
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Policy describes how an operation is retried
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     string
	// MaxDelay caps exponential growth. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy returns 5 attempts with a fixed 3 second delay
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Delay:       3 * time.Second,
		Backoff:     BackoffFixed,
	}
}

// DelayFor returns the wait after the given failed attempt (1-based)
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 || p.Delay <= 0 {
		return 0
	}
	delay := p.Delay
	if p.Backoff == BackoffExponential {
		for i := 1; i < attempt; i++ {
			delay *= 2
			if p.MaxDelay > 0 && delay >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// The last error from fn is returned on exhaustion.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry",
					logger.String("operation", op),
					logger.Int("attempt", attempt),
				)
			}
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := p.DelayFor(attempt)
		logger.Warn("Operation failed, retrying",
			logger.String("operation", op),
			logger.ErrorField(err),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", attempts),
			logger.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		case <-timer.C:
		}
	}

	logger.Error("Operation failed after retries",
		logger.String("operation", op),
		logger.ErrorField(err),
		logger.Int("attempts", attempts),
	)
	return err
}
