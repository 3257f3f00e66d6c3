package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: sender, receiver and content are required")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrProfileExists      = errors.New("profile already exists")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// withRetry runs fn up to maxRetries times while it fails with a transient
// error, backing off exponentially between attempts.
func withRetry(ctx context.Context, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return err
			}
			logger.Warn("retrying store operation",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries),
			)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't retry on context cancellation or non-retryable errors
		if !isRetryableError(err) {
			return err
		}
	}

	logger.Error("store operation failed after all retries",
		zap.String("op", op),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// Check for MongoDB transient errors
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	return false
}

// translateReadError maps driver errors onto the package sentinels.
func translateReadError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrOperationTimeout
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrProfileNotFound
	}
	return err
}
