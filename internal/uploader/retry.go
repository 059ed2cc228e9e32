package uploader

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"cvcutter/internal/logging"
	"cvcutter/internal/services"
)

// withRetry runs attempt, retrying transient failures with exponential
// backoff plus random jitter. The loop is explicitly bounded: maxRetries
// retries after the first attempt, never more. Permanent failures return
// immediately.
func withRetry(ctx context.Context, maxRetries int, sleep func(context.Context, time.Duration) error, logger *slog.Logger, attempt func() error) error {
	var err error
	for try := 0; ; try++ {
		err = attempt()
		if err == nil {
			return nil
		}
		if !services.IsTransient(err) {
			return err
		}
		if try >= maxRetries {
			logger.Error("retries exhausted", logging.Int("attempts", try+1), logging.Error(err))
			return err
		}

		delay := backoffDelay(try)
		logger.Warn("transient failure, retrying",
			logging.Int("attempt", try+1),
			logging.Int("max_retries", maxRetries),
			logging.Duration("backoff", delay),
			logging.Error(err))
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

// backoffDelay is rand()·2ⁿ seconds for retry n.
func backoffDelay(try int) time.Duration {
	seconds := rand.Float64() * math.Pow(2, float64(try))
	return time.Duration(seconds * float64(time.Second))
}

// sleepContext waits for the duration or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
