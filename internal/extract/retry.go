package extract

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// IsTransient reports whether an extraction failure is worth retrying.
// Timeouts, rate limits and service unavailability are transient; a missing
// page or a malformed schema will not fix itself on retry.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrExtractTimeout) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// RetryPolicy retries an operation with exponential backoff and jitter. It is
// applied uniformly to every extraction call rather than inlined per call
// site.
type RetryPolicy struct {
	// MaxAttempts counts the first try, so 3 means one try plus two retries.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides whether a failure is transient. Defaults to
	// IsTransient when nil.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, fails non-transiently, exhausts MaxAttempts,
// or the context is cancelled. It returns the number of attempts made and the
// last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := 0
	for {
		attempts++
		err := fn(ctx)
		if err == nil {
			return attempts, nil
		}
		if !retryable(err) || attempts >= p.MaxAttempts {
			return attempts, err
		}
		if sleepErr := sleepContext(ctx, p.delay(attempts)); sleepErr != nil {
			return attempts, err
		}
	}
}

// delay computes the backoff before the next attempt: base * 2^(attempt-1),
// capped at MaxDelay, with +/-50% jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	// Jitter in [d/2, 3d/2) so bursts against a rate-limited upstream
	// spread out.
	return d/2 + time.Duration(rand.Int64N(int64(d)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
