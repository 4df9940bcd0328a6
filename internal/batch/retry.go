package batch

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region policy
// RetryPolicy decides whether a failed extraction is attempted again and
// how long to wait first.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// #endregion policy

// #region should-retry
// ShouldRetry reports whether to retry after the given number of attempts
// (including the one that just failed) and the back-off before the next one.
func (p RetryPolicy) ShouldRetry(attempts int, err error) (bool, time.Duration) {
	if err == nil || attempts > p.MaxRetries {
		return false, 0
	}
	if errors.Is(err, context.Canceled) {
		return false, 0
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.Unimplemented,
		codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return false, 0
	}
	return true, p.delay(attempts)
}

func (p RetryPolicy) delay(attempts int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// #endregion should-retry

// #region sleep
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion sleep
