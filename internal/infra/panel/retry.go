package panel

import (
	"context"
	"time"

	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// RetryPolicy retries an operation with exponential backoff while the
// predicate accepts the error. Both panel clients share one policy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
	// Sleep is swapped out in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   *zerolog.Logger
}

func NewRetryPolicy(maxAttempts int, base time.Duration, log *zerolog.Logger) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		Retryable:   IsRetryable,
		Sleep:       sleepCtx,
		Log:         log,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. Delay before retry n (0-based) is BaseDelay*2^n.
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts-1 {
			return err
		}
		delay := p.BaseDelay << attempt
		metrics.IncPanelRetry(name)
		if p.Log != nil {
			p.Log.Warn().Err(err).
				Str("op", name).
				Int("attempt", attempt+1).
				Int("max_attempts", attempts).
				Dur("backoff", delay).
				Msg("panel call failed, retrying")
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
	return err
}

// Retry is Do for operations that return a value.
func Retry[T any](ctx context.Context, p RetryPolicy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
