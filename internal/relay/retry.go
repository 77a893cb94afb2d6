package relay

import (
	"context"
	"math/rand"
	"time"
)

// Policy configures the exponential-backoff-with-jitter retry combinator
// used both by the relay client's own HTTP retries and, via Poll, by C4's
// WAIT_PEERS loop (spec §4.3, §9 "polling loop -> timeout-wrapped task").
type Policy struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// DefaultPolicy implements spec §4.3: base 200ms, cap 2s.
var DefaultPolicy = Policy{Base: 200 * time.Millisecond, Cap: 2 * time.Second, MaxRetries: 5}

// Do runs fn, retrying on transient failures per policy with full jitter.
// fn reports whether an error is retryable via the second return value;
// non-retryable errors (e.g. 4xx) are returned immediately.
func Do(ctx context.Context, policy Policy, fn func(attempt int) (retry bool, err error)) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		retry, err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == policy.MaxRetries {
			return lastErr
		}
		if err := sleepBackoff(ctx, policy, attempt); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepBackoff(ctx context.Context, policy Policy, attempt int) error {
	d := policy.Base << uint(attempt)
	if d > policy.Cap || d <= 0 {
		d = policy.Cap
	}
	jittered := time.Duration(rand.Int63n(int64(d) + 1))

	timer := time.NewTimer(jittered)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll invokes check repeatedly at interval until it returns true, a
// non-nil error, or the deadline (interval-independent, wall clock from
// call time) elapses. It is the generic combinator spec §9 asks for; C4's
// WAIT_PEERS is Poll with a 2s interval and 30s deadline.
func Poll(ctx context.Context, interval, deadline time.Duration, check func() (done bool, err error)) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-timeoutCtx.Done():
			return timeoutCtx.Err()
		case <-ticker.C:
		}
	}
}
