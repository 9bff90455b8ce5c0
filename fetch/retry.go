package fetch

import (
	"context"
	"time"
)

// Retrying re-issues a fetch when the failure is transient.
type Retrying struct {
	next       Fetcher
	maxRetries int
	base       time.Duration
	max        time.Duration
}

// NewRetrying wraps next with at most maxRetries extra attempts. Delays
// double from base and are capped at max.
func NewRetrying(next Fetcher, maxRetries int, base, max time.Duration) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retrying{next: next, maxRetries: maxRetries, base: base, max: max}
}

// Fetch tries next until it succeeds, the error is not retryable, the
// retry budget is spent or ctx is done. The last body and error are
// returned.
func (r *Retrying) Fetch(ctx context.Context, url string) (string, error) {
	for attempt := 0; ; attempt++ {
		body, err := r.next.Fetch(ctx, url)
		if err == nil || attempt >= r.maxRetries || !Retryable(err) {
			return body, err
		}

		timer := time.NewTimer(r.backoff(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return body, err
		case <-timer.C:
		}
	}
}

func (r *Retrying) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := r.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if r.max > 0 && delay > r.max {
		delay = r.max
	}
	return delay
}
