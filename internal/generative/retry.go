package generative

import (
	"context"
	"time"

	"k8s.io/klog/v2"
)

// Retrying retries rate-limited calls with exponential backoff. Any other
// error is returned at once.
type Retrying struct {
	next     Generator
	attempts int
	delay    time.Duration
}

// NewRetrying allows attempts calls in total, waiting delay before the first
// retry and doubling it after each one.
func NewRetrying(next Generator, attempts int, delay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, delay: delay}
}

// Name returns the wrapped generator's name.
func (r *Retrying) Name() string {
	return r.next.Name()
}

// Generate calls the wrapped generator, backing off on rate limits.
func (r *Retrying) Generate(ctx context.Context, text, lang string) (string, error) {
	delay := r.delay
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.next.Generate(ctx, text, lang)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRateLimited(err) || attempt == r.attempts {
			break
		}

		klog.V(1).Infof("%s rate limited, retrying in %s (attempt %d/%d)", r.next.Name(), delay, attempt, r.attempts)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return "", lastErr
}
