package generative

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"k8s.io/klog/v2"
)

// Breaker stops calling a failing generator for a cooldown period. While the
// circuit is open calls fail fast with an error matching ErrUnavailable.
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker opens the circuit after failures consecutive errors and probes
// again after cooldown. Zero values pick 3 failures and 30 seconds. Rate-limit
// rejections never trip the circuit; Retrying backs off on those instead.
func NewBreaker(next Generator, failures uint32, cooldown time.Duration) *Breaker {
	if failures == 0 {
		failures = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the service's fault.
			return err == nil || errors.Is(err, context.Canceled) || IsRateLimited(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			klog.Warningf("generator %s circuit: %s -> %s", name, from, to)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name returns the wrapped generator's name.
func (b *Breaker) Name() string {
	return b.next.Name()
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Generate calls the wrapped generator unless the circuit is open.
func (b *Breaker) Generate(ctx context.Context, text, lang string) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, text, lang)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &GenerativeServiceError{Provider: b.next.Name(), Unavailable: true, Err: err}
	}
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
