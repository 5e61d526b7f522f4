// Package backoff provides pluggable retry delay strategies for webhook
// delivery. All strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a delivery retry.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failed send.
	Delay(attempt int) time.Duration
}

// capped bounds d to max when max is positive.
func capped(d time.Duration, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// doubling returns initial * 2^(attempt-1), capped at max.
func doubling(initial, max time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	return capped(d, max)
}

// Constant waits the same interval before every retry. Useful against
// endpoints with a known recovery window.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Linear grows the delay by Initial per attempt, capped at Max.
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	return capped(l.Initial*time.Duration(attempt), l.Max)
}

// Exponential doubles the delay each attempt, capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return doubling(e.Initial, e.Max, attempt)
}

// ExponentialWithJitter draws uniformly from [0, d] where d is the
// capped exponential delay. Full jitter spreads out retries when an
// endpoint outage fails many deliveries at once.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	ceiling := doubling(e.Initial, e.Max, attempt)
	return time.Duration(rand.Float64() * float64(ceiling)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// DefaultStrategy returns the default backoff used by the delivery
// worker: ExponentialWithJitter with 5s initial and 1h max. Webhook
// endpoints recover on human timescales, so the cap is generous.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(5*time.Second, time.Hour)
}
