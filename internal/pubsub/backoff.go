package pubsub

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes jittered exponential reconnect delays.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64 // fraction of the delay added at random, in [0, 1]

	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
}

// DefaultBackoff returns the backoff used by the pool unless configured.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   DefaultBaseBackoff,
		Max:    DefaultMaxBackoff,
		Jitter: DefaultBackoffJitter,
	}
}

// Duration returns the delay before reconnect attempt n (1-based):
// Base·2^(n-1) capped at Max, plus a random [0, Jitter·d) on top.
func (b Backoff) Duration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Max
	if exp := float64(b.Base) * math.Pow(2, float64(attempt-1)); exp < float64(b.Max) {
		d = time.Duration(exp)
	}
	if b.Jitter <= 0 {
		return d
	}
	r := b.Rand
	if r == nil {
		r = rand.Float64
	}
	return d + time.Duration(r()*b.Jitter*float64(d))
}
