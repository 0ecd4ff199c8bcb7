package audiogen

import (
	"math/rand"
	"time"
)

// Default backoff tuning. Exponential growth with a ceiling keeps early
// polls responsive without hammering the server late; jitter spreads polls
// from many simultaneously started clients apart.
const (
	DefaultInitialInterval = 1 * time.Second
	DefaultMultiplier      = 1.5
	DefaultCeiling         = 30 * time.Second
	DefaultJitter          = 0.2
	DefaultMaxWait         = 5 * time.Minute
)

// Backoff computes successive poll intervals. The stored interval starts at
// Initial and is multiplied by Multiplier after every poll, capped at
// Ceiling; every emitted wait additionally carries symmetric jitter of
// ±Jitter and is clamped to [0, Ceiling].
//
// A Backoff belongs to exactly one poll loop and is never shared across
// jobs. It performs no I/O.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Ceiling    time.Duration
	Jitter     float64

	// rnd returns a uniform sample from [0, 1). Tests inject a
	// deterministic source.
	rnd func() float64

	current time.Duration
}

// NewBackoff returns a scheduler with the default tuning.
func NewBackoff() *Backoff {
	return &Backoff{
		Initial:    DefaultInitialInterval,
		Multiplier: DefaultMultiplier,
		Ceiling:    DefaultCeiling,
		Jitter:     DefaultJitter,
		rnd:        rand.Float64,
	}
}

// Next returns the wait before the following poll and advances the stored
// interval. The first call returns the (jittered) initial interval.
func (b *Backoff) Next() time.Duration {
	if b.rnd == nil {
		b.rnd = rand.Float64
	}
	if b.current == 0 {
		b.current = b.Initial
	}

	wait := b.jittered(b.current)

	next := time.Duration(float64(b.current) * b.Multiplier)
	if next > b.Ceiling {
		next = b.Ceiling
	}
	b.current = next

	return wait
}

// Reset restores the initial interval. Used when a fresh loop is started
// for an already-submitted job.
func (b *Backoff) Reset() {
	b.current = 0
}

// jittered applies symmetric jitter to an interval, rounds it to a whole
// millisecond, and clamps it to [0, Ceiling].
func (b *Backoff) jittered(d time.Duration) time.Duration {
	j := d + time.Duration(float64(d)*b.Jitter*(2*b.rnd()-1))
	j = j.Round(time.Millisecond)
	if j < 0 {
		j = 0
	}
	if j > b.Ceiling {
		j = b.Ceiling
	}
	return j
}
