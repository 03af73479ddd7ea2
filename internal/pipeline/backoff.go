package pipeline

import (
	"math/rand"
	"time"
)

// Backoff maps a retry attempt number to a wait duration: exponential from
// Min, capped at Max. A pure schedule aside from jitter.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	// rand returns a jitter factor in [0,1); nil means the global source.
	rand func() float64
}

// jitterFraction shaves up to this share off each wait so synchronized
// workers don't retry in lockstep. The floor and ceiling still hold.
const jitterFraction = 0.1

// Wait returns the pause before re-attempting after attempt failures
// (attempt counts from 1). Successive waits never decrease.
func (b Backoff) Wait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := b.Min
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max || d < 0 { // overflow guard
			d = b.Max
			break
		}
	}
	if d > b.Max {
		d = b.Max
	}

	r := rand.Float64
	if b.rand != nil {
		r = b.rand
	}
	jittered := d - time.Duration(float64(d)*jitterFraction*r())
	if jittered < b.Min {
		jittered = b.Min
	}
	return jittered
}
