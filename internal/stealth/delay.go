package stealth

import (
	"math/rand/v2"
	"time"
)

// The behavioral delays below are the jitter utilities a Renderer threads between
// simulated actions so request timing doesn't look machine-regular
// (spec.md §4.10). Delays are live, non-deterministic — unlike Generate,
// which must be seed-reproducible.

// RandomDelay returns a uniformly random duration in [min, max]. min > max
// is treated as a caller error and swapped rather than panicking, since a
// misconfigured call site shouldn't crash a fetch over timing.
func RandomDelay(min, max time.Duration) time.Duration {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// JitteredDelay returns base scaled by a random factor in
// [1-factor, 1+factor], never negative.
func JitteredDelay(base time.Duration, factor float64) time.Duration {
	if factor < 0 {
		factor = 0
	}
	scale := 1 + (rand.Float64()*2-1)*factor
	if scale < 0 {
		scale = 0
	}
	d := time.Duration(float64(base) * scale)
	if d < 0 {
		return 0
	}
	return d
}

// ExponentialBackoff returns base*2^attempt capped at max, then jittered by
// ±30% — so the returned value can exceed max by up to 30% (the cap bounds
// the exponential growth, not the final jittered result).
func ExponentialBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	raw := float64(base)
	for i := 0; i < attempt && raw < float64(max); i++ {
		raw *= 2
	}
	if raw > float64(max) {
		raw = float64(max)
	}

	jitterScale := 1 + (rand.Float64()*2-1)*0.3
	d := time.Duration(raw * jitterScale)
	if d < 0 {
		d = 0
	}
	return d
}
