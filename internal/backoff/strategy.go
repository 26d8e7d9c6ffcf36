// Package backoff computes the wait between retry attempts.
package backoff

import (
	"math/rand"
	"time"
)

// maxExponent bounds the doubling so the float product cannot overflow a Duration.
const maxExponent = 30

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Calculate returns the wait before retry number attempt+1. attempt is
	// zero for the wait that follows the first failure.
	Calculate(attempt int, base, limit time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialStrategy waits base * multiplier^attempt, capped at limit. A
// non-zero jitter adds up to jitter*delay of random extra wait, still capped.
type ExponentialStrategy struct{}

func (s ExponentialStrategy) Calculate(attempt int, base, limit time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}

	delay := time.Duration(float64(base) * Pow(multiplier, attempt))
	if delay < 0 || delay > limit {
		delay = limit
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		extra := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+extra > limit {
			return limit
		}
		delay += extra
	}
	return delay
}

// DecorrelatedJitterStrategy draws uniformly from [base, min(limit, base*3^attempt)].
type DecorrelatedJitterStrategy struct{}

func (s DecorrelatedJitterStrategy) Calculate(attempt int, base, limit time.Duration, multiplier, jitter float64) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 10 {
		attempt = 10
	}

	lower := float64(base)
	upper := lower * Pow(3.0, attempt)
	if upper > float64(limit) || upper < 0 {
		upper = float64(limit)
	}
	if upper < lower {
		upper = lower
	}

	result := time.Duration(lower + rand.Float64()*(upper-lower))
	if result < 0 || result > limit {
		result = limit
	}
	return result
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// Pow calculates base^exponent using integer exponentiation.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
