package backoff

import (
	"time"
)

// Calculator binds a Strategy to a fixed set of parameters.
type Calculator struct {
	strategy   Strategy
	base       time.Duration
	limit      time.Duration
	multiplier float64
	jitter     float64
}

// NewCalculator creates a calculator. A nil strategy means ExponentialStrategy.
func NewCalculator(strategy Strategy, base, limit time.Duration, multiplier, jitter float64) *Calculator {
	if strategy == nil {
		strategy = ExponentialStrategy{}
	}
	return &Calculator{
		strategy:   strategy,
		base:       base,
		limit:      limit,
		multiplier: multiplier,
		jitter:     jitter,
	}
}

// Delay returns the wait that follows failed attempt number attempt (zero based).
func (c *Calculator) Delay(attempt int) time.Duration {
	return c.strategy.Calculate(attempt, c.base, c.limit, c.multiplier, c.jitter)
}

// Strategy returns the configured strategy.
func (c *Calculator) Strategy() Strategy {
	return c.strategy
}
