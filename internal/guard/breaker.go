// Package guard holds the resource protection primitives: a circuit
// breaker for outbound provider calls and a per-key request rate
// limiter for the HTTP surface.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// executing it. Callers map it to a degraded response rather than an
// internal error.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState represents the current state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed allows calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets a single trial call probe for recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// Name labels the breaker in errors and metrics.
	Name string
	// FailureThreshold is the failure count within the recent-outcome
	// window that opens the circuit. The window holds the last
	// max(MinSamples, FailureThreshold) closed-state calls, so the
	// threshold is a rate over recent calls, not a consecutive streak.
	FailureThreshold int
	// MinSamples is the minimum number of windowed outcomes before the
	// threshold applies.
	MinSamples int
	// Cooldown is how long the circuit stays open before a half-open
	// trial is allowed.
	Cooldown time.Duration
}

// Validate checks the breaker config.
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failureThreshold must be positive, got %d", c.FailureThreshold)
	}
	if c.MinSamples < 0 {
		return fmt.Errorf("minSamples must be non-negative, got %d", c.MinSamples)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %v", c.Cooldown)
	}
	return nil
}

// BreakerMetrics is a snapshot of a breaker's counters.
type BreakerMetrics struct {
	State          BreakerState
	TotalCalls     int64
	TotalFailures  int64
	TotalSuccesses int64
	Rejected       int64
	LastFailure    time.Time
}

// Breaker is a Closed/Open/HalfOpen circuit breaker. In the half-open
// state only one trial call is admitted at a time; its outcome decides
// whether the circuit closes again or re-opens.
type Breaker struct {
	cfg BreakerConfig

	mu sync.Mutex

	state BreakerState
	// window is a ring of recent closed-state outcomes, true = failure.
	window         []bool
	head           int
	filled         int
	failures       int
	probing        bool
	lastFailure    time.Time
	totalCalls     int64
	totalFailures  int64
	totalSuccesses int64
	rejected       int64
}

// NewBreaker creates a circuit breaker in the closed state.
func NewBreaker(cfg BreakerConfig) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config %q: %w", cfg.Name, err)
	}
	size := cfg.MinSamples
	if size < cfg.FailureThreshold {
		size = cfg.FailureThreshold
	}
	return &Breaker{cfg: cfg, state: BreakerClosed, window: make([]bool, size)}, nil
}

// Do runs fn under the breaker. Context cancellation before admission
// returns ctx.Err() without counting a sample; fn's own error counts
// as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++

	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.cfg.Cooldown {
		b.state = BreakerHalfOpen
		b.probing = false
	}

	switch b.state {
	case BreakerOpen:
		b.rejected++
		return fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
	case BreakerHalfOpen:
		if b.probing {
			b.rejected++
			return fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.totalFailures++
		b.lastFailure = time.Now()

		if b.state == BreakerHalfOpen {
			b.state = BreakerOpen
			b.probing = false
			b.clearWindow()
			return
		}
		b.push(true)
		if b.filled >= b.cfg.MinSamples && b.failures >= b.cfg.FailureThreshold {
			b.state = BreakerOpen
			b.clearWindow()
		}
		return
	}

	b.totalSuccesses++
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
		b.probing = false
		b.clearWindow()
		return
	}
	b.push(false)
}

// push records one outcome, evicting the oldest once the window is full.
func (b *Breaker) push(failed bool) {
	if b.filled == len(b.window) {
		if b.window[b.head] {
			b.failures--
		}
	} else {
		b.filled++
	}
	b.window[b.head] = failed
	if failed {
		b.failures++
	}
	b.head = (b.head + 1) % len(b.window)
}

func (b *Breaker) clearWindow() {
	b.head = 0
	b.filled = 0
	b.failures = 0
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Metrics returns a counter snapshot.
func (b *Breaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerMetrics{
		State:          b.state,
		TotalCalls:     b.totalCalls,
		TotalFailures:  b.totalFailures,
		TotalSuccesses: b.totalSuccesses,
		Rejected:       b.rejected,
		LastFailure:    b.lastFailure,
	}
}

// Reset forces the breaker back to closed with an empty outcome
// window. Lifetime totals are kept.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.clearWindow()
	b.probing = false
	b.lastFailure = time.Time{}
}
