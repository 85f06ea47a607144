// Package resilience provides the failover primitives the generation
// pipeline is built on: a three-state circuit breaker and a generic
// fallback group that tries providers in preference order.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the cool-down has not elapsed.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrBreakerOpen] until the cool-down
	// elapses.
	BreakerOpen

	// BreakerHalfOpen lets a bounded number of probe calls through to
	// decide between closing and re-opening.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero fields get defaults.
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// Trip is the consecutive-failure count that opens the breaker.
	// Default 5.
	Trip int

	// CoolDown is how long the breaker stays open before probing.
	// Default 30s.
	CoolDown time.Duration

	// Probes is the half-open probe budget. Default 3.
	Probes int
}

// Breaker is a classic closed/open/half-open circuit breaker.
type Breaker struct {
	name     string
	trip     int
	coolDown time.Duration
	probes   int

	mu         sync.Mutex
	state      BreakerState
	failStreak int
	openedAt   time.Time
	probeCalls int
	probeFails int
}

// NewBreaker builds a [Breaker] from cfg, filling in defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		coolDown: cfg.CoolDown,
		probes:   cfg.Probes,
		state:    BreakerClosed,
	}
}

// Do runs fn if the breaker permits it, recording the outcome.
func (b *Breaker) Do(fn func() error) error {
	probing, ok := b.admit()
	if !ok {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// admit decides whether a call may proceed and whether it counts as a
// half-open probe.
func (b *Breaker) admit() (probing, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.coolDown {
			return false, false
		}
		b.state = BreakerHalfOpen
		b.probeCalls = 0
		b.probeFails = 0
		slog.Info("circuit breaker probing", "name", b.name)

	case BreakerHalfOpen:
		if b.probeCalls >= b.probes {
			return false, false
		}
	}

	if b.state == BreakerHalfOpen {
		b.probeCalls++
		return true, true
	}
	return false, true
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = time.Now()

	if probing {
		b.probeFails++
		b.state = BreakerOpen
		b.failStreak = b.trip
		slog.Warn("circuit breaker re-opened", "name", b.name)
		return
	}

	b.failStreak++
	if b.failStreak >= b.trip {
		b.state = BreakerOpen
		slog.Warn("circuit breaker opened",
			"name", b.name, "consecutive_failures", b.failStreak)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probeCalls-b.probeFails >= b.probes {
			b.state = BreakerClosed
			b.failStreak = 0
			b.probeCalls = 0
			b.probeFails = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
		return
	}
	b.failStreak = 0
}

// State reports the effective state. An open breaker whose cool-down has
// elapsed reports half-open; the transition itself happens on the next Do.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.coolDown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failStreak = 0
	b.probeCalls = 0
	b.probeFails = 0
	slog.Info("circuit breaker reset", "name", b.name)
}
