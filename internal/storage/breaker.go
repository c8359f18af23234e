package storage

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerSettings configure the rolling-window failure accounting.
type BreakerSettings struct {
	// Window is the number of recent call outcomes considered.
	Window int
	// MinSamples is the minimum number of recorded outcomes before the
	// failure rate is evaluated at all.
	MinSamples int
	// FailureRate opens the circuit when the share of failures within the
	// window reaches it (0.5 = 50%).
	FailureRate float64
	// ResetTimeout is how long the circuit stays open before a half-open
	// trial call is admitted.
	ResetTimeout time.Duration
}

// Breaker is a three-state circuit breaker guarding the object store.
//
// CLOSED: calls pass through; outcomes feed a rolling window, and the
// circuit opens when the window's failure rate reaches the threshold.
// OPEN: calls fail immediately; after ResetTimeout one trial is admitted.
// HALF-OPEN: exactly one in-flight trial; success closes the circuit and
// clears the window, failure reopens it and restarts the timer.
//
// The breaker state is shared across all calls through one storage client:
// it protects the collaborator as a whole, not individual documents.
// Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	settings BreakerSettings

	outcomes []bool // ring buffer, true = failure
	next     int
	filled   int

	state         BreakerState
	openedAt      time.Time
	trialInFlight bool

	now func() time.Time
}

// NewBreaker creates a Breaker. Zero or negative settings fall back to the
// design defaults (window 10, min samples 4, 50% rate, 30s reset).
func NewBreaker(s BreakerSettings) *Breaker {
	if s.Window <= 0 {
		s.Window = 10
	}
	if s.MinSamples <= 0 {
		s.MinSamples = 4
	}
	if s.FailureRate <= 0 || s.FailureRate > 1 {
		s.FailureRate = 0.5
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = 30 * time.Second
	}
	return &Breaker{
		settings: s,
		outcomes: make([]bool, s.Window),
		state:    StateClosed,
		now:      time.Now,
	}
}

// Allow reports whether a call may proceed. In OPEN state it admits a single
// half-open trial once the reset timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// Only one trial at a time.
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default: // StateOpen
		if b.now().Sub(b.openedAt) < b.settings.ResetTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		return true
	}
}

// RecordSuccess records a successful call. Returns the resulting state.
func (b *Breaker) RecordSuccess() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		// Trial succeeded: close and forget past failures.
		b.reset(StateClosed)
		return b.state
	}
	b.record(false)
	return b.state
}

// RecordFailure records a failed call (including timeouts). Returns the
// resulting state.
func (b *Breaker) RecordFailure() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		// Trial failed: reopen and restart the reset timer.
		b.reset(StateOpen)
		b.openedAt = b.now()
		return b.state
	}
	b.record(true)
	if b.state == StateClosed && b.filled >= b.settings.MinSamples && b.failureRate() >= b.settings.FailureRate {
		b.state = StateOpen
		b.openedAt = b.now()
	}
	return b.state
}

// ReleaseTrial abandons an admitted half-open trial without recording an
// outcome, e.g. when the caller canceled mid-call.
func (b *Breaker) ReleaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.trialInFlight = false
	}
}

// State returns the current breaker state without side effects.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) record(failure bool) {
	b.outcomes[b.next] = failure
	b.next = (b.next + 1) % len(b.outcomes)
	if b.filled < len(b.outcomes) {
		b.filled++
	}
}

func (b *Breaker) failureRate() float64 {
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.outcomes[i] {
			failures++
		}
	}
	return float64(failures) / float64(b.filled)
}

// reset clears the window and moves to the given state.
func (b *Breaker) reset(state BreakerState) {
	for i := range b.outcomes {
		b.outcomes[i] = false
	}
	b.next = 0
	b.filled = 0
	b.trialInFlight = false
	b.state = state
}
