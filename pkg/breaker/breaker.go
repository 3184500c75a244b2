// Package breaker implements the circuit breaker guarding calls to the
// trading terminal: a mutex-protected state machine with three states,
// CLOSED, OPEN, and HALF_OPEN, matching spec.md §4.3.
package breaker

import (
	"sync"
	"time"
)

// State is the circuit breaker's closed sum type.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config holds the thresholds governing state transitions.
type Config struct {
	Threshold       int           // consecutive failures in CLOSED before tripping to OPEN
	RecoverySeconds time.Duration // time in OPEN before a probe is admitted
	HalfOpenMax     int           // probe successes in HALF_OPEN required to close
}

// Status is a point-in-time monitoring snapshot.
type Status struct {
	State      State
	Failures   int
	Successes  int
	RecoveryAt time.Time // zero unless State == Open
}

// Breaker is a single mutex-protected circuit breaker. All
// transitions and reads occur under the same lock, so `can_admit` and the
// OPEN→HALF_OPEN self-healing check never race with record_success or
// record_failure.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state            State
	failureCount     int
	successCount     int // probe successes while in HALF_OPEN
	lastFailureAt    time.Time
	halfOpenInFlight int
}

// New creates a breaker in the CLOSED state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// CanAdmit reports whether a call may proceed. In CLOSED it always admits.
// In OPEN it first performs the time-based check and transitions to
// HALF_OPEN if the recovery window has elapsed, then admits the probe. In
// HALF_OPEN it admits at most HalfOpenMax concurrent probes, incrementing
// the in-flight counter atomically with the admission decision to avoid a
// check-then-act race between two goroutines.
func (b *Breaker) CanAdmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.lastFailureAt) >= b.cfg.RecoverySeconds {
			b.state = HalfOpen
			b.halfOpenInFlight = 0
			b.successCount = 0
		} else {
			return false
		}
		fallthrough
	case HalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMax {
			return false
		}
		b.halfOpenInFlight++
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful call. In CLOSED it resets the failure
// count. In HALF_OPEN it counts a probe success and, once successCount
// reaches HalfOpenMax, closes the breaker and resets failureCount.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.successCount++
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		if b.successCount >= b.cfg.HalfOpenMax {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
			b.halfOpenInFlight = 0
		}
	}
}

// RecordFailure reports a failed call. In CLOSED it increments the failure
// count and trips to OPEN once it reaches Threshold. In HALF_OPEN any
// failure returns the breaker to OPEN immediately — a single bad probe
// forfeits the recovery attempt.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.cfg.Threshold {
			b.state = Open
			b.lastFailureAt = time.Now()
		}
	case HalfOpen:
		b.state = Open
		b.lastFailureAt = time.Now()
		b.successCount = 0
		b.halfOpenInFlight = 0
	case Open:
		b.lastFailureAt = time.Now()
	}
}

// Status returns a monitoring snapshot. RecoveryAt is populated only when
// the breaker is currently OPEN.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{
		State:     b.state,
		Failures:  b.failureCount,
		Successes: b.successCount,
	}
	if b.state == Open {
		s.RecoveryAt = b.lastFailureAt.Add(b.cfg.RecoverySeconds)
	}
	return s
}

// Reset forces the breaker back to CLOSED, clearing all counters. Intended
// for administrative use only (e.g. an operator-triggered reset), never
// called from the retry or orchestration paths.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenInFlight = 0
	b.lastFailureAt = time.Time{}
}
