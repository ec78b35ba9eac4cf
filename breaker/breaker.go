// Package breaker implements a keyed circuit breaker for webhook delivery.
//
// Each key (Hookline uses the webhook subscription ID) gets an independent
// three-state machine: closed while the subscriber is healthy, open after
// repeated failures inside a rolling window, and half-open once a cooldown
// has passed and a probe call may go through. State lives in memory only;
// a restart starts every breaker closed.
//
// Half-open admits every caller that asks, not just one probe. Two
// goroutines probing the same key concurrently are both allowed and the
// last recorded outcome wins. Callers that need a single-probe guarantee
// must serialize above this package.
package breaker

import (
	"errors"
	"fmt"
	"time"
)

// State is the position of one breaker's state machine.
type State string

const (
	// StateClosed admits all calls.
	StateClosed State = "closed"

	// StateOpen rejects all calls until the reset timeout elapses.
	StateOpen State = "open"

	// StateHalfOpen admits probe calls after the cooldown. A success closes
	// the breaker, a failure reopens it immediately.
	StateHalfOpen State = "half_open"
)

// Config tunes the breaker state machine. The zero value of any field is
// replaced with its default.
type Config struct {
	// FailureThreshold is the number of failures inside FailureWindow that
	// trips a closed breaker. Default 5.
	FailureThreshold int

	// FailureWindow is the rolling window failures are counted over.
	// Older failures are pruned lazily when new ones are recorded.
	// Default 60s.
	FailureWindow time.Duration

	// ResetTimeout is how long an open breaker rejects calls before
	// admitting a half-open probe. Default 30s.
	ResetTimeout time.Duration
}

// DefaultConfig returns the default breaker tuning.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureWindow:    60 * time.Second,
		ResetTimeout:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = def.FailureWindow
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	return c
}

// Decision is the outcome of asking whether a call may proceed.
type Decision struct {
	// Allowed reports whether the call may go ahead.
	Allowed bool

	// Reason is a human-readable explanation when the call is rejected,
	// including the remaining cooldown in whole seconds.
	Reason string

	// RetryAfter is the remaining cooldown when the call is rejected.
	RetryAfter time.Duration
}

// Status is a read-only snapshot of one breaker.
type Status struct {
	Key      string    `json:"key"`
	State    State     `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitzero"`

	// RetryAfter is the remaining cooldown for an open breaker, zero
	// otherwise.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// ErrOpen is matched by errors.Is for any rejection due to an open circuit.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when a call is rejected because the circuit for its
// key is open. It wraps ErrOpen.
type OpenError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open for %q, retry in %ds", e.Key, ceilSeconds(e.RetryAfter))
}

// Is reports true for ErrOpen so callers can match with errors.Is.
func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// ceilSeconds rounds a remaining cooldown up to whole seconds, so a 100ms
// remainder still reads "retry in 1s" rather than "0s".
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
