package breaker

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry tracks one breaker per key. Keys are created lazily on the first
// recorded failure; read paths never allocate state.
//
// A Registry is an injected dependency: construct one and hand it to
// whatever wraps its calls with it. There is no package-level instance.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]*state

	// now is overridable in tests to drive the window and cooldown clocks.
	now func() time.Time
}

type state struct {
	current  State
	failures []time.Time
	openedAt time.Time
}

// New creates a breaker registry. Zero-value config fields take defaults;
// a nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		cfg:    cfg.withDefaults(),
		logger: logger,
		states: make(map[string]*state),
		now:    time.Now,
	}
}

// CanExecute reports whether a call for key may proceed. It never blocks and
// never returns an error; a rejection carries the reason and remaining
// cooldown. Asking about an untracked key allows the call without creating
// state.
//
// An open breaker whose reset timeout has elapsed transitions to half-open
// here, so the asking call doubles as the probe.
func (r *Registry) CanExecute(key string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[key]
	if !ok {
		return Decision{Allowed: true}
	}

	switch s.current {
	case StateOpen:
		remaining := r.cfg.ResetTimeout - r.now().Sub(s.openedAt)
		if remaining > 0 {
			return Decision{
				Allowed:    false,
				Reason:     fmt.Sprintf("circuit breaker is open, retry in %ds", ceilSeconds(remaining)),
				RetryAfter: remaining,
			}
		}

		s.current = StateHalfOpen
		r.logger.Debug("circuit breaker half-open", "key", key)

		return Decision{Allowed: true}
	default:
		// Closed and half-open both admit the call. Half-open admits
		// concurrent probes; the last recorded outcome wins.
		return Decision{Allowed: true}
	}
}

// RecordSuccess closes the breaker for key and clears its failure history.
// Recording success for an untracked key is a no-op.
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[key]
	if !ok {
		return
	}

	if s.current != StateClosed {
		r.logger.Info("circuit breaker closed", "key", key)
	}

	s.current = StateClosed
	s.failures = nil
	s.openedAt = time.Time{}
}

// RecordFailure notes a failed call for key. Failures older than the rolling
// window are pruned here, on the write path only. A half-open breaker
// reopens immediately; a closed one trips once the in-window count reaches
// the threshold.
func (r *Registry) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	s, ok := r.states[key]
	if !ok {
		s = &state{current: StateClosed}
		r.states[key] = s
	}

	if s.current == StateHalfOpen {
		r.trip(key, s, now)
		return
	}

	s.failures = append(s.failures, now)
	s.prune(now, r.cfg.FailureWindow)

	if s.current == StateClosed && len(s.failures) >= r.cfg.FailureThreshold {
		r.trip(key, s, now)
	}
}

// trip opens the breaker. Callers hold r.mu.
func (r *Registry) trip(key string, s *state, now time.Time) {
	s.current = StateOpen
	s.openedAt = now
	s.failures = nil

	r.logger.Warn("circuit breaker opened",
		"key", key,
		"reset_timeout", r.cfg.ResetTimeout,
	)
}

// prune drops failures that fell out of the rolling window.
func (s *state) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)

	kept := s.failures[:0]
	for _, ts := range s.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.failures = kept
}

// Do wraps fn with the breaker for key: a rejected call returns *OpenError
// without invoking fn, a failed fn records a failure and returns fn's error
// unchanged, a successful fn records success.
func (r *Registry) Do(key string, fn func() error) error {
	if d := r.CanExecute(key); !d.Allowed {
		return &OpenError{Key: key, RetryAfter: d.RetryAfter}
	}

	if err := fn(); err != nil {
		r.RecordFailure(key)
		return err
	}

	r.RecordSuccess(key)

	return nil
}

// Status returns a snapshot for key without mutating any state. Untracked
// keys report a zero-value closed status.
func (r *Registry) Status(key string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[key]
	if !ok {
		return Status{Key: key, State: StateClosed}
	}

	return r.snapshot(key, s)
}

// Statuses returns snapshots for every tracked key, sorted by key.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.states))
	for key, s := range r.states {
		out = append(out, r.snapshot(key, s))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

// snapshot builds a Status. Callers hold r.mu.
func (r *Registry) snapshot(key string, s *state) Status {
	st := Status{
		Key:      key,
		State:    s.current,
		Failures: len(s.failures),
		OpenedAt: s.openedAt,
	}

	if s.current == StateOpen {
		if remaining := r.cfg.ResetTimeout - r.now().Sub(s.openedAt); remaining > 0 {
			st.RetryAfter = remaining
		}
	}

	return st
}

// Reset discards all state for key, returning it to closed. Resetting an
// untracked key is a no-op.
func (r *Registry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, key)
}

// ResetAll discards state for every tracked key.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = make(map[string]*state)
}
