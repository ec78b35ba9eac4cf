package delivery

import "time"

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Delivered means the attempt succeeded (2xx) and the sequence is done.
	Delivered Decision = iota

	// Retry means the attempt failed in a way that may self-correct.
	Retry

	// Fail means the attempt failed terminally: further attempts with the
	// same request cannot succeed, so the sequence stops immediately.
	Fail
)

// Retrier classifies attempt outcomes and owns the backoff schedule.
type Retrier struct {
	schedule []time.Duration
}

// NewRetrier creates a retrier with the given backoff schedule.
func NewRetrier(schedule []time.Duration) *Retrier {
	return &Retrier{schedule: schedule}
}

// Decide classifies a single attempt outcome.
//
// Decision matrix:
//   - 2xx → Delivered
//   - 429 → Retry (the one 4xx that self-corrects: the receiver is shedding load)
//   - 400–499 (except 429) → Fail (a client error will not fix itself)
//   - anything else (5xx, 3xx, 0 = transport error) → Retry
//
// Decide looks at one attempt only; the engine's loop enforces the maximum
// attempt count.
func (r *Retrier) Decide(att Attempt) Decision {
	code := att.StatusCode

	if code >= 200 && code < 300 {
		return Delivered
	}

	if code == 429 {
		return Retry
	}

	if code >= 400 && code < 500 {
		return Fail
	}

	return Retry
}

// BackoffAt returns the delay to sleep after the given failed attempt
// (1-based). Attempts past the end of the schedule reuse its last entry.
func (r *Retrier) BackoffAt(attempt int) time.Duration {
	if len(r.schedule) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return r.schedule[idx]
}
