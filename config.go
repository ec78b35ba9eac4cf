package hookline

import "time"

// Config holds the configuration for a Hookline instance.
type Config struct {
	// Concurrency bounds how many delivery sequences run in parallel
	// within one send.
	Concurrency int

	// RequestTimeout is the HTTP timeout per delivery attempt.
	RequestTimeout time.Duration

	// MaxRetries is the total number of HTTP attempts per delivery
	// sequence, first attempt included.
	MaxRetries int

	// RetrySchedule defines the backoff waits between attempts. Entry i
	// is the delay slept after failed attempt i+1; attempts past the end
	// of the schedule reuse the last entry.
	RetrySchedule []time.Duration

	// RecentWindow is how many recent delivery records stats are
	// recomputed over.
	RecentWindow int
}

// DefaultRetrySchedule defines the default backoff waits between attempts.
var DefaultRetrySchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    10,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		RetrySchedule:  DefaultRetrySchedule,
		RecentWindow:   100,
	}
}
