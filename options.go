package hookline

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/ratelimit"
	"github.com/hookline/hookline/store"
	"github.com/hookline/hookline/webhook"
)

// Hookline is the root webhook delivery engine.
type Hookline struct {
	config     Config
	store      store.Store
	breakers   *breaker.Registry
	limiter    *ratelimit.Limiter
	catalog    *catalog.Catalog
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	httpClient *http.Client
	webhookSvc *webhook.Service
	engine     *delivery.Engine
	logger     *slog.Logger
}

// Option configures a Hookline instance.
type Option func(*Hookline) error

// New creates a new Hookline with the given options.
func New(opts ...Option) (*Hookline, error) {
	hl := &Hookline{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(hl); err != nil {
			return nil, err
		}
	}
	if hl.store == nil {
		return nil, ErrNoStore
	}
	hl.wireServices()
	return hl, nil
}

// WithStore sets the persistence backend for the Hookline instance.
func WithStore(s store.Store) Option {
	return func(hl *Hookline) error {
		hl.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Hookline instance.
func WithLogger(logger *slog.Logger) Option {
	return func(hl *Hookline) error {
		hl.logger = logger
		return nil
	}
}

// WithConfig replaces the whole delivery configuration.
func WithConfig(cfg Config) Option {
	return func(hl *Hookline) error {
		hl.config = cfg
		return nil
	}
}

// WithBreaker sets the circuit breaker registry guarding deliveries.
// Without one, deliveries run unguarded.
func WithBreaker(reg *breaker.Registry) Option {
	return func(hl *Hookline) error {
		hl.breakers = reg
		return nil
	}
}

// WithRateLimiter sets the per-webhook rate limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(hl *Hookline) error {
		hl.limiter = l
		return nil
	}
}

// WithCatalog sets the event type catalog. Enveloped events whose type has
// a registered schema are validated before delivery.
func WithCatalog(c *catalog.Catalog) Option {
	return func(hl *Hookline) error {
		hl.catalog = c
		return nil
	}
}

// WithMetrics sets the Prometheus metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(hl *Hookline) error {
		hl.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for delivery sequences.
func WithTracer(t *observability.Tracer) Option {
	return func(hl *Hookline) error {
		hl.tracer = t
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for deliveries. The client's own
// timeout applies per attempt, overriding RequestTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(hl *Hookline) error {
		hl.httpClient = c
		return nil
	}
}

// WithConcurrency bounds how many delivery sequences run in parallel per send.
func WithConcurrency(n int) Option {
	return func(hl *Hookline) error {
		hl.config.Concurrency = n
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.RequestTimeout = d
		return nil
	}
}

// WithMaxRetries sets the total number of HTTP attempts per delivery sequence.
func WithMaxRetries(n int) Option {
	return func(hl *Hookline) error {
		hl.config.MaxRetries = n
		return nil
	}
}

// WithRetrySchedule sets the backoff waits between attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.RetrySchedule = schedule
		return nil
	}
}

// WithRecentWindow sets how many recent records stats recompute over.
func WithRecentWindow(n int) Option {
	return func(hl *Hookline) error {
		hl.config.RecentWindow = n
		return nil
	}
}
