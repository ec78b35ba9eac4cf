package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/ratelimit"
	"github.com/hookline/hookline/signature"
	"github.com/hookline/hookline/webhook"
)

// EngineStore is the interface the engine needs for resolution and
// bookkeeping.
type EngineStore interface {
	Resolve(ctx context.Context, ownerID, inboxID, eventType string) ([]*webhook.Subscription, error)
	GetWebhook(ctx context.Context, whID id.ID) (*webhook.Subscription, error)
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecord(ctx context.Context, delID id.ID) (*Record, error)
	ListRecords(ctx context.Context, whID id.ID, opts ListOpts) ([]*Record, error)
	IncrementStats(ctx context.Context, whID id.ID, success bool, at time.Time) error
}

// EngineConfig holds engine configuration. Breaker, Limiter, Catalog,
// Metrics, and Tracer are optional; nil disables the corresponding hook.
type EngineConfig struct {
	// Concurrency bounds how many delivery sequences run in parallel
	// within one SendEvent.
	Concurrency int

	// MaxRetries is the total HTTP attempts per delivery sequence.
	MaxRetries int

	// RequestTimeout is the HTTP timeout per attempt.
	RequestTimeout time.Duration

	// RetrySchedule defines the backoff waits between attempts.
	RetrySchedule []time.Duration

	// RecentWindow is how many recent records Stats recomputes over.
	RecentWindow int

	// HTTPClient overrides the default client when non-nil. Its own
	// timeout applies per attempt.
	HTTPClient *http.Client

	Breaker *breaker.Registry
	Limiter *ratelimit.Limiter
	Catalog *catalog.Catalog
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Result is the outcome of one delivery sequence within a send. One
// subscription's Result never affects another's.
type Result struct {
	WebhookID  id.ID `json:"webhook_id"`
	DeliveryID id.ID `json:"delivery_id,omitzero"`

	// Success reports whether the sequence ended with a 2xx response.
	Success bool `json:"success"`

	// Attempts is how many HTTP attempts ran. 0 when the sequence never
	// started (circuit open, rate-limit wait cancelled).
	Attempts int `json:"attempts"`

	// StatusCode is the last attempt's HTTP status, 0 for transport
	// failures and never-started sequences.
	StatusCode int `json:"status_code"`

	// Err carries the failure: a *breaker.OpenError for circuit
	// rejections, or a wrapped ErrFailed once attempts ran out.
	Err error `json:"-"`
}

// Engine delivers events to matching subscriptions. Every send fans out to
// independent, bounded attempt sequences that each end in exactly one
// delivery record and one lifetime counter update.
type Engine struct {
	store   EngineStore
	sender  *Sender
	retrier *Retrier
	config  EngineConfig
	logger  *slog.Logger
}

// NewEngine creates a delivery engine.
func NewEngine(store EngineStore, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	sender := NewSender(cfg.RequestTimeout)
	if cfg.HTTPClient != nil {
		sender = NewSenderWithClient(cfg.HTTPClient)
	}

	return &Engine{
		store:   store,
		sender:  sender,
		retrier: NewRetrier(cfg.RetrySchedule),
		config:  cfg,
		logger:  logger,
	}
}

// SendEvent delivers an event to every matching subscription of the owner.
//
// The call is synchronous: it returns once every fanned-out sequence has
// finished, with one Result per matched subscription in resolution order.
// Individual delivery failures never fail the call; the returned error is
// reserved for problems before fan-out (invalid event, schema validation,
// resolution failure). Zero matching subscriptions is a successful no-op.
func (e *Engine) SendEvent(ctx context.Context, ownerID, inboxID string, evt *event.Event) ([]Result, error) {
	if evt == nil {
		return nil, fmt.Errorf("hookline: nil event")
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}

	// Typed events are validated against their registered schema before
	// anything is sent. Raw payloads are never validated.
	if c := e.config.Catalog; c != nil && evt.Mode() == event.ModeEnvelope {
		if err := c.ValidateEvent(evt.Type, evt.Data()); err != nil {
			return nil, err
		}
	}

	subs, err := e.store.Resolve(ctx, ownerID, inboxID, evt.Type)
	if err != nil {
		return nil, fmt.Errorf("hookline: resolve webhooks: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	if m := e.config.Metrics; m != nil {
		m.EventsSentTotal.Inc()
	}

	concurrency := e.config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]Result, len(subs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, sub := range subs {
		select {
		case <-ctx.Done():
			// Not yet admitted: the sequence never starts and surfaces
			// the cancellation. Started sequences run to completion.
			results[i] = Result{WebhookID: sub.ID, Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, sub *webhook.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.deliver(ctx, sub, inboxID, evt)
		}(i, sub)
	}

	wg.Wait()
	return results, nil
}

// Redeliver re-runs a delivery from its stored record: same wire payload,
// current subscription URL and secret, fresh delivery ID. It is a normal
// sequence in every respect, including the breaker guard and bookkeeping.
func (e *Engine) Redeliver(ctx context.Context, recordID id.ID, ownerID string) (Result, error) {
	rec, err := e.store.GetRecord(ctx, recordID)
	if err != nil {
		return Result{}, err
	}
	if rec.OwnerID != ownerID {
		return Result{}, ErrNotFound
	}

	sub, err := e.store.GetWebhook(ctx, rec.WebhookID)
	if err != nil {
		return Result{}, err
	}
	if sub.OwnerID != ownerID {
		return Result{}, webhook.ErrNotFound
	}
	if !sub.Active {
		return Result{}, webhook.ErrDisabled
	}

	// The stored payload is already wire-shaped; replay it verbatim.
	evt := event.NewRaw(rec.EventType, rec.Payload)
	return e.deliver(ctx, sub, rec.InboxID, evt), nil
}

// deliver runs one complete attempt sequence for one subscription.
func (e *Engine) deliver(ctx context.Context, sub *webhook.Subscription, inboxID string, evt *event.Event) Result {
	res := Result{WebhookID: sub.ID}
	key := sub.ID.String()

	// Circuit guard. A rejected sequence never starts: no HTTP, no
	// record, no counter movement.
	if br := e.config.Breaker; br != nil {
		if d := br.CanExecute(key); !d.Allowed {
			res.Err = &breaker.OpenError{Key: key, RetryAfter: d.RetryAfter}
			if m := e.config.Metrics; m != nil {
				m.BreakerRejectionsTotal.Inc()
			}
			e.logger.DebugContext(ctx, "delivery rejected by circuit breaker",
				"webhook_id", sub.ID,
				"retry_after", d.RetryAfter,
			)
			return res
		}
	}

	// Per-subscription rate limit. Caller cancellation still applies
	// here; nothing has been attempted yet.
	if l := e.config.Limiter; l != nil && sub.RateLimit > 0 {
		if err := l.Wait(ctx, key, sub.RateLimit); err != nil {
			res.Err = err
			return res
		}
	}

	deliveryID := id.NewDeliveryID()
	res.DeliveryID = deliveryID

	// Marshal once, sign once: every attempt sends these exact bytes.
	body, err := evt.WirePayload(deliveryID, time.Now().UTC())
	if err != nil {
		res.Err = err
		return res
	}

	req := Request{
		Subscription: sub,
		DeliveryID:   deliveryID,
		EventType:    evt.Type,
		Body:         body,
		Signature:    signature.Sign(body, sub.Secret),
	}

	// A started sequence runs to completion even if the caller goes away.
	seqCtx := context.WithoutCancel(ctx)

	var span trace.Span
	if t := e.config.Tracer; t != nil {
		seqCtx, span = t.StartDeliverySpan(seqCtx, deliveryID.String(), sub.ID.String(), evt.Type)
	}

	start := time.Now()
	att, attempts := e.runSequence(seqCtx, req)
	duration := time.Since(start)

	res.Attempts = attempts
	res.StatusCode = att.StatusCode
	res.Success = att.OK()
	if !res.Success {
		if att.Error != "" {
			res.Err = fmt.Errorf("%w: %s", ErrFailed, att.Error)
		} else {
			res.Err = fmt.Errorf("%w: status %d after %d attempts", ErrFailed, att.StatusCode, attempts)
		}
	}

	if span != nil {
		e.config.Tracer.EndDeliverySpan(span, att.StatusCode, attempts, att.Error)
	}

	if m := e.config.Metrics; m != nil {
		status := "delivered"
		if !res.Success {
			status = "failed"
		}
		m.RecordDelivery(status, duration.Seconds())
	}

	if res.Success {
		e.logger.DebugContext(seqCtx, "delivered",
			"webhook_id", sub.ID,
			"delivery_id", deliveryID,
			"status", att.StatusCode,
			"attempts", attempts,
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		e.logger.WarnContext(seqCtx, "delivery failed",
			"webhook_id", sub.ID,
			"delivery_id", deliveryID,
			"status", att.StatusCode,
			"attempts", attempts,
			"error", att.Error,
		)
	}

	rec := &Record{
		Entity:     entity.New(),
		ID:         deliveryID,
		WebhookID:  sub.ID,
		OwnerID:    sub.OwnerID,
		InboxID:    inboxID,
		EventType:  evt.Type,
		Payload:    body,
		Attempts:   attempts,
		Success:    res.Success,
		StatusCode: att.StatusCode,
		Response:   att.Response,
		Error:      att.Error,
		DurationMs: duration.Milliseconds(),
	}
	e.bookkeep(seqCtx, rec)

	// Feed the breaker only after the sequence has fully resolved, so one
	// sequence contributes at most one success or one failure.
	if br := e.config.Breaker; br != nil {
		if res.Success {
			br.RecordSuccess(key)
		} else {
			br.RecordFailure(key)
		}
	}

	return res
}

// runSequence executes up to MaxRetries attempts, sleeping the backoff
// schedule between retryable failures. It returns the last attempt and the
// number of attempts made. Sleeps happen only between attempts — never
// before the first or after the last.
func (e *Engine) runSequence(ctx context.Context, req Request) (Attempt, int) {
	maxAttempts := e.config.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var att Attempt
	for n := 1; ; n++ {
		att = e.sender.Send(ctx, req)

		switch e.retrier.Decide(att) {
		case Delivered, Fail:
			return att, n
		case Retry:
			if n >= maxAttempts {
				return att, n
			}
			time.Sleep(e.retrier.BackoffAt(n))
		}
	}
}

// bookkeep writes the record and bumps the lifetime counter for a finished
// sequence. Each sequence gets exactly one record and one counter update;
// failures here are observed but never alter the delivery outcome — the
// webhook already fired.
func (e *Engine) bookkeep(ctx context.Context, rec *Record) {
	if err := e.store.CreateRecord(ctx, rec); err != nil {
		e.observeBookkeepingError(ctx, "create record", rec, err)
	}
	if err := e.store.IncrementStats(ctx, rec.WebhookID, rec.Success, rec.CreatedAt); err != nil {
		e.observeBookkeepingError(ctx, "increment stats", rec, err)
	}
}

func (e *Engine) observeBookkeepingError(ctx context.Context, op string, rec *Record, err error) {
	if m := e.config.Metrics; m != nil {
		m.BookkeepingErrorsTotal.Inc()
	}
	e.logger.ErrorContext(ctx, "delivery bookkeeping failed",
		"op", op,
		"delivery_id", rec.ID,
		"webhook_id", rec.WebhookID,
		"error", err,
	)
}
