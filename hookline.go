package hookline

import (
	"context"

	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/store"
	"github.com/hookline/hookline/webhook"
)

// wireServices initializes the internal services after options have been applied.
func (hl *Hookline) wireServices() {
	hl.webhookSvc = webhook.NewService(hl.store, hl.logger)

	hl.engine = delivery.NewEngine(hl.store, delivery.EngineConfig{
		Concurrency:    hl.config.Concurrency,
		MaxRetries:     hl.config.MaxRetries,
		RequestTimeout: hl.config.RequestTimeout,
		RetrySchedule:  hl.config.RetrySchedule,
		RecentWindow:   hl.config.RecentWindow,
		HTTPClient:     hl.httpClient,
		Breaker:        hl.breakers,
		Limiter:        hl.limiter,
		Catalog:        hl.catalog,
		Metrics:        hl.metrics,
		Tracer:         hl.tracer,
	}, hl.logger)
}

// SendEvent delivers an event to every matching subscription of the owner,
// optionally narrowed to one inbox.
//
// The call is synchronous: it returns once every matched webhook has been
// attempted, with one Result per subscription. A subscription failing never
// affects the others; the returned error covers only problems before
// fan-out (invalid event, schema validation, resolution failure). Zero
// matching subscriptions is a successful no-op with nil results.
func (hl *Hookline) SendEvent(ctx context.Context, ownerID, inboxID string, evt *event.Event) ([]delivery.Result, error) {
	return hl.engine.SendEvent(ctx, ownerID, inboxID, evt)
}

// Redeliver re-runs a past delivery from its stored record against the
// webhook's current URL and secret. The webhook must be active.
func (hl *Hookline) Redeliver(ctx context.Context, recordID id.ID, ownerID string) (delivery.Result, error) {
	return hl.engine.Redeliver(ctx, recordID, ownerID)
}

// Deliveries returns the delivery history for an owned webhook, most
// recent first.
func (hl *Hookline) Deliveries(ctx context.Context, whID id.ID, ownerID string, opts delivery.ListOpts) ([]*delivery.Record, error) {
	return hl.engine.Deliveries(ctx, whID, ownerID, opts)
}

// Stats returns delivery statistics for an owned webhook: the lifetime
// counters carried on the subscription plus figures recomputed over its
// most recent deliveries.
func (hl *Hookline) Stats(ctx context.Context, whID id.ID, ownerID string) (*delivery.Stats, error) {
	return hl.engine.Stats(ctx, whID, ownerID)
}

// Webhooks returns the webhook registry service.
func (hl *Hookline) Webhooks() *webhook.Service {
	return hl.webhookSvc
}

// Breakers returns the circuit breaker registry, or nil when none was wired.
func (hl *Hookline) Breakers() *breaker.Registry {
	return hl.breakers
}

// Catalog returns the event type catalog, or nil when none was wired.
func (hl *Hookline) Catalog() *catalog.Catalog {
	return hl.catalog
}

// Store returns the underlying store.
func (hl *Hookline) Store() store.Store {
	return hl.store
}

// Close closes the underlying store.
func (hl *Hookline) Close() error {
	return hl.store.Close()
}
