package webhook

import (
	"context"
	"time"

	"github.com/hookline/hookline/id"
)

// Store defines the persistence contract for webhook subscriptions.
//
// Lookups are unscoped; the Service layer enforces ownership and masks
// cross-owner access as not-found.
type Store interface {
	// CreateWebhook persists a new subscription.
	CreateWebhook(ctx context.Context, sub *Subscription) error

	// GetWebhook returns a subscription by ID.
	GetWebhook(ctx context.Context, whID id.ID) (*Subscription, error)

	// UpdateWebhook modifies an existing subscription. Lifetime counters
	// and LastDeliveryAt are never written here; IncrementStats is their
	// only writer.
	UpdateWebhook(ctx context.Context, sub *Subscription) error

	// DeleteWebhook removes a subscription and all of its delivery records.
	DeleteWebhook(ctx context.Context, whID id.ID) error

	// ListWebhooks returns subscriptions for an owner, optionally filtered.
	ListWebhooks(ctx context.Context, ownerID string, opts ListOpts) ([]*Subscription, error)

	// Resolve finds all active subscriptions that should receive an event
	// of the given type sent to the given inbox. This is the hot path —
	// called on every SendEvent.
	Resolve(ctx context.Context, ownerID, inboxID, eventType string) ([]*Subscription, error)

	// SetActive activates or deactivates a subscription without deleting it.
	SetActive(ctx context.Context, whID id.ID, active bool) error

	// IncrementStats bumps exactly one lifetime counter (success or
	// failure) and sets LastDeliveryAt. Implementations must make the
	// increment atomic: concurrent delivery sequences never lose counts.
	IncrementStats(ctx context.Context, whID id.ID, success bool, at time.Time) error

	// InboxOwner returns the owner account of an inbox, or ErrInboxNotFound.
	InboxOwner(ctx context.Context, inboxID string) (string, error)
}
