// Package webhook manages webhook subscriptions: per-account delivery
// targets with event filters, signing secrets, and lifetime delivery
// counters.
package webhook

import (
	"errors"
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// Sentinel errors for subscription operations. Lookups scoped to the wrong
// owner return ErrNotFound, never a permission error, so callers cannot
// probe for the existence of another account's webhooks.
var (
	// ErrNotFound is returned when a subscription does not exist or is not
	// owned by the requesting account.
	ErrNotFound = errors.New("hookline: webhook not found")

	// ErrUnauthorized is returned when an inbox does not exist or belongs
	// to a different account. Callers cannot tell the two cases apart.
	ErrUnauthorized = errors.New("hookline: inbox not found or unauthorized")

	// ErrInvalidURL is returned when a webhook URL is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("hookline: invalid webhook URL")

	// ErrInvalidEvents is returned when a subscription would be left with
	// no event type patterns.
	ErrInvalidEvents = errors.New("hookline: at least one event type is required")

	// ErrDisabled is returned when a delivery is requested for a
	// deactivated subscription.
	ErrDisabled = errors.New("hookline: webhook is disabled")

	// ErrInboxNotFound is returned by stores when an inbox does not exist.
	// The service layer masks it to ErrUnauthorized before it reaches
	// callers.
	ErrInboxNotFound = errors.New("hookline: inbox not found")
)

// Subscription is a webhook delivery target registered by an account.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription.
	ID id.ID `json:"id"`

	// OwnerID identifies the account that owns this subscription.
	OwnerID string `json:"owner_id"`

	// InboxID scopes the subscription to a single inbox. Empty means the
	// subscription is account-wide and matches events from any inbox.
	InboxID string `json:"inbox_id,omitempty"`

	// URL is the delivery URL. Always an absolute http or https URL.
	URL string `json:"url"`

	// Events are event type patterns this subscription receives.
	// "*" subscribes to everything.
	Events []string `json:"events"`

	// Secret is the HMAC signing secret for this subscription. Never
	// serialized; the API returns it only on create and rotate.
	Secret string `json:"-"`

	// Active indicates whether the subscription receives deliveries.
	Active bool `json:"active"`

	// SuccessCount is the lifetime count of successful delivery sequences.
	SuccessCount int64 `json:"success_count"`

	// FailureCount is the lifetime count of failed delivery sequences.
	FailureCount int64 `json:"failure_count"`

	// LastDeliveryAt is when the most recent delivery sequence finished,
	// successful or not. Nil until the first delivery.
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited.
	RateLimit int `json:"rate_limit"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Matches reports whether this subscription should receive an event of the
// given type sent to the given inbox. It does not consider Active; the
// store's Resolve filters inactive subscriptions before matching.
func (s *Subscription) Matches(inboxID, eventType string) bool {
	if s.InboxID != "" && s.InboxID != inboxID {
		return false
	}
	for _, pattern := range s.Events {
		if Match(pattern, eventType) {
			return true
		}
	}
	return false
}
