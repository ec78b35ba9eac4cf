// Package delivery implements outbound webhook delivery: the HTTP sender,
// the retry policy, and the engine that fans an event out to matching
// subscriptions, runs each attempt sequence to completion, and records the
// outcome.
package delivery

import (
	"encoding/json"
	"errors"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// Sentinel errors for delivery operations.
var (
	// ErrNotFound is returned when a delivery record cannot be found or is
	// not owned by the requesting account.
	ErrNotFound = errors.New("hookline: delivery not found")

	// ErrFailed is wrapped into a Result's Err when an attempt sequence
	// ends without a 2xx response.
	ErrFailed = errors.New("hookline: delivery failed")
)

// Record is the immutable log entry for one completed attempt sequence.
// Exactly one Record is written per sequence, whether it succeeded or
// exhausted its attempts; a sequence that never started (circuit open)
// writes none.
type Record struct {
	entity.Entity

	// ID is the delivery ID. It is also the envelope id receivers saw on
	// the wire and the X-Delivery-Id header value.
	ID id.ID `json:"id"`

	// WebhookID references the subscription this delivery targeted.
	WebhookID id.ID `json:"webhook_id"`

	// OwnerID is the account that owned the subscription at send time.
	OwnerID string `json:"owner_id"`

	// InboxID is the inbox the event was sent to. Empty for account-wide
	// sends.
	InboxID string `json:"inbox_id,omitempty"`

	// EventType is the event type name delivered.
	EventType string `json:"event_type"`

	// Payload is the wire payload exactly as sent (and signed).
	Payload json.RawMessage `json:"payload"`

	// Attempts is how many HTTP attempts the sequence made (1..MaxRetries).
	Attempts int `json:"attempts"`

	// Success reports whether the sequence ended with a 2xx response.
	Success bool `json:"success"`

	// StatusCode is the HTTP status of the last attempt. 0 means the last
	// attempt failed in transport (timeout, refused connection, DNS).
	StatusCode int `json:"status_code"`

	// Response is the last response body, truncated for storage.
	Response string `json:"response,omitempty"`

	// Error is the last attempt's error message. Empty on success.
	Error string `json:"error,omitempty"`

	// DurationMs is the wall time of the whole sequence including backoff
	// waits between attempts.
	DurationMs int64 `json:"duration_ms"`
}

// ListOpts configures filtering and pagination for delivery record listing.
type ListOpts struct {
	Offset int
	Limit  int

	// Success filters by outcome when non-nil.
	Success *bool
}
