package webhook

// Input is the creation payload for subscriptions.
type Input struct {
	// OwnerID identifies the account that owns this subscription.
	OwnerID string `json:"owner_id"`

	// InboxID scopes the subscription to a single inbox. Empty means
	// account-wide. When set, the owner must actually own the inbox.
	InboxID string `json:"inbox_id,omitempty"`

	// URL is the delivery URL. Must be an absolute http or https URL.
	URL string `json:"url"`

	// Events are event type patterns. At least one is required.
	Events []string `json:"events"`

	// Secret is the HMAC signing secret. Auto-generated if empty.
	Secret string `json:"secret,omitempty"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited.
	RateLimit int `json:"rate_limit,omitempty"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UpdateInput is the partial update payload for subscriptions. Nil pointer
// fields keep their current value. The signing secret is not client-settable;
// use RotateSecret.
type UpdateInput struct {
	// URL replaces the delivery URL when non-nil. Revalidated.
	URL *string `json:"url,omitempty"`

	// InboxID rescopes the subscription when non-nil. A non-empty value
	// re-checks inbox ownership; an empty value makes it account-wide.
	InboxID *string `json:"inbox_id,omitempty"`

	// Events replaces the event type patterns when non-nil. Must be
	// non-empty.
	Events []string `json:"events,omitempty"`

	// Active toggles delivery when non-nil.
	Active *bool `json:"active,omitempty"`

	// RateLimit replaces the rate limit when non-nil.
	RateLimit *int `json:"rate_limit,omitempty"`

	// Metadata replaces the metadata map when non-nil.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListOpts configures filtering and pagination for subscription listing.
type ListOpts struct {
	// InboxID filters to subscriptions scoped to one inbox.
	// Empty returns all of the owner's subscriptions.
	InboxID string

	Offset int
	Limit  int
}
