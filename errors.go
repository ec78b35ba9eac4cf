package hookline

import (
	"errors"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/webhook"
)

// Sentinel errors returned by Hookline operations. The subsystem sentinels
// are aliased here so callers can match everything through this package.
var (
	// ErrNoStore is returned when a Hookline is created without a store.
	ErrNoStore = errors.New("hookline: store is required")

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("hookline: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("hookline: migration failed")

	// ErrWebhookNotFound is returned when a webhook cannot be found, or
	// belongs to another owner.
	ErrWebhookNotFound = webhook.ErrNotFound

	// ErrWebhookDisabled is returned when redelivering to a deactivated webhook.
	ErrWebhookDisabled = webhook.ErrDisabled

	// ErrUnauthorized is returned when a webhook targets an inbox the
	// owner does not hold.
	ErrUnauthorized = webhook.ErrUnauthorized

	// ErrInvalidURL is returned when a webhook URL fails validation.
	ErrInvalidURL = webhook.ErrInvalidURL

	// ErrInvalidEvents is returned when a webhook subscribes to no event types.
	ErrInvalidEvents = webhook.ErrInvalidEvents

	// ErrInboxNotFound is returned when an inbox cannot be found.
	ErrInboxNotFound = webhook.ErrInboxNotFound

	// ErrDeliveryNotFound is returned when a delivery record cannot be found.
	ErrDeliveryNotFound = delivery.ErrNotFound

	// ErrDeliveryFailed is returned when a delivery sequence exhausts its
	// attempts without a 2xx response.
	ErrDeliveryFailed = delivery.ErrFailed

	// ErrEventTypeNotFound is returned when an event type is not registered
	// in the catalog.
	ErrEventTypeNotFound = catalog.ErrNotFound

	// ErrPayloadValidation is returned when event data fails JSON Schema
	// validation against its registered event type.
	ErrPayloadValidation = catalog.ErrPayloadValidation
)
