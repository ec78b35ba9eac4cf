// Package event defines the outbound event value and its wire encodings.
//
// An Event carries a dot-separated type name plus a payload in one of two
// explicit modes: enveloped, where the data is wrapped in the standard
// {id, event, timestamp, data} envelope, or raw, where the caller's JSON is
// sent verbatim. The mode is fixed at construction; nothing downstream
// inspects the payload shape to guess intent.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hookline/hookline/id"
)

// Mode selects how an event's payload is encoded on the wire.
type Mode string

const (
	// ModeEnvelope wraps the payload in the standard event envelope.
	ModeEnvelope Mode = "envelope"

	// ModeRaw sends the caller's JSON payload byte-for-byte. Used when a
	// subscriber expects a fixed third-party shape Hookline must not touch.
	ModeRaw Mode = "raw"
)

// Event is an outbound webhook event submitted for delivery.
type Event struct {
	// Type is the dot-separated event type name (e.g. "conversation.created").
	Type string

	mode Mode
	data any
	raw  json.RawMessage
}

// New returns an enveloped event: on the wire, data is wrapped in the
// standard {id, event, timestamp, data} envelope.
func New(eventType string, data any) *Event {
	return &Event{Type: eventType, mode: ModeEnvelope, data: data}
}

// NewRaw returns a pass-through event: payload is sent on the wire verbatim.
func NewRaw(eventType string, payload json.RawMessage) *Event {
	return &Event{Type: eventType, mode: ModeRaw, raw: payload}
}

// Mode returns the payload mode fixed at construction.
func (e *Event) Mode() Mode { return e.mode }

// Data returns the unwrapped payload of an enveloped event.
// It is nil for raw events.
func (e *Event) Data() any { return e.data }

// Raw returns the verbatim payload of a raw event. It is nil for enveloped
// events.
func (e *Event) Raw() json.RawMessage { return e.raw }

// Validate reports whether the event is sendable.
func (e *Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("event: empty event type")
	}

	if e.mode == ModeRaw && !json.Valid(e.raw) {
		return fmt.Errorf("event: raw payload for %q is not valid JSON", e.Type)
	}

	return nil
}

// Envelope is the standard wire format for enveloped events.
type Envelope struct {
	// ID is the delivery ID for this attempt sequence. Each subscription
	// fanned out from one send gets its own envelope, so the id a receiver
	// sees matches the X-Delivery-Id header and the stored delivery record.
	ID id.ID `json:"id"`

	// Event is the event type name.
	Event string `json:"event"`

	// Timestamp is the UTC time the event was accepted for delivery.
	Timestamp time.Time `json:"timestamp"`

	// Data is the caller's payload.
	Data any `json:"data"`
}

// WirePayload encodes the event as it will appear in the request body.
// Enveloped events are wrapped with the given delivery ID and timestamp;
// raw events ignore both and return the payload as-is. The returned bytes
// are what gets signed, so they must be produced exactly once per delivery
// sequence.
func (e *Event) WirePayload(deliveryID id.ID, at time.Time) ([]byte, error) {
	switch e.mode {
	case ModeRaw:
		if !json.Valid(e.raw) {
			return nil, fmt.Errorf("event: raw payload for %q is not valid JSON", e.Type)
		}

		return e.raw, nil
	default:
		body, err := json.Marshal(Envelope{
			ID:        deliveryID,
			Event:     e.Type,
			Timestamp: at.UTC(),
			Data:      e.data,
		})
		if err != nil {
			return nil, fmt.Errorf("event: encode envelope for %q: %w", e.Type, err)
		}

		return body, nil
	}
}
