package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
)

func TestWirePayloadEnvelope(t *testing.T) {
	evt := event.New("conversation.created", map[string]any{"conversation_id": 42})
	deliveryID := id.NewDeliveryID()
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	body, err := evt.WirePayload(deliveryID, at)
	if err != nil {
		t.Fatalf("WirePayload() error: %v", err)
	}

	var env struct {
		ID        string          `json:"id"`
		Event     string          `json:"event"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if env.ID != deliveryID.String() {
		t.Errorf("envelope id = %q, want %q", env.ID, deliveryID.String())
	}
	if env.Event != "conversation.created" {
		t.Errorf("envelope event = %q, want %q", env.Event, "conversation.created")
	}
	if !env.Timestamp.Equal(at) {
		t.Errorf("envelope timestamp = %v, want %v", env.Timestamp, at)
	}
	if string(env.Data) != `{"conversation_id":42}` {
		t.Errorf("envelope data = %s", env.Data)
	}
}

func TestWirePayloadRaw(t *testing.T) {
	raw := json.RawMessage(`{"custom":"shape","nested":{"n":1}}`)
	evt := event.NewRaw("message.created", raw)

	body, err := evt.WirePayload(id.NewDeliveryID(), time.Now())
	if err != nil {
		t.Fatalf("WirePayload() error: %v", err)
	}

	// Raw mode must pass the payload through byte-for-byte, no envelope.
	if string(body) != string(raw) {
		t.Errorf("raw payload altered: got %s, want %s", body, raw)
	}
}

func TestWirePayloadRawInvalidJSON(t *testing.T) {
	evt := event.NewRaw("message.created", json.RawMessage(`{"broken":`))

	if _, err := evt.WirePayload(id.NewDeliveryID(), time.Now()); err == nil {
		t.Error("WirePayload() accepted invalid raw JSON")
	}
}

func TestModeIsExplicit(t *testing.T) {
	// A raw payload that happens to look like an envelope stays raw.
	lookalike := json.RawMessage(`{"id":"del_x","event":"fake","timestamp":"2025-01-01T00:00:00Z","data":{}}`)
	evt := event.NewRaw("message.created", lookalike)

	if evt.Mode() != event.ModeRaw {
		t.Fatalf("Mode() = %q, want %q", evt.Mode(), event.ModeRaw)
	}

	body, err := evt.WirePayload(id.NewDeliveryID(), time.Now())
	if err != nil {
		t.Fatalf("WirePayload() error: %v", err)
	}
	if string(body) != string(lookalike) {
		t.Error("envelope-shaped raw payload was not passed through verbatim")
	}

	if event.New("x", nil).Mode() != event.ModeEnvelope {
		t.Error("New() did not produce an enveloped event")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		evt     *event.Event
		wantErr bool
	}{
		{"enveloped ok", event.New("conversation.created", map[string]any{"a": 1}), false},
		{"enveloped nil data ok", event.New("conversation.created", nil), false},
		{"raw ok", event.NewRaw("message.created", json.RawMessage(`{}`)), false},
		{"empty type", event.New("", nil), true},
		{"raw invalid json", event.NewRaw("message.created", json.RawMessage(`nope{`)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.evt.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
