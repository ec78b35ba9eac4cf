package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/webhook"
)

// --- Subscription models ---

type subscriptionModel struct {
	ID             string            `bson:"_id"`
	OwnerID        string            `bson:"owner_id"`
	InboxID        string            `bson:"inbox_id,omitempty"`
	URL            string            `bson:"url"`
	Events         []string          `bson:"events"`
	Secret         string            `bson:"secret"`
	Active         bool              `bson:"active"`
	SuccessCount   int64             `bson:"success_count"`
	FailureCount   int64             `bson:"failure_count"`
	LastDeliveryAt *time.Time        `bson:"last_delivery_at,omitempty"`
	RateLimit      int               `bson:"rate_limit"`
	Metadata       map[string]string `bson:"metadata,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at"`
}

func toSubscriptionModel(sub *webhook.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:             sub.ID.String(),
		OwnerID:        sub.OwnerID,
		InboxID:        sub.InboxID,
		URL:            sub.URL,
		Events:         sub.Events,
		Secret:         sub.Secret,
		Active:         sub.Active,
		SuccessCount:   sub.SuccessCount,
		FailureCount:   sub.FailureCount,
		LastDeliveryAt: sub.LastDeliveryAt,
		RateLimit:      sub.RateLimit,
		Metadata:       sub.Metadata,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*webhook.Subscription, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}

	return &webhook.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             whID,
		OwnerID:        m.OwnerID,
		InboxID:        m.InboxID,
		URL:            m.URL,
		Events:         m.Events,
		Secret:         m.Secret,
		Active:         m.Active,
		SuccessCount:   m.SuccessCount,
		FailureCount:   m.FailureCount,
		LastDeliveryAt: m.LastDeliveryAt,
		RateLimit:      m.RateLimit,
		Metadata:       m.Metadata,
	}, nil
}

// --- Delivery record models ---

type recordModel struct {
	ID         string          `bson:"_id"`
	WebhookID  string          `bson:"webhook_id"`
	OwnerID    string          `bson:"owner_id"`
	InboxID    string          `bson:"inbox_id,omitempty"`
	EventType  string          `bson:"event_type"`
	Payload    json.RawMessage `bson:"payload,omitempty"`
	Attempts   int             `bson:"attempts"`
	Success    bool            `bson:"success"`
	StatusCode int             `bson:"status_code"`
	Response   string          `bson:"response,omitempty"`
	Error      string          `bson:"error,omitempty"`
	DurationMs int64           `bson:"duration_ms"`
	CreatedAt  time.Time       `bson:"created_at"`
	UpdatedAt  time.Time       `bson:"updated_at"`
}

func toRecordModel(rec *delivery.Record) *recordModel {
	return &recordModel{
		ID:         rec.ID.String(),
		WebhookID:  rec.WebhookID.String(),
		OwnerID:    rec.OwnerID,
		InboxID:    rec.InboxID,
		EventType:  rec.EventType,
		Payload:    rec.Payload,
		Attempts:   rec.Attempts,
		Success:    rec.Success,
		StatusCode: rec.StatusCode,
		Response:   rec.Response,
		Error:      rec.Error,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) (*delivery.Record, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}

	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}

	return &delivery.Record{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         delID,
		WebhookID:  whID,
		OwnerID:    m.OwnerID,
		InboxID:    m.InboxID,
		EventType:  m.EventType,
		Payload:    m.Payload,
		Attempts:   m.Attempts,
		Success:    m.Success,
		StatusCode: m.StatusCode,
		Response:   m.Response,
		Error:      m.Error,
		DurationMs: m.DurationMs,
	}, nil
}

// --- Inbox models ---

type inboxModel struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	CreatedAt time.Time `bson:"created_at"`
}
