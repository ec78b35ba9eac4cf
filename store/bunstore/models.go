package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/webhook"
)

// --- Subscription models ---

type subscriptionModel struct {
	bun.BaseModel `bun:"table:hookline_webhooks,alias:wh"`

	ID             string            `bun:"id,pk"`
	OwnerID        string            `bun:"owner_id,notnull"`
	InboxID        string            `bun:"inbox_id"`
	URL            string            `bun:"url,notnull"`
	Events         []string          `bun:"events,type:jsonb,notnull"`
	Secret         string            `bun:"secret,notnull"`
	Active         bool              `bun:"active,notnull"`
	SuccessCount   int64             `bun:"success_count,notnull"`
	FailureCount   int64             `bun:"failure_count,notnull"`
	LastDeliveryAt *time.Time        `bun:"last_delivery_at,nullzero"`
	RateLimit      int               `bun:"rate_limit,notnull"`
	Metadata       map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
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
	bun.BaseModel `bun:"table:hookline_deliveries,alias:dlv"`

	ID         string          `bun:"id,pk"`
	WebhookID  string          `bun:"webhook_id,notnull"`
	OwnerID    string          `bun:"owner_id,notnull"`
	InboxID    string          `bun:"inbox_id"`
	EventType  string          `bun:"event_type,notnull"`
	Payload    json.RawMessage `bun:"payload,type:jsonb"`
	Attempts   int             `bun:"attempts,notnull"`
	Success    bool            `bun:"success,notnull"`
	StatusCode int             `bun:"status_code,notnull"`
	Response   string          `bun:"response"`
	Error      string          `bun:"error"`
	DurationMs int64           `bun:"duration_ms,notnull"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
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
	bun.BaseModel `bun:"table:hookline_inboxes,alias:inb"`

	ID        string    `bun:"id,pk"`
	OwnerID   string    `bun:"owner_id,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
