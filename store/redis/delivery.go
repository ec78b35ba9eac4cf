package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// recordModel is the JSON representation stored in Redis.
type recordModel struct {
	ID         string          `json:"id"`
	WebhookID  string          `json:"webhook_id"`
	OwnerID    string          `json:"owner_id"`
	InboxID    string          `json:"inbox_id,omitempty"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempts   int             `json:"attempts"`
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Response   string          `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
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

func (s *Store) CreateRecord(ctx context.Context, rec *delivery.Record) error {
	m := toRecordModel(rec)
	if err := s.setEntity(ctx, entityKey(prefixDelivery, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create record: %w", err)
	}

	err := s.rdb.ZAdd(ctx, zDeliveryWH+m.WebhookID, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("hookline/redis: create record index: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, delID id.ID) (*delivery.Record, error) {
	var m recordModel
	if err := s.getEntity(ctx, entityKey(prefixDelivery, delID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, hookline.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("hookline/redis: get record: %w", err)
	}
	return fromRecordModel(&m)
}

func (s *Store) ListRecords(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Record, error) {
	ids, err := s.rdb.ZRange(ctx, zDeliveryWH+whID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list records: %w", err)
	}

	result := make([]*delivery.Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for most recent first
		var m recordModel
		if err := s.getEntity(ctx, entityKey(prefixDelivery, ids[i]), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.Success != nil && m.Success != *opts.Success {
			continue
		}
		rec, err := fromRecordModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}
