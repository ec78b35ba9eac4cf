package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/webhook"
)

// subscriptionModel is the JSON representation stored in Redis. Lifetime
// delivery counters are not part of this value; they live in a separate
// hash so increments stay atomic (see IncrementStats).
type subscriptionModel struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	InboxID   string            `json:"inbox_id,omitempty"`
	URL       string            `json:"url"`
	Events    []string          `json:"events"`
	Secret    string            `json:"secret"`
	Active    bool              `json:"active"`
	RateLimit int               `json:"rate_limit"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toSubscriptionModel(sub *webhook.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:        sub.ID.String(),
		OwnerID:   sub.OwnerID,
		InboxID:   sub.InboxID,
		URL:       sub.URL,
		Events:    sub.Events,
		Secret:    sub.Secret,
		Active:    sub.Active,
		RateLimit: sub.RateLimit,
		Metadata:  sub.Metadata,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
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
		ID:        whID,
		OwnerID:   m.OwnerID,
		InboxID:   m.InboxID,
		URL:       m.URL,
		Events:    m.Events,
		Secret:    m.Secret,
		Active:    m.Active,
		RateLimit: m.RateLimit,
		Metadata:  m.Metadata,
	}, nil
}

// loadStats merges the counter hash into a subscription.
func (s *Store) loadStats(ctx context.Context, sub *webhook.Subscription) error {
	fields, err := s.rdb.HGetAll(ctx, statsKey(sub.ID.String())).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: load stats: %w", err)
	}
	if v, ok := fields[fieldSuccess]; ok {
		sub.SuccessCount, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := fields[fieldFailure]; ok {
		sub.FailureCount, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := fields[fieldLastDelivery]; ok {
		if at, err := time.Parse(time.RFC3339Nano, v); err == nil {
			sub.LastDeliveryAt = &at
		}
	}
	return nil
}

// readSubscription loads a subscription by ID string, counters included.
func (s *Store) readSubscription(ctx context.Context, whID string) (*webhook.Subscription, error) {
	var m subscriptionModel
	if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
		return nil, err
	}
	sub, err := fromSubscriptionModel(&m)
	if err != nil {
		return nil, err
	}
	if err := s.loadStats(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Store) CreateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	m := toSubscriptionModel(sub)
	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create webhook: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zWebhookOwner+m.OwnerID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	if m.Active {
		pipe.SAdd(ctx, activeSetKey(m.OwnerID), m.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: create webhook indexes: %w", err)
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Subscription, error) {
	sub, err := s.readSubscription(ctx, whID.String())
	if err != nil {
		if isRedisNil(err) {
			return nil, hookline.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("hookline/redis: get webhook: %w", err)
	}
	return sub, nil
}

func (s *Store) UpdateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	key := entityKey(prefixWebhook, sub.ID.String())

	// Verify existence.
	var existing subscriptionModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isRedisNil(err) {
			return hookline.ErrWebhookNotFound
		}
		return fmt.Errorf("hookline/redis: update webhook get: %w", err)
	}

	sub.UpdatedAt = now()
	m := toSubscriptionModel(sub)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("hookline/redis: update webhook: %w", err)
	}

	// Update active set.
	if m.Active {
		s.rdb.SAdd(ctx, activeSetKey(m.OwnerID), m.ID)
	} else {
		s.rdb.SRem(ctx, activeSetKey(m.OwnerID), m.ID)
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	key := entityKey(prefixWebhook, whID.String())

	var m subscriptionModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return hookline.ErrWebhookNotFound
		}
		return fmt.Errorf("hookline/redis: delete webhook get: %w", err)
	}

	// Collect the webhook's delivery records before dropping the index.
	recordIDs, err := s.rdb.ZRange(ctx, zDeliveryWH+m.ID, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: delete webhook records: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, statsKey(m.ID))
	pipe.ZRem(ctx, zWebhookOwner+m.OwnerID, m.ID)
	pipe.SRem(ctx, activeSetKey(m.OwnerID), m.ID)
	for _, recID := range recordIDs {
		pipe.Del(ctx, entityKey(prefixDelivery, recID))
	}
	pipe.Del(ctx, zDeliveryWH+m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: delete webhook: %w", err)
	}
	return nil
}

func (s *Store) ListWebhooks(ctx context.Context, ownerID string, opts webhook.ListOpts) ([]*webhook.Subscription, error) {
	ids, err := s.rdb.ZRange(ctx, zWebhookOwner+ownerID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list webhooks: %w", err)
	}

	result := make([]*webhook.Subscription, 0, len(ids))
	for _, whID := range ids {
		sub, err := s.readSubscription(ctx, whID)
		if err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.InboxID != "" && sub.InboxID != opts.InboxID {
			continue
		}
		result = append(result, sub)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) Resolve(ctx context.Context, ownerID, inboxID, eventType string) ([]*webhook.Subscription, error) {
	ids, err := s.rdb.SMembers(ctx, activeSetKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: resolve: %w", err)
	}

	var result []*webhook.Subscription
	for _, whID := range ids {
		sub, err := s.readSubscription(ctx, whID)
		if err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if sub.Matches(inboxID, eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, whID id.ID, active bool) error {
	key := entityKey(prefixWebhook, whID.String())

	var m subscriptionModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return hookline.ErrWebhookNotFound
		}
		return fmt.Errorf("hookline/redis: set active get: %w", err)
	}

	m.Active = active
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("hookline/redis: set active: %w", err)
	}

	if active {
		s.rdb.SAdd(ctx, activeSetKey(m.OwnerID), m.ID)
	} else {
		s.rdb.SRem(ctx, activeSetKey(m.OwnerID), m.ID)
	}
	return nil
}

func (s *Store) IncrementStats(ctx context.Context, whID id.ID, success bool, at time.Time) error {
	exists, err := s.rdb.Exists(ctx, entityKey(prefixWebhook, whID.String())).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: increment stats: %w", err)
	}
	if exists == 0 {
		return hookline.ErrWebhookNotFound
	}

	field := fieldFailure
	if success {
		field = fieldSuccess
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, statsKey(whID.String()), field, 1)
	pipe.HSet(ctx, statsKey(whID.String()), fieldLastDelivery, at.UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: increment stats: %w", err)
	}
	return nil
}

func (s *Store) InboxOwner(ctx context.Context, inboxID string) (string, error) {
	owner, err := s.rdb.Get(ctx, entityKey(prefixInbox, inboxID)).Result()
	if err != nil {
		if isRedisNil(err) {
			return "", hookline.ErrInboxNotFound
		}
		return "", fmt.Errorf("hookline/redis: inbox owner: %w", err)
	}
	return owner, nil
}

// SeedInbox registers an inbox under an owner account. Inbox provisioning
// lives outside this module; callers mirror their inboxes in here.
func (s *Store) SeedInbox(ctx context.Context, inboxID, ownerID string) error {
	return s.rdb.Set(ctx, entityKey(prefixInbox, inboxID), ownerID, 0).Err()
}
