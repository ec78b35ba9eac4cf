// Package memory provides an in-memory Store implementation for unit
// testing and embedded use.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	hlstore "github.com/hookline/hookline/store"
	"github.com/hookline/hookline/webhook"
)

// compile-time interface check.
var _ hlstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store. All reads return
// copies, so callers can mutate results without holding a lock.
type Store struct {
	mu sync.RWMutex

	webhooks map[string]*webhook.Subscription // keyed by ID string
	records  map[string]*delivery.Record      // keyed by ID string
	inboxes  map[string]string                // inbox ID → owner ID

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		webhooks: make(map[string]*webhook.Subscription),
		records:  make(map[string]*delivery.Record),
		inboxes:  make(map[string]string),
	}
}

// SeedInbox registers an inbox under an owner account. Inbox provisioning
// lives outside this module; the in-memory store takes them preseeded.
func (s *Store) SeedInbox(inboxID, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inboxes[inboxID] = ownerID
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hookline.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

// CreateWebhook persists a new subscription.
func (s *Store) CreateWebhook(_ context.Context, sub *webhook.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.webhooks[sub.ID.String()] = copySubscription(sub)
	return nil
}

// GetWebhook returns a subscription by ID.
func (s *Store) GetWebhook(_ context.Context, whID id.ID) (*webhook.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.webhooks[whID.String()]
	if !ok {
		return nil, hookline.ErrWebhookNotFound
	}
	return copySubscription(sub), nil
}

// UpdateWebhook modifies an existing subscription. Counters stay whatever
// IncrementStats last wrote, regardless of what the caller passes in.
func (s *Store) UpdateWebhook(_ context.Context, sub *webhook.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.webhooks[sub.ID.String()]
	if !ok {
		return hookline.ErrWebhookNotFound
	}
	sub.UpdatedAt = time.Now().UTC()

	stored := copySubscription(sub)
	stored.SuccessCount = existing.SuccessCount
	stored.FailureCount = existing.FailureCount
	stored.LastDeliveryAt = existing.LastDeliveryAt
	s.webhooks[sub.ID.String()] = stored
	return nil
}

// DeleteWebhook removes a subscription and all of its delivery records.
func (s *Store) DeleteWebhook(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := whID.String()
	if _, ok := s.webhooks[key]; !ok {
		return hookline.ErrWebhookNotFound
	}
	delete(s.webhooks, key)

	for recKey, rec := range s.records {
		if rec.WebhookID.String() == key {
			delete(s.records, recKey)
		}
	}
	return nil
}

// ListWebhooks returns subscriptions for an owner, optionally filtered.
func (s *Store) ListWebhooks(_ context.Context, ownerID string, opts webhook.ListOpts) ([]*webhook.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*webhook.Subscription, 0, len(s.webhooks))
	for _, sub := range s.webhooks {
		if sub.OwnerID != ownerID {
			continue
		}
		if opts.InboxID != "" && sub.InboxID != opts.InboxID {
			continue
		}
		result = append(result, copySubscription(sub))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// Resolve finds all active subscriptions that should receive an event of
// the given type sent to the given inbox, oldest first.
func (s *Store) Resolve(_ context.Context, ownerID, inboxID, eventType string) ([]*webhook.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*webhook.Subscription
	for _, sub := range s.webhooks {
		if sub.OwnerID != ownerID || !sub.Active {
			continue
		}
		if sub.Matches(inboxID, eventType) {
			result = append(result, copySubscription(sub))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SetActive activates or deactivates a subscription.
func (s *Store) SetActive(_ context.Context, whID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.webhooks[whID.String()]
	if !ok {
		return hookline.ErrWebhookNotFound
	}
	sub.Active = active
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementStats bumps one lifetime counter and sets LastDeliveryAt. The
// whole update happens under the store lock, so concurrent delivery
// sequences never lose counts.
func (s *Store) IncrementStats(_ context.Context, whID id.ID, success bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.webhooks[whID.String()]
	if !ok {
		return hookline.ErrWebhookNotFound
	}
	if success {
		sub.SuccessCount++
	} else {
		sub.FailureCount++
	}
	sub.LastDeliveryAt = &at
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// InboxOwner returns the owner account of an inbox.
func (s *Store) InboxOwner(_ context.Context, inboxID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ownerID, ok := s.inboxes[inboxID]
	if !ok {
		return "", hookline.ErrInboxNotFound
	}
	return ownerID, nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

// CreateRecord persists a completed delivery record.
func (s *Store) CreateRecord(_ context.Context, rec *delivery.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID.String()] = copyRecord(rec)
	return nil
}

// GetRecord returns a delivery record by ID.
func (s *Store) GetRecord(_ context.Context, delID id.ID) (*delivery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[delID.String()]
	if !ok {
		return nil, hookline.ErrDeliveryNotFound
	}
	return copyRecord(rec), nil
}

// ListRecords returns delivery history for a subscription, most recent first.
func (s *Store) ListRecords(_ context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.WebhookID.String() != whID.String() {
			continue
		}
		if opts.Success != nil && rec.Success != *opts.Success {
			continue
		}
		result = append(result, copyRecord(rec))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copySubscription(sub *webhook.Subscription) *webhook.Subscription {
	cp := *sub
	cp.Events = append([]string(nil), sub.Events...)
	if sub.Metadata != nil {
		cp.Metadata = make(map[string]string, len(sub.Metadata))
		for k, v := range sub.Metadata {
			cp.Metadata[k] = v
		}
	}
	if sub.LastDeliveryAt != nil {
		at := *sub.LastDeliveryAt
		cp.LastDeliveryAt = &at
	}
	return &cp
}

func copyRecord(rec *delivery.Record) *delivery.Record {
	cp := *rec
	cp.Payload = append(json.RawMessage(nil), rec.Payload...)
	return &cp
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
