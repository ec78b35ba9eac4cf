package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/webhook"
)

func ctx() context.Context { return context.Background() }

func newSub(ownerID string) *webhook.Subscription {
	return &webhook.Subscription{
		Entity:  entity.New(),
		ID:      id.NewWebhookID(),
		OwnerID: ownerID,
		URL:     "https://example.com/hook",
		Events:  []string{"message.received"},
		Secret:  "whsec_test_secret_1234567890abcdef1234567890abcdef",
		Active:  true,
	}
}

func newRecord(sub *webhook.Subscription, success bool) *delivery.Record {
	return &delivery.Record{
		Entity:     entity.New(),
		ID:         id.NewDeliveryID(),
		WebhookID:  sub.ID,
		OwnerID:    sub.OwnerID,
		EventType:  "message.received",
		Payload:    json.RawMessage(`{"hello":"world"}`),
		Attempts:   1,
		Success:    success,
		StatusCode: 200,
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, hookline.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

func TestWebhookCRUD(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWebhook(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != sub.URL {
		t.Fatalf("got URL %q", got.URL)
	}

	_, err = s.GetWebhook(ctx(), id.NewWebhookID())
	if !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}

	got.URL = "https://example.com/hook2"
	if err := s.UpdateWebhook(ctx(), got); err != nil {
		t.Fatal(err)
	}

	updated, _ := s.GetWebhook(ctx(), sub.ID)
	if updated.URL != "https://example.com/hook2" {
		t.Fatalf("expected updated URL, got %q", updated.URL)
	}
	if !updated.UpdatedAt.After(sub.UpdatedAt) {
		t.Fatal("expected UpdatedAt to advance on update")
	}

	if err := s.UpdateWebhook(ctx(), newSub("acct-1")); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}

	if err := s.DeleteWebhook(ctx(), sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWebhook(ctx(), sub.ID); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound after delete, got %v", err)
	}
	if err := s.DeleteWebhook(ctx(), sub.ID); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestWebhookDeleteCascadesRecords(t *testing.T) {
	s := New()
	sub := newSub("acct-1")
	other := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateWebhook(ctx(), other); err != nil {
		t.Fatal(err)
	}

	rec := newRecord(sub, true)
	otherRec := newRecord(other, true)
	if err := s.CreateRecord(ctx(), rec); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRecord(ctx(), otherRec); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteWebhook(ctx(), sub.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetRecord(ctx(), rec.ID); !errors.Is(err, hookline.ErrDeliveryNotFound) {
		t.Fatalf("expected cascade delete of records, got %v", err)
	}

	// The other webhook's records survive.
	if _, err := s.GetRecord(ctx(), otherRec.ID); err != nil {
		t.Fatal(err)
	}
}

func TestWebhookList(t *testing.T) {
	s := New()

	for range 3 {
		if err := s.CreateWebhook(ctx(), newSub("acct-1")); err != nil {
			t.Fatal(err)
		}
	}
	scoped := newSub("acct-1")
	scoped.InboxID = "inbox-1"
	if err := s.CreateWebhook(ctx(), scoped); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateWebhook(ctx(), newSub("acct-2")); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListWebhooks(ctx(), "acct-1", webhook.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 webhooks for acct-1, got %d", len(list))
	}

	// Oldest first.
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.Before(list[i-1].CreatedAt) {
			t.Fatal("expected list ordered oldest first")
		}
	}

	list, _ = s.ListWebhooks(ctx(), "acct-1", webhook.ListOpts{InboxID: "inbox-1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 inbox-scoped webhook, got %d", len(list))
	}

	list, _ = s.ListWebhooks(ctx(), "acct-1", webhook.ListOpts{Offset: 1, Limit: 2})
	if len(list) != 2 {
		t.Fatalf("expected 2 webhooks with pagination, got %d", len(list))
	}

	list, _ = s.ListWebhooks(ctx(), "acct-3", webhook.ListOpts{})
	if len(list) != 0 {
		t.Fatalf("expected 0 webhooks for unknown owner, got %d", len(list))
	}
}

func TestResolve(t *testing.T) {
	s := New()

	global := newSub("acct-1")
	global.Events = []string{"*"}
	scoped := newSub("acct-1")
	scoped.InboxID = "inbox-1"
	inactive := newSub("acct-1")
	inactive.Active = false
	foreign := newSub("acct-2")
	noMatch := newSub("acct-1")
	noMatch.Events = []string{"conversation.*"}

	for _, sub := range []*webhook.Subscription{global, scoped, inactive, foreign, noMatch} {
		if err := s.CreateWebhook(ctx(), sub); err != nil {
			t.Fatal(err)
		}
	}

	subs, err := s.Resolve(ctx(), "acct-1", "inbox-1", "message.received")
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(subs))
	}

	// Oldest first: the global subscription was created before the scoped one.
	if subs[0].ID != global.ID || subs[1].ID != scoped.ID {
		t.Fatal("expected resolution in creation order")
	}

	// A different inbox excludes the scoped subscription.
	subs, _ = s.Resolve(ctx(), "acct-1", "inbox-2", "message.received")
	if len(subs) != 1 {
		t.Fatalf("expected 1 match for inbox-2, got %d", len(subs))
	}

	// Pattern-only subscription matches its prefix.
	subs, _ = s.Resolve(ctx(), "acct-1", "", "conversation.started")
	if len(subs) != 2 {
		t.Fatalf("expected global + pattern match, got %d", len(subs))
	}
}

func TestSetActive(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	if err := s.SetActive(ctx(), sub.ID, false); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetWebhook(ctx(), sub.ID)
	if got.Active {
		t.Fatal("expected inactive")
	}

	if err := s.SetActive(ctx(), sub.ID, true); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetWebhook(ctx(), sub.ID)
	if !got.Active {
		t.Fatal("expected active")
	}

	if err := s.SetActive(ctx(), id.NewWebhookID(), true); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestIncrementStats(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	at := time.Now().UTC()
	if err := s.IncrementStats(ctx(), sub.ID, true, at); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementStats(ctx(), sub.ID, false, at.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWebhook(ctx(), sub.ID)
	if got.SuccessCount != 1 || got.FailureCount != 1 {
		t.Fatalf("counters: success=%d failure=%d", got.SuccessCount, got.FailureCount)
	}
	if got.LastDeliveryAt == nil || !got.LastDeliveryAt.Equal(at.Add(time.Second)) {
		t.Fatalf("LastDeliveryAt = %v", got.LastDeliveryAt)
	}

	if err := s.IncrementStats(ctx(), id.NewWebhookID(), true, at); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestUpdateWebhookPreservesCounters(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementStats(ctx(), sub.ID, true, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	// Update with a stale struct that still carries zero counters.
	sub.URL = "https://example.com/v2"
	if err := s.UpdateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWebhook(ctx(), sub.ID)
	if got.URL != "https://example.com/v2" {
		t.Fatal("update not applied")
	}
	if got.SuccessCount != 1 || got.LastDeliveryAt == nil {
		t.Fatalf("counters clobbered by update: %+v", got)
	}
}

func TestIncrementStatsConcurrent(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			_ = s.IncrementStats(ctx(), sub.ID, success, time.Now().UTC())
		}(i%2 == 0)
	}
	wg.Wait()

	got, _ := s.GetWebhook(ctx(), sub.ID)
	if got.SuccessCount+got.FailureCount != n {
		t.Fatalf("lost counts: success=%d failure=%d", got.SuccessCount, got.FailureCount)
	}
}

func TestInboxOwner(t *testing.T) {
	s := New()
	s.SeedInbox("inbox-1", "acct-1")

	owner, err := s.InboxOwner(ctx(), "inbox-1")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "acct-1" {
		t.Fatalf("owner = %q", owner)
	}

	_, err = s.InboxOwner(ctx(), "inbox-unknown")
	if !errors.Is(err, hookline.ErrInboxNotFound) {
		t.Fatalf("expected ErrInboxNotFound, got %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	sub := newSub("acct-1")

	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWebhook(ctx(), sub.ID)
	got.URL = "https://tampered.example.com"
	got.Events[0] = "tampered.event"

	fresh, _ := s.GetWebhook(ctx(), sub.ID)
	if fresh.URL != sub.URL {
		t.Fatal("mutating a returned subscription leaked into the store")
	}
	if fresh.Events[0] != "message.received" {
		t.Fatal("mutating a returned events slice leaked into the store")
	}
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

func TestRecordCreateAndGet(t *testing.T) {
	s := New()
	sub := newSub("acct-1")
	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	rec := newRecord(sub, true)
	if err := s.CreateRecord(ctx(), rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRecord(ctx(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.WebhookID != sub.ID {
		t.Fatalf("WebhookID = %v", got.WebhookID)
	}
	if string(got.Payload) != `{"hello":"world"}` {
		t.Fatalf("Payload = %s", got.Payload)
	}

	_, err = s.GetRecord(ctx(), id.NewDeliveryID())
	if !errors.Is(err, hookline.ErrDeliveryNotFound) {
		t.Fatalf("expected ErrDeliveryNotFound, got %v", err)
	}
}

func TestListRecords(t *testing.T) {
	s := New()
	sub := newSub("acct-1")
	if err := s.CreateWebhook(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC()
	for i := range 5 {
		rec := newRecord(sub, i%2 == 0)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.CreateRecord(ctx(), rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.ListRecords(ctx(), sub.ID, delivery.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}

	// Most recent first.
	for i := 1; i < len(recs); i++ {
		if recs[i].CreatedAt.After(recs[i-1].CreatedAt) {
			t.Fatal("expected records ordered most recent first")
		}
	}

	success := true
	recs, _ = s.ListRecords(ctx(), sub.ID, delivery.ListOpts{Success: &success})
	if len(recs) != 3 {
		t.Fatalf("expected 3 successful records, got %d", len(recs))
	}

	recs, _ = s.ListRecords(ctx(), sub.ID, delivery.ListOpts{Limit: 2})
	if len(recs) != 2 {
		t.Fatalf("expected 2 records with limit, got %d", len(recs))
	}
	if !recs[0].CreatedAt.Equal(base.Add(4 * time.Second)) {
		t.Fatal("limit should keep the most recent records")
	}

	recs, _ = s.ListRecords(ctx(), id.NewWebhookID(), delivery.ListOpts{})
	if len(recs) != 0 {
		t.Fatalf("expected 0 records for unknown webhook, got %d", len(recs))
	}
}
