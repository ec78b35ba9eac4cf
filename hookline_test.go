package hookline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/breaker"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/signature"
	"github.com/hookline/hookline/store/memory"
	"github.com/hookline/hookline/webhook"
)

func ctx() context.Context { return context.Background() }

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// setup builds a Hookline on a fresh in-memory store with millisecond
// backoff so retry tests don't sleep.
func setup(t *testing.T, opts ...hookline.Option) (*hookline.Hookline, *memory.Store) {
	t.Helper()

	s := memory.New()
	opts = append([]hookline.Option{
		hookline.WithStore(s),
		hookline.WithRetrySchedule([]time.Duration{time.Millisecond, 2 * time.Millisecond}),
	}, opts...)

	hl, err := hookline.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return hl, s
}

func createWebhook(t *testing.T, hl *hookline.Hookline, ownerID, url string, events []string) *webhook.Subscription {
	t.Helper()

	sub, err := hl.Webhooks().Create(ctx(), webhook.Input{
		OwnerID: ownerID,
		URL:     url,
		Events:  events,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

// countingServer returns an httptest server that counts requests and
// answers 200.
func countingServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNewRequiresStore(t *testing.T) {
	_, err := hookline.New()
	if !errors.Is(err, hookline.ErrNoStore) {
		t.Fatalf("New() without store: error = %v, want ErrNoStore", err)
	}
}

func TestSendHappyPath(t *testing.T) {
	hl, s := setup(t)
	srv, hits := countingServer(t)

	wh1 := createWebhook(t, hl, "acct-1", srv.URL, []string{"invoice.*"})
	wh2 := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", map[string]any{"amount": 100}))
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if !res.Success {
			t.Fatalf("result for %s: success = false, err = %v", res.WebhookID, res.Err)
		}
		if res.StatusCode != http.StatusOK {
			t.Fatalf("result status = %d, want 200", res.StatusCode)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}

	// One record per matched subscription.
	for _, wh := range []*webhook.Subscription{wh1, wh2} {
		recs, err := s.ListRecords(ctx(), wh.ID, delivery.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 {
			t.Fatalf("webhook %s: %d records, want 1", wh.ID, len(recs))
		}
		if !recs[0].Success {
			t.Fatalf("webhook %s: record not marked success", wh.ID)
		}

		got, err := hl.Webhooks().Get(ctx(), wh.ID, "acct-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.SuccessCount != 1 || got.FailureCount != 0 {
			t.Fatalf("webhook %s: counters = %d/%d, want 1/0", wh.ID, got.SuccessCount, got.FailureCount)
		}
		if got.LastDeliveryAt == nil {
			t.Fatalf("webhook %s: LastDeliveryAt not set", wh.ID)
		}
	}
}

func TestSendNoMatchingWebhooks(t *testing.T) {
	hl, _ := setup(t)
	srv, hits := countingServer(t)

	createWebhook(t, hl, "acct-1", srv.URL, []string{"invoice.*"})

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("order.completed", nil))
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Fatalf("expected nil results for zero matches, got %d", len(results))
	}
	if hits.Load() != 0 {
		t.Fatal("no webhook should have been called")
	}
}

func TestSendFanout(t *testing.T) {
	hl, _ := setup(t)
	srv, hits := countingServer(t)

	for i := 0; i < 5; i++ {
		createWebhook(t, hl, "acct-1", srv.URL, []string{"order.*"})
	}

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("order.completed", map[string]any{"order_id": "abc"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results (fan-out), got %d", len(results))
	}
	if got := hits.Load(); got != 5 {
		t.Fatalf("server hits = %d, want 5", got)
	}
}

func TestSendOwnerIsolation(t *testing.T) {
	hl, _ := setup(t)
	srv1, hits1 := countingServer(t)
	srv2, hits2 := countingServer(t)

	createWebhook(t, hl, "acct-1", srv1.URL, []string{"*"})
	createWebhook(t, hl, "acct-2", srv2.URL, []string{"*"})

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result (owner isolation), got %d", len(results))
	}
	if hits1.Load() != 1 {
		t.Fatal("acct-1's webhook should have been called")
	}
	if hits2.Load() != 0 {
		t.Fatal("acct-2's webhook must not see acct-1's events")
	}
}

func TestSendInboxScoping(t *testing.T) {
	hl, s := setup(t)
	srv, _ := countingServer(t)

	s.SeedInbox("inb-1", "acct-1")
	s.SeedInbox("inb-2", "acct-1")

	scoped, err := hl.Webhooks().Create(ctx(), webhook.Input{
		OwnerID: "acct-1",
		InboxID: "inb-1",
		URL:     srv.URL,
		Events:  []string{"*"},
	})
	if err != nil {
		t.Fatal(err)
	}
	unscoped := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})
	if _, err := hl.Webhooks().Create(ctx(), webhook.Input{
		OwnerID: "acct-1",
		InboxID: "inb-2",
		URL:     srv.URL,
		Events:  []string{"*"},
	}); err != nil {
		t.Fatal(err)
	}

	// Inbox send reaches the matching scoped webhook plus owner-wide ones.
	results, err := hl.SendEvent(ctx(), "acct-1", "inb-1", event.New("message.received", nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("inbox send: expected 2 results, got %d", len(results))
	}
	seen := map[string]bool{}
	for _, res := range results {
		seen[res.WebhookID.String()] = true
	}
	if !seen[scoped.ID.String()] || !seen[unscoped.ID.String()] {
		t.Fatalf("inbox send hit wrong webhooks: %v", seen)
	}

	// Owner-wide send skips inbox-scoped webhooks entirely.
	results, err = hl.SendEvent(ctx(), "acct-1", "", event.New("message.received", nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].WebhookID != unscoped.ID {
		t.Fatalf("owner-wide send: expected only the unscoped webhook, got %d results", len(results))
	}
}

func TestSendSchemaValidation(t *testing.T) {
	cat := catalog.New()
	if err := cat.Register(catalog.Definition{
		Name: "invoice.created",
		Schema: mustJSON(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount": map[string]any{"type": "number"},
			},
			"required": []any{"amount"},
		}),
	}); err != nil {
		t.Fatal(err)
	}

	hl, s := setup(t, hookline.WithCatalog(cat))
	srv, hits := countingServer(t)
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	// Missing required field: rejected before any webhook is contacted.
	_, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", map[string]any{"other": "x"}))
	if !errors.Is(err, hookline.ErrPayloadValidation) {
		t.Fatalf("expected ErrPayloadValidation, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("invalid event must not reach the webhook")
	}
	recs, _ := s.ListRecords(ctx(), wh.ID, delivery.ListOpts{})
	if len(recs) != 0 {
		t.Fatalf("invalid event must leave no delivery records, got %d", len(recs))
	}

	// Valid payload goes through.
	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", map[string]any{"amount": 42.5}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("valid event should deliver, got %+v", results)
	}

	// Types the catalog has never heard of pass through unvalidated.
	if _, err := hl.SendEvent(ctx(), "acct-1", "", event.New("unregistered.type", map[string]any{})); err != nil {
		t.Fatalf("unregistered type should be allowed, got %v", err)
	}
}

func TestSendRawPayload(t *testing.T) {
	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = readBody(r)
		gotSig = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hl, _ := setup(t)
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	raw := json.RawMessage(`{"object":"whatsapp_business_account","entry":[]}`)
	results, err := hl.SendEvent(ctx(), "acct-1", "", event.NewRaw("message.received", raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("expected 1 successful result, got %+v", results)
	}

	// Raw payloads hit the wire byte-for-byte, no envelope.
	if string(gotBody) != string(raw) {
		t.Fatalf("body = %s, want verbatim payload", gotBody)
	}

	sub, err := hl.Webhooks().Get(ctx(), wh.ID, "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if !signature.Verify(gotBody, sub.Secret, gotSig) {
		t.Fatal("signature does not verify against the raw body")
	}
}

func TestRedeliver(t *testing.T) {
	hl, s := setup(t)
	srv, hits := countingServer(t)
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", map[string]any{"v": 1}))
	if err != nil {
		t.Fatal(err)
	}

	res, err := hl.Redeliver(ctx(), results[0].DeliveryID, "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("redeliver failed: %+v", res)
	}
	if res.DeliveryID == results[0].DeliveryID {
		t.Fatal("redelivery must get a fresh delivery ID")
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
	recs, _ := s.ListRecords(ctx(), wh.ID, delivery.ListOpts{})
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after redelivery, got %d", len(recs))
	}

	// Wrong owner cannot replay someone else's delivery.
	if _, err := hl.Redeliver(ctx(), results[0].DeliveryID, "acct-2"); !errors.Is(err, hookline.ErrDeliveryNotFound) {
		t.Fatalf("cross-owner redeliver: error = %v, want ErrDeliveryNotFound", err)
	}
}

func TestStats(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hl, _ := setup(t)
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	for i := 0; i < 2; i++ {
		if _, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil)); err != nil {
			t.Fatal(err)
		}
	}
	fail.Store(true)
	if _, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil)); err != nil {
		t.Fatal(err)
	}

	stats, err := hl.Stats(ctx(), wh.ID, "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Webhook.SuccessCount != 2 || stats.Webhook.FailureCount != 1 {
		t.Fatalf("lifetime counters = %d/%d, want 2/1", stats.Webhook.SuccessCount, stats.Webhook.FailureCount)
	}
	if stats.Recent.Total != 3 || stats.Recent.Delivered != 2 || stats.Recent.Failed != 1 {
		t.Fatalf("recent summary = %+v, want 3 total, 2 delivered, 1 failed", stats.Recent)
	}
	if len(stats.RecentDeliveries) != 3 {
		t.Fatalf("expected 3 recent deliveries, got %d", len(stats.RecentDeliveries))
	}

	if _, err := hl.Stats(ctx(), wh.ID, "acct-2"); !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("cross-owner stats: error = %v, want ErrWebhookNotFound", err)
	}
}

func TestRetryConfigApplies(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hl, _ := setup(t, hookline.WithMaxRetries(2))
	createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Success {
		t.Fatal("expected failure against a 500 server")
	}
	// Exactly the configured two attempts, not the default three.
	if results[0].Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", results[0].Attempts)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
}

func TestBreakerGuardsDeliveries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := breaker.New(breaker.Config{
		FailureThreshold: 1,
		FailureWindow:    time.Minute,
		ResetTimeout:     time.Minute,
	}, nil)

	hl, s := setup(t, hookline.WithBreaker(reg), hookline.WithMaxRetries(1))
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	// First send fails and trips the breaker.
	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Success {
		t.Fatal("expected first send to fail")
	}

	// Second send is rejected without contacting the webhook or writing
	// a record.
	results, err = hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, breaker.ErrOpen) {
		t.Fatalf("expected ErrOpen result, got %v", results[0].Err)
	}
	recs, _ := s.ListRecords(ctx(), wh.ID, delivery.ListOpts{})
	if len(recs) != 1 {
		t.Fatalf("breaker rejection must not write records, got %d", len(recs))
	}

	// Reset through the facade re-admits traffic.
	hl.Breakers().Reset(wh.ID.String())
	results, err = hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}
	if errors.Is(results[0].Err, breaker.ErrOpen) {
		t.Fatal("breaker should admit after reset")
	}
}

func TestInactiveWebhookSkipped(t *testing.T) {
	hl, _ := setup(t)
	srv, hits := countingServer(t)
	wh := createWebhook(t, hl, "acct-1", srv.URL, []string{"*"})

	if err := hl.Webhooks().SetActive(ctx(), wh.ID, "acct-1", false); err != nil {
		t.Fatal(err)
	}

	results, err := hl.SendEvent(ctx(), "acct-1", "", event.New("invoice.created", nil))
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Fatalf("disabled webhook must not match, got %d results", len(results))
	}
	if hits.Load() != 0 {
		t.Fatal("disabled webhook must not be called")
	}
}

func TestClose(t *testing.T) {
	hl, s := setup(t)

	if err := hl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, hookline.ErrStoreClosed) {
		t.Fatalf("Ping after Close: error = %v, want ErrStoreClosed", err)
	}
}

func readBody(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}
