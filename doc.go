// Package hookline provides an embeddable outbound webhook delivery engine.
//
// Hookline is a library — not a service. Import it into your application to
// get owner-scoped webhook subscriptions with event pattern matching, signed
// synchronous delivery with bounded retries, per-destination circuit
// breaking, and a queryable delivery history.
//
// Key features:
//   - Webhook registry with per-inbox scoping and dot-pattern event matching
//   - HMAC-SHA256 signature on every delivery
//   - Bounded retry with a fixed backoff schedule; terminal 4xx short-circuit
//   - Circuit breaker per destination, self-healing after a cooldown
//   - Delivery records with lifetime and recent-window statistics
//   - Composable store pattern with multiple backends (Bun/Postgres, SQLite,
//     Redis, MongoDB, Memory)
//
// Quick start:
//
//	hl, err := hookline.New(
//	    hookline.WithStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wh, err := hl.Webhooks().Create(ctx, webhook.Input{
//	    OwnerID: "acct_123",
//	    URL:     "https://example.com/hooks",
//	    Events:  []string{"message.*"},
//	})
//
//	results, err := hl.SendEvent(ctx, "acct_123", "",
//	    event.New("message.received", map[string]any{"text": "hi"}))
package hookline
