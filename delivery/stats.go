package delivery

import (
	"context"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/webhook"
)

// Summary holds delivery figures recomputed over a bounded window of
// recent records.
type Summary struct {
	Total         int     `json:"total"`
	Delivered     int     `json:"delivered"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
}

// Stats combines a subscription with figures over its recent deliveries.
//
// Lifetime counters ride on the subscription itself and come straight from
// the store; the recent Summary is recomputed from RecentDeliveries. The
// two can disagree, since records beyond the window are invisible here, and
// they are reported side by side rather than reconciled.
type Stats struct {
	Webhook          *webhook.Subscription `json:"webhook"`
	Recent           Summary               `json:"recent"`
	RecentDeliveries []*Record             `json:"recent_deliveries"`
}

// Stats returns delivery statistics for an owned subscription.
func (e *Engine) Stats(ctx context.Context, whID id.ID, ownerID string) (*Stats, error) {
	sub, err := e.store.GetWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != ownerID {
		return nil, webhook.ErrNotFound
	}

	window := e.config.RecentWindow
	if window <= 0 {
		window = 100
	}

	recs, err := e.store.ListRecords(ctx, whID, ListOpts{Limit: window})
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Webhook:          sub,
		RecentDeliveries: recs,
	}

	var totalMs int64
	for _, r := range recs {
		if r.Success {
			st.Recent.Delivered++
		} else {
			st.Recent.Failed++
		}
		totalMs += r.DurationMs
	}
	st.Recent.Total = len(recs)
	if len(recs) > 0 {
		st.Recent.SuccessRate = float64(st.Recent.Delivered) / float64(len(recs))
		st.Recent.AvgDurationMs = totalMs / int64(len(recs))
	}

	return st, nil
}

// Deliveries returns the delivery history for an owned subscription, most
// recent first.
func (e *Engine) Deliveries(ctx context.Context, whID id.ID, ownerID string, opts ListOpts) ([]*Record, error) {
	sub, err := e.store.GetWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != ownerID {
		return nil, webhook.ErrNotFound
	}

	return e.store.ListRecords(ctx, whID, opts)
}
