package redis

// Key prefixes for primary entity storage.
const (
	prefixWebhook  = "hookline:wh:"
	prefixDelivery = "hookline:del:"
	prefixInbox    = "hookline:inbox:"
)

// Key prefixes for sorted set indexes.
const (
	zWebhookOwner = "hookline:z:wh:owner:" // + owner ID, score = created at
	zDeliveryWH   = "hookline:z:del:wh:"   // + webhook ID, score = created at
)

// Key prefixes for set indexes and counters.
const (
	sWebhookActive = "hookline:s:wh:owner:" // + ownerID + ":active"
	hWebhookStats  = "hookline:h:wh:stats:" // + webhook ID
)

// Counter hash fields.
const (
	fieldSuccess      = "success"
	fieldFailure      = "failure"
	fieldLastDelivery = "last_delivery_at"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// activeSetKey returns the set key for active webhooks of an owner.
func activeSetKey(ownerID string) string {
	return sWebhookActive + ownerID + ":active"
}

// statsKey returns the counter hash key for a webhook.
func statsKey(whID string) string {
	return hWebhookStats + whID
}
