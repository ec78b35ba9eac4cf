package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/webhook"
)

// CreateWebhook persists a new subscription.
func (s *Store) CreateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	m := toSubscriptionModel(sub)

	_, err := s.db.Collection(colWebhooks).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: create webhook: %w", err)
	}

	return nil
}

// GetWebhook returns a subscription by ID.
func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Subscription, error) {
	var m subscriptionModel

	err := s.db.Collection(colWebhooks).
		FindOne(ctx, bson.M{"_id": whID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookline.ErrWebhookNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get webhook: %w", err)
	}

	return fromSubscriptionModel(&m)
}

// UpdateWebhook modifies a subscription. Only mutable fields are written;
// the lifetime counters and last_delivery_at belong to IncrementStats.
func (s *Store) UpdateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	update := bson.M{"$set": bson.M{
		"inbox_id":   sub.InboxID,
		"url":        sub.URL,
		"events":     sub.Events,
		"secret":     sub.Secret,
		"active":     sub.Active,
		"rate_limit": sub.RateLimit,
		"metadata":   sub.Metadata,
		"updated_at": now(),
	}}

	res, err := s.db.Collection(colWebhooks).
		UpdateOne(ctx, bson.M{"_id": sub.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("hookline/mongo: update webhook: %w", err)
	}

	if res.MatchedCount == 0 {
		return hookline.ErrWebhookNotFound
	}

	return nil
}

// DeleteWebhook removes a subscription and all of its delivery records.
func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	_, err := s.db.Collection(colDeliveries).
		DeleteMany(ctx, bson.M{"webhook_id": whID.String()})
	if err != nil {
		return fmt.Errorf("hookline/mongo: delete webhook records: %w", err)
	}

	res, err := s.db.Collection(colWebhooks).
		DeleteOne(ctx, bson.M{"_id": whID.String()})
	if err != nil {
		return fmt.Errorf("hookline/mongo: delete webhook: %w", err)
	}

	if res.DeletedCount == 0 {
		return hookline.ErrWebhookNotFound
	}

	return nil
}

// ListWebhooks returns subscriptions for an owner, oldest first.
func (s *Store) ListWebhooks(ctx context.Context, ownerID string, opts webhook.ListOpts) ([]*webhook.Subscription, error) {
	filter := bson.M{"owner_id": ownerID}
	if opts.InboxID != "" {
		filter["inbox_id"] = opts.InboxID
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colWebhooks).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list webhooks: %w", err)
	}

	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list webhooks: %w", err)
	}

	result := make([]*webhook.Subscription, 0, len(models))

	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, sub)
	}

	return result, nil
}

// Resolve finds all active subscriptions matching an event for an owner.
// The query narrows to the owner's active subscriptions; pattern matching
// happens in Go.
func (s *Store) Resolve(ctx context.Context, ownerID, inboxID, eventType string) ([]*webhook.Subscription, error) {
	cur, err := s.db.Collection(colWebhooks).Find(ctx, bson.M{
		"owner_id": ownerID,
		"active":   true,
	})
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: resolve: %w", err)
	}

	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: resolve: %w", err)
	}

	var result []*webhook.Subscription

	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		if sub.Matches(inboxID, eventType) {
			result = append(result, sub)
		}
	}

	return result, nil
}

// SetActive activates or deactivates a subscription.
func (s *Store) SetActive(ctx context.Context, whID id.ID, active bool) error {
	res, err := s.db.Collection(colWebhooks).
		UpdateOne(ctx, bson.M{"_id": whID.String()}, bson.M{"$set": bson.M{
			"active":     active,
			"updated_at": now(),
		}})
	if err != nil {
		return fmt.Errorf("hookline/mongo: set active: %w", err)
	}

	if res.MatchedCount == 0 {
		return hookline.ErrWebhookNotFound
	}

	return nil
}

// IncrementStats bumps one lifetime counter and stamps the delivery time.
// The $inc is atomic, so concurrent sequences never lose counts.
func (s *Store) IncrementStats(ctx context.Context, whID id.ID, success bool, at time.Time) error {
	field := "success_count"
	if !success {
		field = "failure_count"
	}

	update := bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{
			"last_delivery_at": at,
			"updated_at":       now(),
		},
	}

	res, err := s.db.Collection(colWebhooks).
		UpdateOne(ctx, bson.M{"_id": whID.String()}, update)
	if err != nil {
		return fmt.Errorf("hookline/mongo: increment stats: %w", err)
	}

	if res.MatchedCount == 0 {
		return hookline.ErrWebhookNotFound
	}

	return nil
}

// InboxOwner returns the owner account of an inbox.
func (s *Store) InboxOwner(ctx context.Context, inboxID string) (string, error) {
	var m inboxModel

	err := s.db.Collection(colInboxes).
		FindOne(ctx, bson.M{"_id": inboxID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return "", hookline.ErrInboxNotFound
		}

		return "", fmt.Errorf("hookline/mongo: inbox owner: %w", err)
	}

	return m.OwnerID, nil
}

// SeedInbox registers an inbox under an owner, replacing any prior owner.
func (s *Store) SeedInbox(ctx context.Context, inboxID, ownerID string) error {
	m := &inboxModel{
		ID:        inboxID,
		OwnerID:   ownerID,
		CreatedAt: now(),
	}

	_, err := s.db.Collection(colInboxes).
		ReplaceOne(ctx, bson.M{"_id": inboxID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("hookline/mongo: seed inbox: %w", err)
	}

	return nil
}
