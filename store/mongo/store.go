// Package mongo provides a MongoDB-backed store using the official
// driver. Subscriptions, delivery records, and inboxes each live in
// their own collection; lifetime counters are bumped with $inc so
// concurrent delivery sequences never lose counts.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	hlstore "github.com/hookline/hookline/store"
)

// Collection name constants.
const (
	colWebhooks   = "hookline_webhooks"
	colDeliveries = "hookline_deliveries"
	colInboxes    = "hookline_inboxes"
)

// Compile-time interface check.
var _ hlstore.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a MongoDB store on an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{
		client: db.Client(),
		db:     db,
	}
}

// Open connects to MongoDB and returns a store on the named database.
func Open(uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: connect: %w", err)
	}

	return New(client.Database(dbName)), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("hookline/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from the database.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colWebhooks: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "inbox_id", Value: 1}}},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		colInboxes: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
	}
}
