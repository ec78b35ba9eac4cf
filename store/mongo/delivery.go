package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
)

// CreateRecord persists a completed delivery record.
func (s *Store) CreateRecord(ctx context.Context, rec *delivery.Record) error {
	m := toRecordModel(rec)

	_, err := s.db.Collection(colDeliveries).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: create record: %w", err)
	}

	return nil
}

// GetRecord returns a delivery record by ID.
func (s *Store) GetRecord(ctx context.Context, delID id.ID) (*delivery.Record, error) {
	var m recordModel

	err := s.db.Collection(colDeliveries).
		FindOne(ctx, bson.M{"_id": delID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookline.ErrDeliveryNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get record: %w", err)
	}

	return fromRecordModel(&m)
}

// ListRecords returns delivery history for a subscription, most recent first.
func (s *Store) ListRecords(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Record, error) {
	filter := bson.M{"webhook_id": whID.String()}
	if opts.Success != nil {
		filter["success"] = *opts.Success
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colDeliveries).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list records: %w", err)
	}

	var models []recordModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list records: %w", err)
	}

	result := make([]*delivery.Record, 0, len(models))

	for i := range models {
		rec, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, rec)
	}

	return result, nil
}
