package delivery

import (
	"context"

	"github.com/hookline/hookline/id"
)

// Store defines the persistence contract for delivery records.
//
// Records are append-only: there is no update. A record is written exactly
// once, after its attempt sequence has finished.
type Store interface {
	// CreateRecord persists a completed delivery record.
	CreateRecord(ctx context.Context, rec *Record) error

	// GetRecord returns a delivery record by ID.
	GetRecord(ctx context.Context, delID id.ID) (*Record, error)

	// ListRecords returns delivery history for a subscription, most recent
	// first.
	ListRecords(ctx context.Context, whID id.ID, opts ListOpts) ([]*Record, error)
}
