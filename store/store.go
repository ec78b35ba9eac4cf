// Package store defines the composite Store interface for all Hookline
// persistence.
//
// Each subsystem declares the store interface it needs; the aggregate Store
// composes them so one backend satisfies everything.
package store

import (
	"context"

	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/webhook"
)

// Store is the aggregate persistence interface.
type Store interface {
	webhook.Store
	delivery.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
