// Package store defines the aggregate persistence interface. Each
// subsystem (subscription, delivery, feature) defines its own store
// interface. The composite Store composes them all. Backends: Postgres,
// Bun, Redis, Mongo, and Memory.
package store

import (
	"context"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/subscription"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, bun, redis, mongo, memory) implements all of them.
type Store interface {
	subscription.Store
	delivery.Store
	feature.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
