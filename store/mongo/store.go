package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/subscription"
)

// Collection name constants.
const (
	colSubscriptions = "relay_subscriptions"
	colDeliveries    = "relay_deliveries"
	colAttempts      = "relay_attempts"
	colFeatureGrants = "relay_feature_grants"
)

// Compile-time interface checks.
var (
	_ subscription.Store = (*Store)(nil)
	_ delivery.Store     = (*Store)(nil)
	_ feature.Store      = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements the composite store.Store interface backed by
// MongoDB. The caller owns the client lifecycle; Store never closes it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// New creates a new MongoDB-backed store around a database handle.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Database returns the underlying database handle for advanced usage.
func (s *Store) Database() *mongod.Database { return s.db }

// Migrate creates indexes for all relay collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("relay/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op — the caller owns the client lifecycle.
func (s *Store) Close() error { return nil }

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}

// migrationIndexes returns the index definitions for all relay collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colSubscriptions: {
			// Resolve index: scope + active, with a multikey index on
			// the definition names.
			{Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "active", Value: 1},
			}},
			{Keys: bson.D{{Key: "definitions", Value: 1}}},
		},
		colDeliveries: {
			// Dequeue index: state + next_attempt_at.
			{Keys: bson.D{
				{Key: "state", Value: 1},
				{Key: "next_attempt_at", Value: 1},
			}},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}}},
		},
		colAttempts: {
			{Keys: bson.D{
				{Key: "delivery_id", Value: 1},
				{Key: "created_at", Value: 1},
			}},
		},
		colFeatureGrants: {
			// Unique compound index on (tenant_id, feature).
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "feature", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
