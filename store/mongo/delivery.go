package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/id"
)

// EnqueueDelivery persists a new delivery.
func (s *Store) EnqueueDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	_, err := s.db.Collection(colDeliveries).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("relay/mongo: enqueue delivery %s: already exists", m.ID)
		}
		return fmt.Errorf("relay/mongo: enqueue delivery: %w", err)
	}
	return nil
}

// DequeueDueDeliveries atomically claims up to limit due deliveries.
// Uses FindOneAndUpdate for atomic claim to prevent double-delivery.
func (s *Store) DequeueDueDeliveries(ctx context.Context, limit int) ([]*delivery.Delivery, error) {
	t := now()
	col := s.db.Collection(colDeliveries)
	deliveries := make([]*delivery.Delivery, 0, limit)

	for i := 0; i < limit; i++ {
		filter := bson.M{
			"state": bson.M{"$in": []string{
				string(delivery.StatePending),
				string(delivery.StateRetrying),
			}},
			"next_attempt_at": bson.M{"$lte": t},
		}

		update := bson.M{
			"$set": bson.M{
				"state":      string(delivery.StateSending),
				"updated_at": t,
			},
		}

		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})

		var m deliveryModel
		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				break
			}
			return nil, fmt.Errorf("relay/mongo: dequeue deliveries: %w", err)
		}

		d, convErr := fromDeliveryModel(&m)
		if convErr != nil {
			return nil, fmt.Errorf("relay/mongo: dequeue convert: %w", convErr)
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, nil
}

// GetDelivery retrieves a delivery by ID.
func (s *Store) GetDelivery(ctx context.Context, dlvID id.DeliveryID) (*delivery.Delivery, error) {
	col := s.db.Collection(colDeliveries)

	var m deliveryModel
	err := col.FindOne(ctx, bson.M{"_id": dlvID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, delivery.ErrNotFound
		}
		return nil, fmt.Errorf("relay/mongo: get delivery: %w", err)
	}
	return fromDeliveryModel(&m)
}

// UpdateDelivery persists changes to an existing delivery.
func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colDeliveries).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("relay/mongo: update delivery: %w", err)
	}
	if res.MatchedCount == 0 {
		return delivery.ErrNotFound
	}
	return nil
}

// ListDeliveriesByState returns deliveries matching the given state.
func (s *Store) ListDeliveriesByState(ctx context.Context, state delivery.State, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	col := s.db.Collection(colDeliveries)

	filter := bson.M{"state": string(state)}
	if !opts.SubscriptionID.IsNil() {
		filter["subscription_id"] = opts.SubscriptionID.String()
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: list deliveries by state: %w", err)
	}
	defer cursor.Close(ctx)

	var models []deliveryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("relay/mongo: list deliveries decode: %w", err)
	}

	deliveries := make([]*delivery.Delivery, 0, len(models))
	for i := range models {
		d, convErr := fromDeliveryModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("relay/mongo: list deliveries convert: %w", convErr)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

// RequeueStaleDeliveries returns stuck sending deliveries to pending.
// A delivery claimed longer than threshold ago belongs to a worker that
// died before persisting an outcome.
func (s *Store) RequeueStaleDeliveries(ctx context.Context, threshold time.Duration) (int, error) {
	t := now()
	filter := bson.M{
		"state":      string(delivery.StateSending),
		"updated_at": bson.M{"$lt": t.Add(-threshold)},
	}
	update := bson.M{
		"$set": bson.M{
			"state":           string(delivery.StatePending),
			"next_attempt_at": t,
			"updated_at":      t,
		},
	}

	res, err := s.db.Collection(colDeliveries).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("relay/mongo: requeue stale deliveries: %w", err)
	}
	return int(res.ModifiedCount), nil
}

// RecordAttempt appends an attempt audit record.
func (s *Store) RecordAttempt(ctx context.Context, a *delivery.Attempt) error {
	m := toAttemptModel(a)
	if _, err := s.db.Collection(colAttempts).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("relay/mongo: record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempt history for a delivery, oldest first.
func (s *Store) ListAttempts(ctx context.Context, dlvID id.DeliveryID) ([]*delivery.Attempt, error) {
	col := s.db.Collection(colAttempts)

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := col.Find(ctx, bson.M{"delivery_id": dlvID.String()}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: list attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var models []attemptModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("relay/mongo: list attempts decode: %w", err)
	}

	attempts := make([]*delivery.Attempt, 0, len(models))
	for i := range models {
		a, convErr := fromAttemptModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("relay/mongo: list attempts convert: %w", convErr)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
