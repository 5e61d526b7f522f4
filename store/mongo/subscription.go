package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// AddOrUpdateSubscription inserts the subscription, replacing any
// stored record with the same ID.
func (s *Store) AddOrUpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	col := s.db.Collection(colSubscriptions)

	_, err := col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("relay/mongo: upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	col := s.db.Collection(colSubscriptions)

	var m subscriptionModel
	err := col.FindOne(ctx, bson.M{"_id": subID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subscription.ErrNotFound
		}
		return nil, fmt.Errorf("relay/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

// DeleteSubscription removes a subscription by ID.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	col := s.db.Collection(colSubscriptions)

	res, err := col.DeleteOne(ctx, bson.M{"_id": subID.String()})
	if err != nil {
		return fmt.Errorf("relay/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the subscriptions owned by the given scope,
// ordered by creation time.
func (s *Store) ListSubscriptions(ctx context.Context, sc scope.Scope, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	col := s.db.Collection(colSubscriptions)

	filter := bson.M{"tenant_id": sc.TenantID()}
	if opts.Active != nil {
		filter["active"] = *opts.Active
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
		return nil, fmt.Errorf("relay/mongo: list subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var models []subscriptionModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("relay/mongo: list subscriptions decode: %w", err)
	}
	return convertSubscriptions(models)
}

// Resolve finds the active subscriptions covering a definition within a
// scope. The definitions filter relies on Mongo's multikey array match.
func (s *Store) Resolve(ctx context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	col := s.db.Collection(colSubscriptions)

	filter := bson.M{
		"tenant_id":   sc.TenantID(),
		"active":      true,
		"definitions": definition,
	}

	cursor, err := col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("relay/mongo: resolve subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var models []subscriptionModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("relay/mongo: resolve decode: %w", err)
	}
	return convertSubscriptions(models)
}

// SetActive enables or disables a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	col := s.db.Collection(colSubscriptions)

	res, err := col.UpdateOne(ctx, bson.M{"_id": subID.String()}, bson.M{
		"$set": bson.M{
			"active":     active,
			"updated_at": now(),
		},
	})
	if err != nil {
		return fmt.Errorf("relay/mongo: set active: %w", err)
	}
	if res.MatchedCount == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func convertSubscriptions(models []subscriptionModel) ([]*subscription.Subscription, error) {
	subs := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
