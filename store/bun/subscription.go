package bunstore

import (
	"context"
	"fmt"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// AddOrUpdateSubscription inserts or replaces a subscription.
func (s *Store) AddOrUpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("tenant_id = EXCLUDED.tenant_id").
		Set("url = EXCLUDED.url").
		Set("secret = EXCLUDED.secret").
		Set("definitions = EXCLUDED.definitions").
		Set("headers = EXCLUDED.headers").
		Set("active = EXCLUDED.active").
		Set("rate_limit = EXCLUDED.rate_limit").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("relay/bun: upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", subID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subscription.ErrNotFound
		}
		return nil, fmt.Errorf("relay/bun: get subscription: %w", err)
	}
	return fromSubscriptionModel(m)
}

// DeleteSubscription removes a subscription by ID.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	res, err := s.db.NewDelete().
		Model((*subscriptionModel)(nil)).
		Where("id = ?", subID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("relay/bun: delete subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("relay/bun: delete subscription: %w", err)
	}
	if affected == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the subscriptions owned by the given scope.
func (s *Store) ListSubscriptions(ctx context.Context, sc scope.Scope, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models).
		Where("tenant_id = ?", sc.TenantID()).
		OrderExpr("created_at ASC")

	if opts.Active != nil {
		q = q.Where("active = ?", *opts.Active)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("relay/bun: list subscriptions: %w", err)
	}

	return convertSubscriptions(models)
}

// Resolve finds the active subscriptions matching a scope and definition.
func (s *Store) Resolve(ctx context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.db.NewSelect().Model(&models).
		Where("tenant_id = ?", sc.TenantID()).
		Where("active").
		// ?? escapes to the jsonb exists operator.
		Where("definitions ?? ?", definition).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay/bun: resolve subscriptions: %w", err)
	}

	return convertSubscriptions(models)
}

// SetActive enables or disables a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*subscriptionModel)(nil)).
		Set("active = ?", active).
		Set("updated_at = NOW()").
		Where("id = ?", subID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("relay/bun: set active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("relay/bun: set active: %w", err)
	}
	if affected == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func convertSubscriptions(models []subscriptionModel) ([]*subscription.Subscription, error) {
	out := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}
