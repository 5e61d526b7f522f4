package postgres

import (
	"context"
	"fmt"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// AddOrUpdateSubscription inserts or replaces a subscription.
func (s *Store) AddOrUpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	definitions, err := marshalJSON(sub.Definitions)
	if err != nil {
		return fmt.Errorf("relay/postgres: encode definitions: %w", err)
	}
	headers, err := marshalJSON(sub.Headers)
	if err != nil {
		return fmt.Errorf("relay/postgres: encode headers: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO relay_subscriptions (
			id, tenant_id, url, secret, definitions, headers, active, rate_limit,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			url = EXCLUDED.url,
			secret = EXCLUDED.secret,
			definitions = EXCLUDED.definitions,
			headers = EXCLUDED.headers,
			active = EXCLUDED.active,
			rate_limit = EXCLUDED.rate_limit,
			updated_at = NOW()`,
		sub.ID.String(), sub.TenantID, sub.URL, sub.Secret,
		definitions, headers, sub.Active, sub.RateLimit,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM relay_subscriptions
		WHERE id = $1`,
		subID.String(),
	)

	sub, err := scanSubscription(row)
	if err != nil {
		if isNoRows(err) {
			return nil, subscription.ErrNotFound
		}
		return nil, fmt.Errorf("relay/postgres: get subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription by ID.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM relay_subscriptions WHERE id = $1`,
		subID.String(),
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the subscriptions owned by the given scope.
func (s *Store) ListSubscriptions(ctx context.Context, sc scope.Scope, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM relay_subscriptions
		WHERE tenant_id = $1`
	args := []any{sc.TenantID()}

	if opts.Active != nil {
		args = append(args, *opts.Active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}

	query += " ORDER BY created_at ASC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relay/postgres: list subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// Resolve finds the active subscriptions matching a scope and definition.
// Uses the jsonb containment operator against the definitions array so
// the GIN index serves the publish hot path.
func (s *Store) Resolve(ctx context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM relay_subscriptions
		WHERE tenant_id = $1
		  AND active
		  AND definitions ? $2
		ORDER BY created_at ASC`,
		sc.TenantID(), definition,
	)
	if err != nil {
		return nil, fmt.Errorf("relay/postgres: resolve subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

// SetActive enables or disables a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE relay_subscriptions
		SET active = $2, updated_at = NOW()
		WHERE id = $1`,
		subID.String(), active,
	)
	if err != nil {
		return fmt.Errorf("relay/postgres: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrNotFound
	}
	return nil
}
