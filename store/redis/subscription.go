package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// AddOrUpdateSubscription stores the subscription as a Hash and indexes
// it under its tenant.
func (s *Store) AddOrUpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	subID := sub.ID.String()
	key := subKey(subID)

	// Re-owning upserts must drop the stale tenant index entry.
	oldTenant, err := s.client.HGet(ctx, key, "tenant_id").Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("relay/redis: upsert subscription get tenant: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, subToMap(sub))
	pipe.SAdd(ctx, subIDsKey, subID)
	pipe.SAdd(ctx, tenantSubsKey(sub.TenantID), subID)
	if err == nil && oldTenant != sub.TenantID {
		pipe.SRem(ctx, tenantSubsKey(oldTenant), subID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("relay/redis: upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return s.getSubscriptionByKey(ctx, subKey(subID.String()))
}

// DeleteSubscription removes a subscription and its index entries.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	sID := subID.String()
	key := subKey(sID)

	tenantID, err := s.client.HGet(ctx, key, "tenant_id").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return subscription.ErrNotFound
		}
		return fmt.Errorf("relay/redis: delete subscription get tenant: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, subIDsKey, sID)
	pipe.SRem(ctx, tenantSubsKey(tenantID), sID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("relay/redis: delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns the subscriptions owned by the given scope,
// ordered by creation time.
func (s *Store) ListSubscriptions(ctx context.Context, sc scope.Scope, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	subs, err := s.scopeSubscriptions(ctx, sc)
	if err != nil {
		return nil, err
	}

	if opts.Active != nil {
		filtered := subs[:0]
		for _, sub := range subs {
			if sub.Active == *opts.Active {
				filtered = append(filtered, sub)
			}
		}
		subs = filtered
	}

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})

	// Apply offset/limit.
	if opts.Offset >= len(subs) {
		return nil, nil
	}
	if opts.Offset > 0 {
		subs = subs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(subs) {
		subs = subs[:opts.Limit]
	}
	return subs, nil
}

// Resolve finds the active subscriptions covering a definition within a
// scope. Matching is exact: no fallback between host and tenant.
func (s *Store) Resolve(ctx context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	subs, err := s.scopeSubscriptions(ctx, sc)
	if err != nil {
		return nil, err
	}

	matched := subs[:0]
	for _, sub := range subs {
		if sub.Active && sub.Subscribed(definition) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// SetActive enables or disables a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.SubscriptionID, active bool) error {
	key := subKey(subID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("relay/redis: set active exists: %w", err)
	}
	if exists == 0 {
		return subscription.ErrNotFound
	}

	_, err = s.client.HSet(ctx, key,
		"active", strconv.FormatBool(active),
		"updated_at", nowString(),
	).Result()
	if err != nil {
		return fmt.Errorf("relay/redis: set active: %w", err)
	}
	return nil
}

// ── helpers ──

// scopeSubscriptions loads every subscription in the scope's tenant
// index.
func (s *Store) scopeSubscriptions(ctx context.Context, sc scope.Scope) ([]*subscription.Subscription, error) {
	ids, err := s.client.SMembers(ctx, tenantSubsKey(sc.TenantID())).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: list subscriptions smembers: %w", err)
	}

	subs := make([]*subscription.Subscription, 0, len(ids))
	for _, sID := range ids {
		sub, getErr := s.getSubscriptionByKey(ctx, subKey(sID))
		if getErr != nil {
			continue // skip missing
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *Store) getSubscriptionByKey(ctx context.Context, key string) (*subscription.Subscription, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("relay/redis: get subscription: %w", err)
	}
	if len(vals) == 0 {
		return nil, subscription.ErrNotFound
	}
	return mapToSubscription(vals)
}

func subToMap(sub *subscription.Subscription) map[string]interface{} {
	return map[string]interface{}{
		"id":          sub.ID.String(),
		"tenant_id":   sub.TenantID,
		"url":         sub.URL,
		"secret":      sub.Secret,
		"definitions": marshalJSON(sub.Definitions),
		"headers":     marshalJSON(sub.Headers),
		"active":      strconv.FormatBool(sub.Active),
		"rate_limit":  strconv.FormatFloat(sub.RateLimit, 'g', -1, 64),
		"created_at":  timeString(sub.CreatedAt),
		"updated_at":  timeString(sub.UpdatedAt),
	}
}

func mapToSubscription(m map[string]string) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("relay/redis: parse subscription id: %w", err)
	}

	active, _ := strconv.ParseBool(m["active"])             //nolint:errcheck // best-effort parse from trusted Redis data
	rateLimit, _ := strconv.ParseFloat(m["rate_limit"], 64) //nolint:errcheck // best-effort parse from trusted Redis data

	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:          subID,
		TenantID:    m["tenant_id"],
		URL:         m["url"],
		Secret:      m["secret"],
		Definitions: unmarshalStrings(m["definitions"]),
		Headers:     unmarshalMap(m["headers"]),
		Active:      active,
		RateLimit:   rateLimit,
	}, nil
}
