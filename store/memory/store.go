// Package memory provides a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/feature"
	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
	"github.com/xraph/relay/subscription"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle in tests would be fine, but
// keep the same per-subsystem pattern as the other backends).
var (
	_ subscription.Store = (*Store)(nil)
	_ delivery.Store     = (*Store)(nil)
	_ feature.Store      = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription
	deliveries    map[string]*delivery.Delivery
	attempts      map[string][]*delivery.Attempt // key: delivery ID
	grants        map[string]map[string]bool     // tenant -> feature -> granted
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
		deliveries:    make(map[string]*delivery.Delivery),
		attempts:      make(map[string][]*delivery.Attempt),
		grants:        make(map[string]map[string]bool),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Subscription Store
// ──────────────────────────────────────────────────

// AddOrUpdateSubscription inserts or replaces a subscription.
func (m *Store) AddOrUpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.ID.String()] = sub.Clone()
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (m *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subID.String()]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub.Clone(), nil
}

// DeleteSubscription removes a subscription by ID.
func (m *Store) DeleteSubscription(_ context.Context, subID id.SubscriptionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subID.String()
	if _, ok := m.subscriptions[key]; !ok {
		return subscription.ErrNotFound
	}
	delete(m.subscriptions, key)
	return nil
}

// ListSubscriptions returns the subscriptions owned by the given scope.
func (m *Store) ListSubscriptions(_ context.Context, sc scope.Scope, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*subscription.Subscription, 0)
	for _, sub := range m.subscriptions {
		if sub.Scope() != sc {
			continue
		}
		if opts.Active != nil && sub.Active != *opts.Active {
			continue
		}
		matched = append(matched, sub)
	}

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})

	matched = paginate(matched, opts.Offset, opts.Limit)

	out := make([]*subscription.Subscription, len(matched))
	for i, sub := range matched {
		out[i] = sub.Clone()
	}
	return out, nil
}

// Resolve finds the active subscriptions matching a scope and definition.
func (m *Store) Resolve(_ context.Context, sc scope.Scope, definition string) ([]*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*subscription.Subscription, 0)
	for _, sub := range m.subscriptions {
		if sub.Active && sub.Scope() == sc && sub.Subscribed(definition) {
			matched = append(matched, sub)
		}
	}

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})

	out := make([]*subscription.Subscription, len(matched))
	for i, sub := range matched {
		out[i] = sub.Clone()
	}
	return out, nil
}

// SetActive enables or disables a subscription.
func (m *Store) SetActive(_ context.Context, subID id.SubscriptionID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	sub.Active = active
	sub.Touch()
	return nil
}

// ──────────────────────────────────────────────────
// Delivery Store
// ──────────────────────────────────────────────────

// EnqueueDelivery persists a new delivery in pending state.
func (m *Store) EnqueueDelivery(_ context.Context, d *delivery.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[d.ID.String()] = d.Clone()
	return nil
}

// DequeueDueDeliveries atomically claims up to limit due deliveries,
// sets them to sending, and returns them.
func (m *Store) DequeueDueDeliveries(_ context.Context, limit int) ([]*delivery.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	candidates := make([]*delivery.Delivery, 0)
	for _, d := range m.deliveries {
		if d.State != delivery.StatePending && d.State != delivery.StateRetrying {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[k].NextAttemptAt)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*delivery.Delivery, len(candidates))
	for i, d := range candidates {
		d.State = delivery.StateSending
		d.UpdatedAt = now
		out[i] = d.Clone()
	}
	return out, nil
}

// GetDelivery retrieves a delivery by ID.
func (m *Store) GetDelivery(_ context.Context, dlvID id.DeliveryID) (*delivery.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deliveries[dlvID.String()]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	return d.Clone(), nil
}

// UpdateDelivery persists changes to an existing delivery.
func (m *Store) UpdateDelivery(_ context.Context, d *delivery.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := d.ID.String()
	if _, ok := m.deliveries[key]; !ok {
		return delivery.ErrNotFound
	}
	m.deliveries[key] = d.Clone()
	return nil
}

// ListDeliveriesByState returns deliveries matching the given state.
func (m *Store) ListDeliveriesByState(_ context.Context, state delivery.State, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*delivery.Delivery, 0)
	for _, d := range m.deliveries {
		if d.State != state {
			continue
		}
		if !opts.SubscriptionID.IsNil() && d.SubscriptionID != opts.SubscriptionID {
			continue
		}
		matched = append(matched, d)
	}

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})

	matched = paginate(matched, opts.Offset, opts.Limit)

	out := make([]*delivery.Delivery, len(matched))
	for i, d := range matched {
		out[i] = d.Clone()
	}
	return out, nil
}

// RequeueStaleDeliveries returns stuck sending deliveries to pending.
func (m *Store) RequeueStaleDeliveries(_ context.Context, threshold time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	cutoff := now.Add(-threshold)

	requeued := 0
	for _, d := range m.deliveries {
		if d.State != delivery.StateSending || !d.UpdatedAt.Before(cutoff) {
			continue
		}
		d.State = delivery.StatePending
		d.NextAttemptAt = now
		d.UpdatedAt = now
		requeued++
	}
	return requeued, nil
}

// RecordAttempt appends an attempt audit record.
func (m *Store) RecordAttempt(_ context.Context, a *delivery.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	key := a.DeliveryID.String()
	m.attempts[key] = append(m.attempts[key], &cp)
	return nil
}

// ListAttempts returns the attempt history for a delivery, oldest first.
func (m *Store) ListAttempts(_ context.Context, dlvID id.DeliveryID) ([]*delivery.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.attempts[dlvID.String()]
	out := make([]*delivery.Attempt, len(history))
	for i, a := range history {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Feature Store
// ──────────────────────────────────────────────────

// SetGrant records whether a tenant holds a feature.
func (m *Store) SetGrant(_ context.Context, tenantID, feat string, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.grants[tenantID]
	if g == nil {
		g = make(map[string]bool)
		m.grants[tenantID] = g
	}
	g[feat] = granted
	return nil
}

// IsGranted reports whether a tenant holds a feature.
func (m *Store) IsGranted(_ context.Context, tenantID, feat string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[tenantID][feat], nil
}

// paginate applies offset and limit to an already-sorted slice.
func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
