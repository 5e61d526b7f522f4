package subscription

import (
	"context"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/scope"
)

// ListOpts configures filtering and pagination for subscription listing.
type ListOpts struct {
	Offset int
	Limit  int
	Active *bool
}

// Store defines the persistence contract for webhook subscriptions.
type Store interface {
	// AddOrUpdateSubscription inserts the subscription, or replaces the
	// stored record when the ID already exists.
	AddOrUpdateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	// Returns ErrNotFound if the ID is unknown.
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)

	// DeleteSubscription removes a subscription by ID.
	// Returns ErrNotFound if the ID is unknown.
	DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error

	// ListSubscriptions returns the subscriptions owned by the given
	// scope (host scope lists host-level subscriptions only).
	ListSubscriptions(ctx context.Context, sc scope.Scope, opts ListOpts) ([]*Subscription, error)

	// Resolve finds the active subscriptions that match a scope and a
	// definition name. This is the publish hot path. Matching is exact:
	// the host scope sees only host-level subscriptions and a tenant
	// scope only that tenant's — there is no fallback between the two.
	Resolve(ctx context.Context, sc scope.Scope, definition string) ([]*Subscription, error)

	// SetActive enables or disables a subscription without deleting it.
	// Returns ErrNotFound if the ID is unknown.
	SetActive(ctx context.Context, subID id.SubscriptionID, active bool) error
}
