// Package subscription defines the webhook subscription entity, its
// persistence contract, and the Manager that validates and provisions
// subscriptions (IDs and signing secrets).
package subscription

import (
	"errors"

	"github.com/xraph/relay/id"
	"github.com/xraph/relay/internal/entity"
	"github.com/xraph/relay/scope"
)

var (
	// ErrNotFound is returned when a subscription ID is unknown.
	ErrNotFound = errors.New("relay/subscription: subscription not found")

	// ErrInvalid is returned when a subscription fails validation.
	ErrInvalid = errors.New("relay/subscription: invalid subscription")
)

// Subscription is a registered endpoint wanting delivery for one or more
// webhook definitions. A subscription belongs either to a single tenant or
// to the host (empty TenantID).
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription (prefix "whsub").
	ID id.SubscriptionID `json:"id"`

	// TenantID identifies the owning tenant. Empty means a host-level
	// subscription.
	TenantID string `json:"tenant_id,omitempty"`

	// URL is the endpoint deliveries are posted to.
	URL string `json:"url"`

	// Secret is the HMAC signing secret ("whs_" prefixed). Generated by
	// the Manager if empty on create.
	Secret string `json:"secret"`

	// Definitions are the webhook definition names this subscription
	// receives.
	Definitions []string `json:"definitions"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Active controls whether the subscription receives deliveries.
	// Inactive subscriptions are invisible to Resolve.
	Active bool `json:"active"`

	// RateLimit is the maximum deliveries per second for this
	// subscription. Zero means unlimited. The value is snapshotted onto
	// each delivery and enforced by the worker pool's limiter.
	RateLimit float64 `json:"rate_limit,omitempty"`
}

// Scope returns the tenancy scope this subscription belongs to.
func (s *Subscription) Scope() scope.Scope {
	if s.TenantID == "" {
		return scope.Host()
	}
	return scope.Tenant(s.TenantID)
}

// Subscribed reports whether the subscription covers the given definition.
func (s *Subscription) Subscribed(definition string) bool {
	for _, d := range s.Definitions {
		if d == definition {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate persisted state through a returned pointer.
func (s *Subscription) Clone() *Subscription {
	cp := *s
	cp.Definitions = append([]string(nil), s.Definitions...)
	if s.Headers != nil {
		cp.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			cp.Headers[k] = v
		}
	}
	return &cp
}
