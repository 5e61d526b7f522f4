package subscription

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/relay/id"
)

// Manager provisions and persists subscriptions. It owns the rules a raw
// Store does not enforce: validation, ID assignment, and secret
// generation on create.
type Manager struct {
	store Store
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// AddOrUpdate validates the subscription and persists it. New
// subscriptions (nil ID) receive a generated TypeID and, when no secret
// was supplied, a fresh "whs_" signing secret. Subscriptions created
// through the Manager are active unless explicitly deactivated later.
func (m *Manager) AddOrUpdate(ctx context.Context, sub *Subscription) error {
	if err := validate(sub); err != nil {
		return err
	}

	if sub.ID.IsNil() {
		sub.ID = id.NewSubscriptionID()
		sub.Active = true
		sub.Entity.Init()
	} else {
		sub.Entity.Touch()
	}

	if sub.Secret == "" {
		sub.Secret = id.NewSecret()
	}

	return m.store.AddOrUpdateSubscription(ctx, sub)
}

// Get returns a subscription by ID.
func (m *Manager) Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error) {
	return m.store.GetSubscription(ctx, subID)
}

// Delete removes a subscription by ID.
func (m *Manager) Delete(ctx context.Context, subID id.SubscriptionID) error {
	return m.store.DeleteSubscription(ctx, subID)
}

// Activate re-enables a disabled subscription.
func (m *Manager) Activate(ctx context.Context, subID id.SubscriptionID) error {
	return m.store.SetActive(ctx, subID, true)
}

// Deactivate disables a subscription without deleting it.
func (m *Manager) Deactivate(ctx context.Context, subID id.SubscriptionID) error {
	return m.store.SetActive(ctx, subID, false)
}

func validate(sub *Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: nil", ErrInvalid)
	}
	if strings.TrimSpace(sub.URL) == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalid)
	}
	if len(sub.Definitions) == 0 {
		return fmt.Errorf("%w: no definitions", ErrInvalid)
	}
	for _, d := range sub.Definitions {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: blank definition name", ErrInvalid)
		}
	}
	return nil
}
