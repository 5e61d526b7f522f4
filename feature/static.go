package feature

import (
	"context"
	"sync"
)

// Store is the persistence contract for tenant feature grants. A backend
// implements it alongside the subscription and delivery stores.
type Store interface {
	// SetGrant records whether a tenant holds a feature. Setting an
	// existing grant replaces it.
	SetGrant(ctx context.Context, tenantID, feature string, granted bool) error

	// IsGranted reports whether a tenant holds a feature. Unknown
	// tenant/feature pairs are not granted.
	IsGranted(ctx context.Context, tenantID, feature string) (bool, error)
}

// StoreChecker adapts a feature Store to the Checker interface.
type StoreChecker struct {
	store Store
}

// NewStoreChecker creates a Checker backed by the given store.
func NewStoreChecker(store Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// IsGranted implements Checker.
func (c *StoreChecker) IsGranted(ctx context.Context, tenantID, feature string) (bool, error) {
	return c.store.IsGranted(ctx, tenantID, feature)
}

// Static is an in-memory Checker for tests and development.
// It is safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	grants map[string]map[string]bool
}

// NewStatic creates an empty Static checker.
func NewStatic() *Static {
	return &Static{grants: make(map[string]map[string]bool)}
}

// Grant marks a feature as held by a tenant.
func (s *Static) Grant(tenantID, feature string) {
	s.set(tenantID, feature, true)
}

// Revoke marks a feature as not held by a tenant.
func (s *Static) Revoke(tenantID, feature string) {
	s.set(tenantID, feature, false)
}

func (s *Static) set(tenantID, feature string, granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.grants[tenantID]
	if m == nil {
		m = make(map[string]bool)
		s.grants[tenantID] = m
	}
	m[feature] = granted
}

// IsGranted implements Checker.
func (s *Static) IsGranted(_ context.Context, tenantID, feature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[tenantID][feature], nil
}
