// Package ratelimit throttles webhook deliveries per subscription and
// per tenant, combining token-bucket rate limits with concurrency caps.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SubscriptionLimit defines delivery throttling for one subscription.
type SubscriptionLimit struct {
	// SubscriptionID is the subscription this limit applies to.
	SubscriptionID string

	// RateLimit is the maximum sustained deliveries per second to this
	// subscription's endpoint. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int

	// MaxConcurrency limits simultaneous in-flight sends to this
	// subscription. Zero means no subscription-specific limit.
	MaxConcurrency int
}

// TenantLimit defines delivery throttling aggregated across all of a
// tenant's subscriptions.
type TenantLimit struct {
	// TenantID is the tenant this limit applies to. Empty targets
	// host-level subscriptions.
	TenantID string

	// RateLimit is the sustained deliveries per second for the tenant.
	RateLimit float64

	// RateBurst is the burst size for the tenant's rate limiter.
	RateBurst int

	// MaxConcurrency limits simultaneous in-flight sends for the tenant.
	// Zero means no tenant-specific concurrency limit.
	MaxConcurrency int
}

// limitState tracks runtime state for one limit target.
type limitState struct {
	limiter        *rate.Limiter
	perSecond      float64
	maxConcurrency int
	active         int
}

func newLimitState(perSecond float64, burst, maxConcurrency int) *limitState {
	ls := &limitState{perSecond: perSecond, maxConcurrency: maxConcurrency}
	if perSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		ls.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return ls
}

// tenantKey distinguishes the host ("") from tenants in the map.
func tenantKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s", tenantID)
}

// Manager controls per-subscription and per-tenant delivery throttling.
// It is safe for concurrent use. Targets with no configured limit are
// never throttled.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*limitState
	tenants       map[string]*limitState
}

// NewManager creates a Manager with no limits configured.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*limitState),
		tenants:       make(map[string]*limitState),
	}
}

// SetSubscriptionLimit configures (or replaces) throttling for one
// subscription. The in-flight count survives reconfiguration.
func (m *Manager) SetSubscriptionLimit(cfg SubscriptionLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ls := newLimitState(cfg.RateLimit, cfg.RateBurst, cfg.MaxConcurrency)
	if existing := m.subscriptions[cfg.SubscriptionID]; existing != nil {
		ls.active = existing.active
	}
	m.subscriptions[cfg.SubscriptionID] = ls
}

// SetTenantLimit configures (or replaces) throttling for one tenant.
// The in-flight count survives reconfiguration.
func (m *Manager) SetTenantLimit(cfg TenantLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tenantKey(cfg.TenantID)
	ls := newLimitState(cfg.RateLimit, cfg.RateBurst, cfg.MaxConcurrency)
	if existing := m.tenants[key]; existing != nil {
		ls.active = existing.active
	}
	m.tenants[key] = ls
}

// EnsureSubscriptionLimit applies a subscription rate carried on a
// delivery snapshot. It reconfigures the token bucket only when the rate
// actually changed, so repeated calls with the same rate never reset
// accumulated tokens. An explicitly configured concurrency cap and the
// in-flight count survive.
func (m *Manager) EnsureSubscriptionLimit(subscriptionID string, perSecond float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.subscriptions[subscriptionID]
	if existing != nil && existing.perSecond == perSecond {
		return
	}

	maxConcurrency := 0
	if existing != nil {
		maxConcurrency = existing.maxConcurrency
	}
	ls := newLimitState(perSecond, 0, maxConcurrency)
	if existing != nil {
		ls.active = existing.active
	}
	m.subscriptions[subscriptionID] = ls
}

// Acquire checks rate limits and concurrency for the subscription and
// its tenant. If the delivery may proceed it increments the in-flight
// counters and returns true. The caller MUST call Release with the same
// arguments when the send completes. A false return means the delivery
// should stay queued and be retried on a later poll — and consumes no
// tokens from either bucket.
func (m *Manager) Acquire(subscriptionID, tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss := m.subscriptions[subscriptionID]
	ts := m.tenants[tenantKey(tenantID)]

	// Concurrency gates first: they consume nothing, so a concurrency
	// denial must not burn rate tokens.
	if ss != nil && ss.maxConcurrency > 0 && ss.active >= ss.maxConcurrency {
		return false
	}
	if ts != nil && ts.maxConcurrency > 0 && ts.active >= ts.maxConcurrency {
		return false
	}

	// Token draws are reservations so a denial further down can hand the
	// token back instead of losing it.
	now := time.Now()
	var subRes *rate.Reservation
	if ss != nil && ss.limiter != nil {
		subRes = ss.limiter.ReserveN(now, 1)
		if !subRes.OK() || subRes.DelayFrom(now) > 0 {
			subRes.CancelAt(now)
			return false
		}
	}
	if ts != nil && ts.limiter != nil {
		tenantRes := ts.limiter.ReserveN(now, 1)
		if !tenantRes.OK() || tenantRes.DelayFrom(now) > 0 {
			tenantRes.CancelAt(now)
			if subRes != nil {
				subRes.CancelAt(now)
			}
			return false
		}
	}

	if ss != nil {
		ss.active++
	}
	if ts != nil {
		ts.active++
	}
	return true
}

// Release decrements the in-flight counters for the subscription and
// its tenant.
func (m *Manager) Release(subscriptionID, tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ss := m.subscriptions[subscriptionID]; ss != nil && ss.active > 0 {
		ss.active--
	}
	if ts := m.tenants[tenantKey(tenantID)]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// ActiveCount returns the in-flight sends for a subscription.
func (m *Manager) ActiveCount(subscriptionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ss := m.subscriptions[subscriptionID]; ss != nil {
		return ss.active
	}
	return 0
}

// TenantActiveCount returns the in-flight sends for a tenant.
func (m *Manager) TenantActiveCount(tenantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.tenants[tenantKey(tenantID)]; ts != nil {
		return ts.active
	}
	return 0
}
