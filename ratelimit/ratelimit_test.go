package ratelimit

import "testing"

func TestAcquireUnlimited(t *testing.T) {
	m := NewManager()
	for i := 0; i < 100; i++ {
		if !m.Acquire("whsub_a", "t1") {
			t.Fatalf("unconfigured target throttled at iteration %d", i)
		}
	}
}

func TestSubscriptionRateLimit(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		RateLimit:      1, // 1/s, burst 1
	})

	if !m.Acquire("whsub_a", "t1") {
		t.Fatal("first acquire should pass")
	}
	if m.Acquire("whsub_a", "t1") {
		t.Fatal("second immediate acquire should be rate limited")
	}

	// Other subscriptions are unaffected.
	if !m.Acquire("whsub_b", "t1") {
		t.Fatal("unrelated subscription throttled")
	}
}

func TestSubscriptionConcurrency(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		MaxConcurrency: 2,
	})

	if !m.Acquire("whsub_a", "") || !m.Acquire("whsub_a", "") {
		t.Fatal("acquires within concurrency limit failed")
	}
	if m.Acquire("whsub_a", "") {
		t.Fatal("acquire beyond concurrency limit passed")
	}

	m.Release("whsub_a", "")
	if !m.Acquire("whsub_a", "") {
		t.Fatal("acquire after release failed")
	}
}

func TestTenantConcurrencySpansSubscriptions(t *testing.T) {
	m := NewManager()
	m.SetTenantLimit(TenantLimit{
		TenantID:       "t1",
		MaxConcurrency: 1,
	})

	if !m.Acquire("whsub_a", "t1") {
		t.Fatal("first acquire failed")
	}
	// A different subscription of the same tenant counts against the
	// same cap.
	if m.Acquire("whsub_b", "t1") {
		t.Fatal("tenant cap not enforced across subscriptions")
	}
	// Another tenant is unaffected.
	if !m.Acquire("whsub_c", "t2") {
		t.Fatal("unrelated tenant throttled")
	}

	m.Release("whsub_a", "t1")
	if !m.Acquire("whsub_b", "t1") {
		t.Fatal("acquire after release failed")
	}
}

func TestHostLimitIsDistinctFromTenants(t *testing.T) {
	m := NewManager()
	m.SetTenantLimit(TenantLimit{
		TenantID:       "",
		MaxConcurrency: 1,
	})

	if !m.Acquire("whsub_a", "") {
		t.Fatal("host acquire failed")
	}
	if m.Acquire("whsub_b", "") {
		t.Fatal("host cap not enforced")
	}
	if !m.Acquire("whsub_c", "t1") {
		t.Fatal("tenant throttled by host limit")
	}
}

func TestTenantDenialReturnsSubscriptionToken(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		RateLimit:      1, // 1/s, burst 1
	})
	m.SetTenantLimit(TenantLimit{
		TenantID:  "t1",
		RateLimit: 1, // 1/s, burst 1
	})

	// Drain the tenant bucket through an unlimited subscription.
	if !m.Acquire("whsub_b", "t1") {
		t.Fatal("tenant bucket drain failed")
	}

	// Subscription token is available but the tenant bucket is empty, so
	// the acquire is denied. The subscription token must be handed back.
	if m.Acquire("whsub_a", "t1") {
		t.Fatal("acquire should fail on empty tenant bucket")
	}

	// Same subscription, different tenant: the token is still there.
	if !m.Acquire("whsub_a", "t2") {
		t.Fatal("subscription token was lost to the denied acquire")
	}
}

func TestConcurrencyDenialConsumesNoTokens(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		RateLimit:      1, // 1/s, burst 1
	})
	m.SetTenantLimit(TenantLimit{
		TenantID:       "t1",
		MaxConcurrency: 1,
	})

	// Occupy the tenant's only slot.
	if !m.Acquire("whsub_b", "t1") {
		t.Fatal("first acquire failed")
	}
	if m.Acquire("whsub_a", "t1") {
		t.Fatal("acquire should fail at the tenant concurrency cap")
	}

	// After the slot frees up, the subscription's token must still be
	// available; the earlier denial may not have drawn it.
	m.Release("whsub_b", "t1")
	if !m.Acquire("whsub_a", "t1") {
		t.Fatal("subscription token was burned by a concurrency denial")
	}
}

func TestEnsureSubscriptionLimit(t *testing.T) {
	m := NewManager()

	m.EnsureSubscriptionLimit("whsub_a", 1)
	if !m.Acquire("whsub_a", "") {
		t.Fatal("first acquire should pass")
	}

	// Re-seeding with the same rate must not refill the bucket.
	m.EnsureSubscriptionLimit("whsub_a", 1)
	if m.Acquire("whsub_a", "") {
		t.Fatal("re-seeding an unchanged rate reset the bucket")
	}

	// A changed rate takes effect.
	m.EnsureSubscriptionLimit("whsub_a", 0)
	if !m.Acquire("whsub_a", "") {
		t.Fatal("rate change to unlimited not applied")
	}
}

func TestEnsureSubscriptionLimitKeepsConcurrencyCap(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		MaxConcurrency: 1,
	})

	if !m.Acquire("whsub_a", "") {
		t.Fatal("first acquire failed")
	}

	m.EnsureSubscriptionLimit("whsub_a", 100)

	if got := m.ActiveCount("whsub_a"); got != 1 {
		t.Fatalf("ActiveCount = %d after seeding, want 1", got)
	}
	if m.Acquire("whsub_a", "") {
		t.Fatal("concurrency cap lost after seeding a rate")
	}
}

func TestReconfigurePreservesActive(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		MaxConcurrency: 5,
	})

	m.Acquire("whsub_a", "")
	m.Acquire("whsub_a", "")

	m.SetSubscriptionLimit(SubscriptionLimit{
		SubscriptionID: "whsub_a",
		MaxConcurrency: 2,
	})

	if got := m.ActiveCount("whsub_a"); got != 2 {
		t.Fatalf("ActiveCount = %d after reconfigure, want 2", got)
	}
	if m.Acquire("whsub_a", "") {
		t.Fatal("acquire should fail at the new, lower cap")
	}
}

func TestActiveCounts(t *testing.T) {
	m := NewManager()
	m.SetSubscriptionLimit(SubscriptionLimit{SubscriptionID: "whsub_a", MaxConcurrency: 10})
	m.SetTenantLimit(TenantLimit{TenantID: "t1", MaxConcurrency: 10})

	m.Acquire("whsub_a", "t1")
	m.Acquire("whsub_a", "t1")

	if got := m.ActiveCount("whsub_a"); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := m.TenantActiveCount("t1"); got != 2 {
		t.Errorf("TenantActiveCount = %d, want 2", got)
	}

	m.Release("whsub_a", "t1")
	if got := m.ActiveCount("whsub_a"); got != 1 {
		t.Errorf("ActiveCount after release = %d, want 1", got)
	}
}
