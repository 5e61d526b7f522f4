package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/relay/catalog"
	"github.com/xraph/relay/scope"
)

func TestAuthorize_HostBypassesChecks(t *testing.T) {
	// No grants anywhere; host must still pass even with required features.
	def := &catalog.WebhookDefinition{
		Name:               "users.created",
		RequiredFeatures:   []string{"webhooks"},
		RequireAllFeatures: true,
	}

	ok, err := Authorize(context.Background(), NewStatic(), scope.Host(), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("host scope must bypass feature checks")
	}
}

func TestAuthorize_NoRequiredFeatures(t *testing.T) {
	def := &catalog.WebhookDefinition{Name: "users.created"}

	ok, err := Authorize(context.Background(), NewStatic(), scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("empty required set must authorize")
	}
}

func TestAuthorize_Any(t *testing.T) {
	def := &catalog.WebhookDefinition{
		Name:             "users.deleted",
		RequiredFeatures: []string{"webhooks", "audit"},
	}

	checker := NewStatic()

	ok, err := Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok {
		t.Fatal("no grants: ANY must deny")
	}

	checker.Grant("t1", "audit")
	ok, err = Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("one grant: ANY must authorize")
	}

	checker.Revoke("t1", "audit")
	ok, err = Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok {
		t.Fatal("revoked grant: ANY must deny again")
	}
}

func TestAuthorize_All(t *testing.T) {
	def := &catalog.WebhookDefinition{
		Name:               "theme.defaultThemeChanged",
		RequiredFeatures:   []string{"webhooks", "themes"},
		RequireAllFeatures: true,
	}

	checker := NewStatic()
	checker.Grant("t1", "webhooks")

	ok, err := Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok {
		t.Fatal("one of two grants: ALL must deny")
	}

	checker.Grant("t1", "themes")
	ok, err = Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("both grants: ALL must authorize")
	}

	checker.Revoke("t1", "webhooks")
	ok, err = Authorize(context.Background(), checker, scope.Tenant("t1"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok {
		t.Fatal("revoked grant: ALL must deny again")
	}
}

func TestAuthorize_TenantsIsolated(t *testing.T) {
	def := &catalog.WebhookDefinition{
		Name:             "users.created",
		RequiredFeatures: []string{"webhooks"},
	}

	checker := NewStatic()
	checker.Grant("t1", "webhooks")

	ok, err := Authorize(context.Background(), checker, scope.Tenant("t2"), def)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ok {
		t.Fatal("t1 grant must not authorize t2")
	}
}

type failingChecker struct{ err error }

func (f *failingChecker) IsGranted(context.Context, string, string) (bool, error) {
	return false, f.err
}

func TestAuthorize_CheckerErrorSurfaces(t *testing.T) {
	def := &catalog.WebhookDefinition{
		Name:             "users.created",
		RequiredFeatures: []string{"webhooks"},
	}

	want := errors.New("entitlement backend down")
	_, err := Authorize(context.Background(), &failingChecker{err: want}, scope.Tenant("t1"), def)
	if !errors.Is(err, want) {
		t.Fatalf("expected checker error to surface, got %v", err)
	}
}

func TestStoreChecker_DelegatesToStore(t *testing.T) {
	st := NewStatic()
	st.Grant("t1", "webhooks")

	checker := NewStoreChecker(staticAsStore{st})
	ok, err := checker.IsGranted(context.Background(), "t1", "webhooks")
	if err != nil {
		t.Fatalf("is granted: %v", err)
	}
	if !ok {
		t.Fatal("expected grant to be visible through StoreChecker")
	}
}

// staticAsStore exposes Static through the Store interface for the test.
type staticAsStore struct{ s *Static }

func (a staticAsStore) SetGrant(_ context.Context, tenantID, feature string, granted bool) error {
	a.s.set(tenantID, feature, granted)
	return nil
}

func (a staticAsStore) IsGranted(ctx context.Context, tenantID, feature string) (bool, error) {
	return a.s.IsGranted(ctx, tenantID, feature)
}
