// Package scope models the tenancy boundary a publish call operates in:
// either the host (no tenant) or a single tenant. It also provides helpers
// to carry the ambient session scope on a context.Context.
//
// Publish-time code captures the ambient scope exactly once at the start of
// a call and threads the resolved value everywhere; it never re-reads the
// context mid-operation, so concurrent session changes cannot change
// authorization outcomes halfway through a fan-out.
package scope

import "context"

// Scope identifies who an operation acts for: the host, or one tenant.
// The zero value is the host scope.
type Scope struct {
	tenantID string
}

// Host returns the host scope (no tenant).
func Host() Scope {
	return Scope{}
}

// Tenant returns the scope for the given tenant. An empty id yields the
// host scope.
func Tenant(tenantID string) Scope {
	return Scope{tenantID: tenantID}
}

// IsHost reports whether this is the host scope.
func (s Scope) IsHost() bool {
	return s.tenantID == ""
}

// TenantID returns the tenant identifier, or "" for the host scope.
func (s Scope) TenantID() string {
	return s.tenantID
}

// String renders the scope for logs.
func (s Scope) String() string {
	if s.IsHost() {
		return "host"
	}
	return "tenant:" + s.tenantID
}

type ctxKey struct{}

// With attaches the scope to the context as the ambient session scope.
func With(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From extracts the ambient session scope from the context.
// Returns false if no scope has been attached.
func From(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
