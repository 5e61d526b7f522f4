package relay

import (
	"context"

	"github.com/xraph/relay/scope"
)

// WithTenant returns a context carrying the given tenant as the ambient
// publish scope. Publish calls without an explicit target pick it up.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return scope.With(ctx, scope.Tenant(tenantID))
}

// WithHost returns a context carrying the host as the ambient publish
// scope.
func WithHost(ctx context.Context) context.Context {
	return scope.With(ctx, scope.Host())
}
