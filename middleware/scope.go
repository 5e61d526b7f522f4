package middleware

import (
	"context"

	"github.com/xraph/relay/delivery"
	"github.com/xraph/relay/scope"
)

// Scope returns middleware that restores the delivery's tenant scope into
// the context. This ensures downstream code sees the same scope as the
// original publish caller.
func Scope() Middleware {
	return func(ctx context.Context, d *delivery.Delivery, next Handler) error {
		ctx = scope.With(ctx, scope.Tenant(d.TenantID))
		return next(ctx)
	}
}
