package middleware

import (
	"context"
	"time"

	"github.com/xraph/relay/delivery"
)

// Timeout returns middleware that enforces a per-attempt deadline.
// A non-positive duration makes the middleware a pass-through. When the
// deadline is exceeded the context is cancelled and the sender should
// return context.DeadlineExceeded.
func Timeout(timeout time.Duration) Middleware {
	return func(ctx context.Context, _ *delivery.Delivery, next Handler) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
