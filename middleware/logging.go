package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/relay/delivery"
)

// Logging returns middleware that logs attempt start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *delivery.Delivery, next Handler) error {
		logger.Info("delivery started",
			slog.String("delivery_id", d.ID.String()),
			slog.String("definition", d.Definition),
			slog.String("url", d.URL),
			slog.Int("attempt", d.Attempts+1),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("delivery attempt failed",
				slog.String("delivery_id", d.ID.String()),
				slog.String("definition", d.Definition),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("delivery succeeded",
				slog.String("delivery_id", d.ID.String()),
				slog.String("definition", d.Definition),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
