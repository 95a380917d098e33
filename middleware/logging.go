package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fairq/item"
)

// Logging returns middleware that logs processing start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		logger.Info("item processing started",
			slog.String("item_id", it.ID.String()),
			slog.String("tenant_id", it.TenantID),
			slog.String("tier", string(it.Tier)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("item processing failed",
				slog.String("item_id", it.ID.String()),
				slog.String("tenant_id", it.TenantID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("item processed",
				slog.String("item_id", it.ID.String()),
				slog.String("tenant_id", it.TenantID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
