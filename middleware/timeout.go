package middleware

import (
	"context"
	"log/slog"

	"github.com/xraph/fairq/item"
)

// Timeout returns middleware that enforces a per-item processing deadline.
// If the item has a non-zero Timeout, a context.WithTimeout wraps the
// processor call. When the deadline is exceeded the context is cancelled and
// the processor should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, it *item.Item, next Handler) error {
		if it.Timeout > 0 {
			logger.Debug("item timeout set",
				slog.String("item_id", it.ID.String()),
				slog.Duration("timeout", it.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, it.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
