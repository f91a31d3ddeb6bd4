package app

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// expirer is implemented by listing.Service.
type expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// sweepListings expires overdue listings every interval until ctx is done.
// Failures are logged and retried on the next tick.
func sweepListings(ctx context.Context, listings expirer, interval time.Duration) error {
	lg := zctx.From(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n, err := listings.ExpireOverdue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			lg.Warn("Listing expiry failed", zap.Error(err))
			continue
		}
		if n > 0 {
			lg.Info("Listings expired", zap.Int64("count", n))
		}
	}
}
