package revocation

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// StartCleanupTicker purges expired revocations every interval until ctx is
// cancelled. It runs one pass immediately.
func StartCleanupTicker(ctx context.Context, cleaner Cleaner, interval time.Duration, clk clock.Clock, logger *zap.Logger) {
	if cleaner == nil || interval <= 0 {
		return
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	sweep(ctx, cleaner, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, cleaner, logger)
		}
	}
}

func sweep(ctx context.Context, cleaner Cleaner, logger *zap.Logger) {
	removed, err := cleaner.CleanExpired(ctx)
	if err != nil {
		logger.Warn("revocation cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("expired revocations purged", zap.Int64("count", removed))
	}
}
