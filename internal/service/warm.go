package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Warm primes the zone index cache with a forced refresh. Call before serving
// so the first /zones request is a cache hit.
func (s *ZoneService) Warm(ctx context.Context, logger *zap.Logger) error {
	start := time.Now()
	list, err := s.refresh(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("zone cache warm failed", zap.Error(err))
		}
		return err
	}
	if logger != nil {
		logger.Info("zone cache warmed", zap.Int("zones", len(list)), zap.Duration("duration", time.Since(start)))
	}
	return nil
}

// WarmPeriodic forces a zone index refresh at the given interval until ctx is
// done. Each refresh restarts the cache TTL, so an interval below the TTL
// keeps the index permanently cached.
func (s *ZoneService) WarmPeriodic(ctx context.Context, logger *zap.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Warm(ctx, logger); err != nil && logger != nil {
				logger.Warn("periodic zone refresh failed", zap.Error(err))
			}
		}
	}
}
