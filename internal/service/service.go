package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mwhitford/zone-weather-service/internal/cache"
	"github.com/mwhitford/zone-weather-service/internal/models"
	"github.com/mwhitford/zone-weather-service/internal/nws"
	"github.com/mwhitford/zone-weather-service/internal/observability"
	"github.com/mwhitford/zone-weather-service/internal/storage"
	"github.com/mwhitford/zone-weather-service/internal/zones"
)

// zoneIndexKey is the cache key for the zone index. There is exactly one
// index per deployment.
const zoneIndexKey = "index"

// ErrInjectedFailure is the deliberate periodic failure on the forecast path,
// kept for dashboard and alerting demos.
var ErrInjectedFailure = errors.New("injected failure")

// ZoneService serves the zone index with a cache-or-fetch flow and proxies
// forecast lookups to the NWS API.
type ZoneService struct {
	zoneFilePath string
	client       nws.ForecastClient
	cache        cache.Cache
	store        storage.ZoneStore // nil when mirroring is disabled
	ttl          time.Duration
	failEvery    int64
	calls        atomic.Int64 // forecast requests served; drives failure injection
	tracer       trace.Tracer
}

// NewZoneService creates a ZoneService. store may be nil to disable database
// mirroring. failEvery > 0 makes every Nth forecast request fail before the
// upstream call; 0 disables injection.
func NewZoneService(zoneFilePath string, client nws.ForecastClient, c cache.Cache, store storage.ZoneStore, ttl time.Duration, failEvery int) *ZoneService {
	return &ZoneService{
		zoneFilePath: zoneFilePath,
		client:       client,
		cache:        c,
		store:        store,
		ttl:          ttl,
		failEvery:    int64(failEvery),
		tracer:       otel.Tracer("zone-weather-service"),
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetZones returns the zone index. On cache hit the cached list is returned
// as-is. On miss the index is loaded from the zone file (filtered and
// deduplicated), mirrored into the store when one is configured, and cached
// for the configured TTL. Mirror errors are logged but never fail the
// request.
func (s *ZoneService) GetZones(ctx context.Context) ([]models.Zone, error) {
	logger := loggerFromContext(ctx)

	cached, ok, err := s.cache.Get(ctx, zoneIndexKey)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("zones").Inc()
		if logger != nil {
			logger.Debug("zone index cache hit", zap.Int("zones", len(cached)))
		}
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("zones").Inc()

	return s.refresh(ctx)
}

// refresh loads the zone index from the file, mirrors it, and repopulates the
// cache, bypassing any cached copy. The cache TTL restarts from now.
func (s *ZoneService) refresh(ctx context.Context) ([]models.Zone, error) {
	logger := loggerFromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "zones.refresh")
	defer span.End()

	loaded, err := zones.Load(s.zoneFilePath)
	if err != nil {
		observability.ZoneRefreshTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "load zone file")
		return nil, fmt.Errorf("refresh zone index: %w", err)
	}
	span.SetAttributes(attribute.Int("zones.count", len(loaded)))
	observability.ZoneRefreshTotal.WithLabelValues("success").Inc()

	if s.store != nil {
		s.mirrorZones(ctx, loaded, logger)
	}

	if setErr := s.cache.Set(ctx, zoneIndexKey, loaded, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		if logger != nil {
			logger.Warn("zone index cache set failed", zap.Error(setErr))
		}
	}

	if logger != nil {
		logger.Debug("zone index refreshed", zap.Int("zones", len(loaded)))
	}
	span.SetStatus(codes.Ok, "")
	return loaded, nil
}

// mirrorZones upserts the zone list into the configured store. Failures are
// recorded and logged only; the zone list is still served from the file.
func (s *ZoneService) mirrorZones(ctx context.Context, list []models.Zone, logger *zap.Logger) {
	ctx, span := s.tracer.Start(ctx, "zones.mirror")
	defer span.End()
	span.SetAttributes(attribute.Int("zones.count", len(list)))

	if err := s.store.UpsertZones(ctx, list); err != nil {
		observability.ZoneDBUpsertsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert zones")
		if logger != nil {
			logger.Warn("zone mirror upsert failed", zap.Error(err))
		}
		return
	}
	observability.ZoneDBUpsertsTotal.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "")
}

// GetForecast proxies the NWS forecast for zoneID, recording metrics and a
// span around the call. Every failEvery-th request across the process fails
// before reaching upstream. Upstream failures are logged and surfaced to the
// caller unchanged.
func (s *ZoneService) GetForecast(ctx context.Context, zoneID string) (models.Forecast, error) {
	start := time.Now()
	logger := loggerFromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "forecast.get")
	defer span.End()
	span.SetAttributes(attribute.String("zone.id", zoneID))

	n := s.calls.Add(1)
	if s.failEvery > 0 && n%s.failEvery == 0 {
		err := fmt.Errorf("%w: request %d", ErrInjectedFailure, n)
		observability.FailedRequestsTotal.Inc()
		observability.ForecastRequestsTotal.WithLabelValues("injected_failure").Inc()
		observability.ForecastRequestDuration.WithLabelValues("injected_failure").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "injected failure")
		if logger != nil {
			logger.Warn("injected forecast failure", zap.String("zone", zoneID), zap.Int64("request", n))
		}
		return models.Forecast{}, err
	}

	forecast, err := s.client.GetForecast(ctx, zoneID)
	status := nws.StatusLabel(err)
	observability.ForecastRequestsTotal.WithLabelValues(status).Inc()
	observability.ForecastRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FailedRequestsTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream forecast fetch")
		if logger != nil {
			logger.Error("forecast fetch failed", zap.String("zone", zoneID), zap.Error(err))
		}
		return models.Forecast{}, fmt.Errorf("fetch forecast for %s: %w", zoneID, err)
	}

	span.SetAttributes(attribute.Int("forecast.periods", len(forecast.Periods)))
	span.SetStatus(codes.Ok, "")
	if logger != nil {
		logger.Debug("forecast served", zap.String("zone", zoneID), zap.Int("periods", len(forecast.Periods)), zap.Duration("duration", time.Since(start)))
	}
	return forecast, nil
}

// categorizeCacheError returns a stable label for cache error metrics
// (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
