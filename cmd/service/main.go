package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mwhitford/zone-weather-service/internal/cache"
	"github.com/mwhitford/zone-weather-service/internal/config"
	"github.com/mwhitford/zone-weather-service/internal/httpapi"
	"github.com/mwhitford/zone-weather-service/internal/lifecycle"
	"github.com/mwhitford/zone-weather-service/internal/nws"
	"github.com/mwhitford/zone-weather-service/internal/observability"
	"github.com/mwhitford/zone-weather-service/internal/service"
	"github.com/mwhitford/zone-weather-service/internal/storage"
	"github.com/mwhitford/zone-weather-service/internal/storage/postgres"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	tracerShutdown, err := observability.SetupTracing(context.Background(), cfg.ServiceName, logger)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	forecastClient, err := nws.NewClient(cfg.NWSAPIURL, cfg.NWSUserAgent, cfg.NWSTimeout)
	if err != nil {
		logger.Fatal("forecast client", zap.Error(err))
	}

	healthConfig := &httpapi.HealthConfig{StartTime: time.Now()}

	var cacheSvc cache.Cache
	var redisCloser *cache.RedisCache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "redis":
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisCloser = rc
		cacheSvc = rc
		healthConfig.CachePing = rc.Ping
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		healthConfig.CachePing = func(context.Context) error { return mc.Ping() }
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	var zoneStore storage.ZoneStore
	var pgCloser *postgres.Store
	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(context.Background(), cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("postgres schema", zap.Error(err))
		}
		pgCloser = pg
		zoneStore = pg
		healthConfig.DBPing = pg.Ping
		logger.Info("zone mirroring enabled")
	} else {
		logger.Info("zone mirroring disabled (no database dsn)")
	}

	zoneService := service.NewZoneService(cfg.ZoneFilePath, forecastClient, cacheSvc, zoneStore, cfg.ZoneCacheTTL, cfg.ForecastFailEvery)
	if cfg.ForecastFailEvery > 0 {
		logger.Info("forecast failure injection enabled", zap.Int("every", cfg.ForecastFailEvery))
	}

	if cfg.WarmZoneCache {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := zoneService.Warm(warmCtx, logger); err != nil {
			logger.Warn("zone cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.ZoneRefreshInterval > 0 {
			go func() {
				if err := zoneService.WarmPeriodic(context.Background(), logger, cfg.ZoneRefreshInterval); err != nil && err != context.Canceled {
					logger.Error("periodic zone refresh stopped", zap.Error(err))
				}
			}()
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httpapi.NewHandler(zoneService, healthConfig, logger, limiter)

	router := mux.NewRouter()
	router.Use(httpapi.CorrelationIDMiddleware(logger))
	router.Use(httpapi.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/zones", handler.GetZones).Methods("GET")
	forecastRouter := router.PathPrefix("/forecast").Subrouter()
	forecastRouter.Use(httpapi.RateLimitMiddleware(limiter))
	forecastRouter.Use(httpapi.TimeoutMiddleware(cfg.RequestTimeout))
	forecastRouter.HandleFunc("/{zoneId}", handler.GetForecast).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httpapi.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httpapi.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httpapi.InFlightCount()))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := observability.FlushTelemetry(flushCtx, logger, tracerShutdown); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if redisCloser != nil {
		if err := redisCloser.Close(); err != nil {
			logger.Error("redis close", zap.Error(err))
		}
	}
	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if pgCloser != nil {
		if err := pgCloser.Close(); err != nil {
			logger.Error("postgres close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
