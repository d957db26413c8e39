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

	"github.com/mwhitford/zone-weather-service/internal/observability"
	"github.com/mwhitford/zone-weather-service/internal/web"
)

const (
	defaultPort     = "8081"
	shutdownTimeout = 10 * time.Second
	requestTimeout  = 10 * time.Second
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	tracerShutdown, err := observability.SetupTracing(context.Background(), "zone-weather-web", logger)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	handler, err := web.NewHandler(apiBaseURL, requestTimeout, logger)
	if err != nil {
		logger.Fatal("web handler", zap.Error(err))
	}

	router := mux.NewRouter()
	router.HandleFunc("/", handler.Home).Methods("GET")
	router.HandleFunc("/healthz", handler.Healthz).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("web starting", zap.String("addr", ":"+port), zap.String("api", apiBaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := observability.FlushTelemetry(shutdownCtx, logger, tracerShutdown); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
