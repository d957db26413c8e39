package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mwhitford/zone-weather-service/internal/lifecycle"
	"github.com/mwhitford/zone-weather-service/internal/nws"
	"github.com/mwhitford/zone-weather-service/internal/service"
)

// zoneIDPattern matches NWS zone and county identifiers, e.g. WAZ558 or AKC013.
var zoneIDPattern = regexp.MustCompile(`^[A-Z]{2}[CZ]\d{3}$`)

// HealthConfig holds the dependency probes for the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability.
	CachePing func(ctx context.Context) error
	// DBPing, when set, is called to check database reachability.
	DBPing func(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	zoneService      *service.ZoneService
	healthConfig     *HealthConfig
	logger           *zap.Logger
	rateLimiter      *rate.Limiter
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(zoneService *service.ZoneService, healthConfig *HealthConfig, logger *zap.Logger, rateLimiter *rate.Limiter) *Handler {
	return &Handler{
		zoneService:  zoneService,
		healthConfig: healthConfig,
		logger:       logger,
		rateLimiter:  rateLimiter,
	}
}

// GetZones handles GET /zones.
func (h *Handler) GetZones(w http.ResponseWriter, r *http.Request) {
	result, err := h.zoneService.GetZones(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "ZONE_INDEX_UNAVAILABLE", "Unable to load zone index")
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Error("zone index error", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetForecast handles GET /forecast/{zoneId}.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	zoneID := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["zoneId"]))
	if !zoneIDPattern.MatchString(zoneID) {
		writeError(w, r, http.StatusBadRequest, "INVALID_ZONE_ID", "zone id must look like WAZ558")
		return
	}

	result, err := h.zoneService.GetForecast(r.Context(), zoneID)
	if err != nil {
		writeForecastError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "zone-weather-service",
		"version":   "dev",
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates health conditions in priority order:
// shutting-down beats dependency failures, any failing probe means degraded.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := make(map[string]string)

	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}

	status := "healthy"
	reason := ""
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(ctx); err != nil {
			checks["cache"] = "unhealthy"
			status = "degraded"
			reason = "cache_unreachable"
		} else {
			checks["cache"] = "healthy"
		}
	}
	if h.healthConfig != nil && h.healthConfig.DBPing != nil {
		if err := h.healthConfig.DBPing(ctx); err != nil {
			checks["database"] = "unhealthy"
			status = "degraded"
			if reason == "" {
				reason = "database_unreachable"
			}
		} else {
			checks["database"] = "healthy"
		}
	}

	if status == "degraded" {
		return healthResult{status, http.StatusServiceUnavailable, reason, checks}
	}
	return healthResult{status, http.StatusOK, "", checks}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeForecastError maps forecast errors onto HTTP responses. Injected
// failures surface as 500, unknown zones as 404, everything else as 503.
func writeForecastError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, nws.ErrZoneNotFound):
		writeError(w, r, http.StatusNotFound, "ZONE_NOT_FOUND", "No forecast zone with that id")
	case errors.Is(err, nws.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED", "Upstream rate limit reached")
	case errors.Is(err, service.ErrInjectedFailure):
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch forecast data")
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("forecast error", zap.Error(err))
	}
}
