package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mwhitford/zone-weather-service/internal/cache"
	"github.com/mwhitford/zone-weather-service/internal/lifecycle"
	"github.com/mwhitford/zone-weather-service/internal/models"
	"github.com/mwhitford/zone-weather-service/internal/nws"
	"github.com/mwhitford/zone-weather-service/internal/service"
)

type mockForecastClient struct {
	forecast models.Forecast
	err      error
}

func (m *mockForecastClient) GetForecast(ctx context.Context, zoneID string) (models.Forecast, error) {
	if m.err != nil {
		return models.Forecast{}, m.err
	}
	f := m.forecast
	f.ZoneID = zoneID
	return f, nil
}

// writeZoneFile writes a two-zone index and returns its path.
func writeZoneFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.json")
	content := `{
		"features": [
			{"properties": {"id": "WAZ558", "name": "East Puget Sound Lowlands", "state": "WA", "observationStations": ["a"]}},
			{"properties": {"id": "ORZ006", "name": "Greater Portland", "state": "OR", "observationStations": ["b"]}}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write zone file: %v", err)
	}
	return path
}

// newTestRouter builds a router with the standard routes and the given client.
func newTestRouter(t *testing.T, client *mockForecastClient, failEvery int) (*mux.Router, *Handler) {
	t.Helper()
	svc := service.NewZoneService(writeZoneFile(t), client, cache.NewInMemoryCache(), nil, time.Hour, failEvery)
	logger, _ := zap.NewDevelopment()
	handler := NewHandler(svc, &HealthConfig{StartTime: time.Now()}, logger, nil)

	router := mux.NewRouter()
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.HandleFunc("/zones", handler.GetZones).Methods("GET")
	router.HandleFunc("/forecast/{zoneId}", handler.GetForecast).Methods("GET")
	return router, handler
}

// TestGetZones_ReturnsNonEmptyArray verifies GET /zones returns 200 with a
// non-empty JSON array of zones.
func TestGetZones_ReturnsNonEmptyArray(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{}, 0)

	req := httptest.NewRequest("GET", "/zones", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /zones status = %d, want %d", w.Code, http.StatusOK)
	}
	var zones []models.Zone
	if err := json.NewDecoder(w.Body).Decode(&zones); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(zones) == 0 {
		t.Fatal("GET /zones returned empty array, want zones")
	}
	if zones[0].Key != "WAZ558" {
		t.Errorf("zones[0].Key = %q, want WAZ558", zones[0].Key)
	}
}

// TestGetForecast_Success verifies a valid zone id returns the mapped forecast.
func TestGetForecast_Success(t *testing.T) {
	client := &mockForecastClient{forecast: models.Forecast{
		Updated: time.Now(),
		Periods: []models.ForecastPeriod{
			{Number: 1, Name: "Tonight", Temperature: 40, TemperatureUnit: "F", ShortForecast: "Cloudy"},
		},
	}}
	router, _ := newTestRouter(t, client, 0)

	req := httptest.NewRequest("GET", "/forecast/waz558", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /forecast status = %d, want %d", w.Code, http.StatusOK)
	}
	var forecast models.Forecast
	if err := json.NewDecoder(w.Body).Decode(&forecast); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Lowercase input is normalized before hitting upstream.
	if forecast.ZoneID != "WAZ558" {
		t.Errorf("ZoneID = %q, want WAZ558", forecast.ZoneID)
	}
	if len(forecast.Periods) != 1 || forecast.Periods[0].Name != "Tonight" {
		t.Errorf("Periods = %+v, want the Tonight period", forecast.Periods)
	}
}

// TestGetForecast_InvalidZoneID verifies malformed zone ids return 400.
func TestGetForecast_InvalidZoneID(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{}, 0)

	for _, id := range []string{"seattle", "WAZ55", "WAX558", "123456"} {
		req := httptest.NewRequest("GET", "/forecast/"+id, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("GET /forecast/%s status = %d, want %d", id, w.Code, http.StatusBadRequest)
		}
	}
}

// TestGetForecast_ZoneNotFound verifies upstream 404 maps to 404 with the
// standard error envelope.
func TestGetForecast_ZoneNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{err: nws.ErrZoneNotFound}, 0)

	req := httptest.NewRequest("GET", "/forecast/XXZ999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "ZONE_NOT_FOUND" {
		t.Errorf("error code = %q, want ZONE_NOT_FOUND", resp.Error.Code)
	}
}

// TestGetForecast_InjectedFailure verifies the every-fifth-call failure
// surfaces as 500.
func TestGetForecast_InjectedFailure(t *testing.T) {
	client := &mockForecastClient{forecast: models.Forecast{}}
	router, _ := newTestRouter(t, client, 5)

	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/forecast/WAZ558", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	for i := 0; i < 4; i++ {
		if codes[i] != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i+1, codes[i])
		}
	}
	if codes[4] != http.StatusInternalServerError {
		t.Errorf("request 5 status = %d, want 500 (injected failure)", codes[4])
	}
}

// TestGetForecast_UpstreamUnavailable verifies unknown upstream errors map to 503.
func TestGetForecast_UpstreamUnavailable(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{err: errors.New("connection refused")}, 0)

	req := httptest.NewRequest("GET", "/forecast/WAZ558", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// TestGetHealth_Healthy verifies the healthy path returns 200 with checks.
func TestGetHealth_Healthy(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{}, 0)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

// TestGetHealth_DegradedOnFailingProbe verifies a failing cache probe reports
// degraded with 503.
func TestGetHealth_DegradedOnFailingProbe(t *testing.T) {
	svc := service.NewZoneService(writeZoneFile(t), &mockForecastClient{}, cache.NewInMemoryCache(), nil, time.Hour, 0)
	logger, _ := zap.NewDevelopment()
	hc := &HealthConfig{
		StartTime: time.Now(),
		CachePing: func(context.Context) error { return errors.New("connection refused") },
	}
	handler := NewHandler(svc, hc, logger, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.GetHealth(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["cache"] != "unhealthy" {
		t.Errorf("checks[cache] = %q, want unhealthy", resp.Checks["cache"])
	}
}

// TestGetHealth_ShuttingDown verifies the drain flag wins over everything.
func TestGetHealth_ShuttingDown(t *testing.T) {
	router, _ := newTestRouter(t, &mockForecastClient{}, 0)
	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "shutting-down" {
		t.Errorf("status = %v, want shutting-down", resp["status"])
	}
}
