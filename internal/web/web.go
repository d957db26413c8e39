package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/mwhitford/zone-weather-service/internal/models"
)

// Handler serves the server-rendered front end. All data comes from the API
// service over HTTP; the base URL is the service-discovery seam.
type Handler struct {
	apiBaseURL string
	client     *http.Client
	logger     *zap.Logger
	home       *template.Template
}

// NewHandler creates a Handler talking to the API at apiBaseURL.
func NewHandler(apiBaseURL string, timeout time.Duration, logger *zap.Logger) (*Handler, error) {
	if apiBaseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	tmpl, err := template.New("home").Parse(homeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Handler{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		home:   tmpl,
	}, nil
}

// homePage is the view model for the home template.
type homePage struct {
	Zones        []models.Zone
	SelectedZone string
	Forecast     *models.Forecast
	Error        string
}

// Home handles GET /. Renders the zone table and, when a zone query parameter
// is present, the forecast for that zone.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	page := homePage{SelectedZone: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("zone")))}

	zones, err := h.fetchZones(r.Context())
	if err != nil {
		h.logger.Error("fetch zones", zap.Error(err))
		page.Error = "The weather API is unavailable right now."
	} else {
		page.Zones = zones
	}

	if page.Error == "" && page.SelectedZone != "" {
		forecast, err := h.fetchForecast(r.Context(), page.SelectedZone)
		if err != nil {
			h.logger.Warn("fetch forecast", zap.String("zone", page.SelectedZone), zap.Error(err))
			page.Error = fmt.Sprintf("No forecast available for %s.", page.SelectedZone)
		} else {
			page.Forecast = &forecast
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.home.Execute(w, page); err != nil {
		h.logger.Error("render home", zap.Error(err))
	}
}

// Healthz handles GET /healthz for container orchestration probes.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (h *Handler) fetchZones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	if err := h.getJSON(ctx, h.apiBaseURL+"/zones", &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

func (h *Handler) fetchForecast(ctx context.Context, zoneID string) (models.Forecast, error) {
	var forecast models.Forecast
	if err := h.getJSON(ctx, h.apiBaseURL+"/forecast/"+url.PathEscape(zoneID), &forecast); err != nil {
		return models.Forecast{}, err
	}
	return forecast, nil
}

func (h *Handler) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	return nil
}

const homeTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Zone Weather</title>
  <style>
    body { font-family: sans-serif; margin: 2rem; color: #222; }
    table { border-collapse: collapse; margin-top: 1rem; }
    th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
    .error { color: #a00; }
  </style>
</head>
<body>
  <h1>Zone Weather</h1>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
  {{if .Forecast}}
  <h2>Forecast for {{.Forecast.ZoneID}}</h2>
  <table>
    <tr><th>Period</th><th>Temperature</th><th>Wind</th><th>Forecast</th></tr>
    {{range .Forecast.Periods}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.Temperature}}&deg;{{.TemperatureUnit}}</td>
      <td>{{.WindSpeed}} {{.WindDirection}}</td>
      <td>{{.ShortForecast}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
  {{if .Zones}}
  <h2>Forecast zones</h2>
  <table>
    <tr><th>Zone</th><th>Name</th><th>State</th><th>Stations</th></tr>
    {{range .Zones}}
    <tr>
      <td><a href="/?zone={{.Key}}">{{.Key}}</a></td>
      <td>{{.Name}}</td>
      <td>{{.State}}</td>
      <td>{{len .ObservationStations}}</td>
    </tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>
`
