package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mwhitford/zone-weather-service/internal/models"
)

// ForecastClient fetches forecasts from the National Weather Service API.
type ForecastClient interface {
	GetForecast(ctx context.Context, zoneID string) (models.Forecast, error)
}

var (
	ErrZoneNotFound    = errors.New("zone not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// Client talks to api.weather.gov. The NWS API requires a User-Agent
// identifying the application; requests without one are rejected.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewClient creates a Client for the given base URL. Outbound requests carry
// the otelhttp transport so spans propagate to the collector.
func NewClient(baseURL, userAgent string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// forecastResponse mirrors the NWS zone forecast payload.
type forecastResponse struct {
	Properties struct {
		Updated time.Time `json:"updated"`
		Periods []struct {
			Number           int    `json:"number"`
			Name             string `json:"name"`
			Temperature      int    `json:"temperature"`
			TemperatureUnit  string `json:"temperatureUnit"`
			WindSpeed        string `json:"windSpeed"`
			WindDirection    string `json:"windDirection"`
			ShortForecast    string `json:"shortForecast"`
			DetailedForecast string `json:"detailedForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

// GetForecast fetches the forecast for zoneID. Failures are returned to the
// caller unchanged; there is no retry here.
func (c *Client) GetForecast(ctx context.Context, zoneID string) (models.Forecast, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, zoneID)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.Forecast{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.Forecast{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return models.Forecast{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.Forecast{}, fmt.Errorf("parse response: %w", err)
	}

	return c.mapResponse(apiResp, zoneID), nil
}

func (c *Client) buildRequest(ctx context.Context, zoneID string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/zones/forecast/%s/forecast", c.baseURL, url.PathEscape(zoneID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrZoneNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

// mapResponse converts the NWS payload, preserving the upstream period order.
func (c *Client) mapResponse(apiResp forecastResponse, zoneID string) models.Forecast {
	periods := make([]models.ForecastPeriod, 0, len(apiResp.Properties.Periods))
	for _, p := range apiResp.Properties.Periods {
		periods = append(periods, models.ForecastPeriod{
			Number:           p.Number,
			Name:             p.Name,
			Temperature:      p.Temperature,
			TemperatureUnit:  p.TemperatureUnit,
			WindSpeed:        p.WindSpeed,
			WindDirection:    p.WindDirection,
			ShortForecast:    p.ShortForecast,
			DetailedForecast: p.DetailedForecast,
		})
	}
	return models.Forecast{
		ZoneID:  zoneID,
		Updated: apiResp.Properties.Updated,
		Periods: periods,
	}
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

// StatusLabel returns a stable metric label for an upstream error.
func StatusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrZoneNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamFailure):
		return "upstream_error"
	default:
		return "error"
	}
}
