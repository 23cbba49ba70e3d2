// Package weather looks up historical hourly temperatures from the
// Open-Meteo APIs for trip enrichment.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Default API endpoints. The archive API covers historical dates; the
// forecast API holds recent past data the archive hasn't caught up to yet.
const (
	DefaultArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// Source fetches the temperature in °F at a location for a specific hour
// of a calendar day. ok is false when no usable value is available; only
// transport-level problems are reported as errors.
type Source interface {
	HourlyTemperature(ctx context.Context, lat, lng float64, day time.Time, hour int) (temp float64, ok bool, err error)
}

// Client implements Source against the Open-Meteo archive API with a
// fallback to the forecast API for recent dates.
type Client struct {
	httpClient  *http.Client
	archiveURL  string
	forecastURL string
	logger      *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		archiveURL:  DefaultArchiveURL,
		forecastURL: DefaultForecastURL,
		logger:      logger,
	}
}

// NewClientWithURLs creates a client against explicit base URLs, used by
// tests and by configuration overrides.
func NewClientWithURLs(archiveURL, forecastURL string, timeout time.Duration, logger *slog.Logger) *Client {
	c := NewClient(timeout, logger)
	c.archiveURL = archiveURL
	c.forecastURL = forecastURL
	return c
}

// HourlyTemperature fetches the hourly temperature series for the given
// day and returns the value at the given hour index. The archive API is
// tried first; when it fails or returns no usable value the forecast API
// is tried once with the same request shape.
func (c *Client) HourlyTemperature(ctx context.Context, lat, lng float64, day time.Time, hour int) (float64, bool, error) {
	temp, ok, err := c.fetch(ctx, c.archiveURL, lat, lng, day, hour)
	if err == nil && ok {
		return temp, true, nil
	}
	if err != nil {
		c.logger.Debug("archive lookup failed, trying forecast",
			"lat", lat, "lng", lng, "date", day.Format("2006-01-02"), "error", err)
	}

	return c.fetch(ctx, c.forecastURL, lat, lng, day, hour)
}

func (c *Client) fetch(ctx context.Context, baseURL string, lat, lng float64, day time.Time, hour int) (float64, bool, error) {
	isoDate := day.Format("2006-01-02")
	params := url.Values{
		"latitude":         {fmt.Sprintf("%.6f", lat)},
		"longitude":        {fmt.Sprintf("%.6f", lng)},
		"start_date":       {isoDate},
		"end_date":         {isoDate},
		"hourly":           {"temperature_2m"},
		"temperature_unit": {"fahrenheit"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("temperature request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, false, fmt.Errorf("decode response: %w", err)
	}

	series := payload.Hourly.Temperature2m
	if hour < 0 || hour >= len(series) || series[hour] == nil {
		return 0, false, nil
	}

	return *series[hour], true, nil
}

// Open-Meteo API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

// Hours the archive hasn't ingested yet come back as JSON nulls.
type hourly struct {
	Temperature2m []*float64 `json:"temperature_2m"`
}
