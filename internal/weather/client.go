// Package weather wraps the Open-Meteo geocoding and forecast APIs.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGeoURL      = "https://geocoding-api.open-meteo.com"
	defaultForecastURL = "https://api.open-meteo.com"
	requestTimeout     = 8 * time.Second
	maxRetries         = 3
	backoffFactor      = 0.2
)

// ErrCityNotFound is returned when geocoding yields no result.
var ErrCityNotFound = errors.New("city not found")

// Client calls Open-Meteo. The zero API key requirement keeps this the
// default provider.
type Client struct {
	geoURL      string
	forecastURL string
	httpClient  *http.Client
}

// New creates a weather client with the production endpoints.
func New() *Client {
	return &Client{
		geoURL:      defaultGeoURL,
		forecastURL: defaultForecastURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
}

// NewWithBaseURLs creates a client pointing at custom endpoints (for testing).
func NewWithBaseURLs(geoURL, forecastURL string) *Client {
	c := New()
	c.geoURL = geoURL
	c.forecastURL = forecastURL
	return c
}

// Location is a geocoding result.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// Current holds the current-conditions branch of a forecast response.
type Current struct {
	Temperature float64 `json:"temperature_2m"`
	WindSpeed   float64 `json:"wind_speed_10m"`
	WeatherCode int     `json:"weather_code"`
}

// Hourly holds the hourly branch of a forecast response.
type Hourly struct {
	Time        []string  `json:"time"`
	Temperature []float64 `json:"temperature_2m"`
	WeatherCode []int     `json:"weather_code"`
}

// Geocode resolves a city name to its first matching location.
func (c *Client) Geocode(ctx context.Context, city string) (Location, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")

	var resp struct {
		Results []Location `json:"results"`
	}
	if err := c.getJSON(ctx, c.geoURL+"/v1/search?"+q.Encode(), &resp); err != nil {
		return Location{}, err
	}
	if len(resp.Results) == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrCityNotFound, city)
	}
	return resp.Results[0], nil
}

// CurrentWeather fetches current conditions for a location.
func (c *Client) CurrentWeather(ctx context.Context, loc Location) (Current, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("current", "temperature_2m,wind_speed_10m,weather_code")

	var resp struct {
		Current Current `json:"current"`
	}
	if err := c.getJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), &resp); err != nil {
		return Current{}, err
	}
	return resp.Current, nil
}

// HourlyForecast fetches the hourly forecast for a location.
func (c *Client) HourlyForecast(ctx context.Context, loc Location) (Hourly, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("hourly", "temperature_2m,weather_code")

	var resp struct {
		Hourly Hourly `json:"hourly"`
	}
	if err := c.getJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), &resp); err != nil {
		return Hourly{}, err
	}
	return resp.Hourly, nil
}

// At returns the forecast slot matching date (2006-01-02) and hour, if present.
func (h Hourly) At(date string, hour int) (temp float64, code int, ok bool) {
	want := fmt.Sprintf("%sT%02d:00", date, hour)
	for i, t := range h.Time {
		if t == want && i < len(h.Temperature) && i < len(h.WeatherCode) {
			return h.Temperature[i], h.WeatherCode[i], true
		}
	}
	return 0, 0, false
}

// transientError marks responses worth retrying (429 and 5xx).
type transientError struct {
	status int
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient upstream error (HTTP %d)", e.status)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	var lastErr error
	for attempt := range maxRetries {
		err := c.doGet(ctx, rawURL, v)
		if err == nil {
			return nil
		}
		var te *transientError
		if !errors.As(err, &te) {
			return err
		}
		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(backoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doGet(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &transientError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Describe translates a WMO weather code into a short phrase.
func Describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "foggy"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}
