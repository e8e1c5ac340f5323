package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("name"); got != "Paris" {
			t.Errorf("name = %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "1" {
			t.Errorf("count = %q", got)
		}
		w.Write([]byte(`{"results":[{"name":"Paris","latitude":48.85,"longitude":2.35,"country":"France"}]}`))
	}))
	defer srv.Close()

	c := NewWithBaseURLs(srv.URL, srv.URL)
	loc, err := c.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if loc.Name != "Paris" || loc.Country != "France" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestGeocodeCityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewWithBaseURLs(srv.URL, srv.URL)
	_, err := c.Geocode(context.Background(), "Nowhereville")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
}

func TestGetJSONRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"current":{"temperature_2m":21.5,"wind_speed_10m":3.2,"weather_code":2}}`))
	}))
	defer srv.Close()

	c := NewWithBaseURLs(srv.URL, srv.URL)
	cur, err := c.CurrentWeather(context.Background(), Location{Latitude: 48.85, Longitude: 2.35})
	if err != nil {
		t.Fatalf("CurrentWeather: %v", err)
	}
	if cur.Temperature != 21.5 || cur.WeatherCode != 2 {
		t.Errorf("unexpected current %+v", cur)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGetJSONDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewWithBaseURLs(srv.URL, srv.URL)
	if _, err := c.Geocode(context.Background(), "Paris"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call for 400, got %d", calls.Load())
	}
}

func TestHourlyAt(t *testing.T) {
	h := Hourly{
		Time:        []string{"2026-07-01T17:00", "2026-07-01T18:00"},
		Temperature: []float64{19.5, 18.2},
		WeatherCode: []int{2, 61},
	}
	temp, code, ok := h.At("2026-07-01", 18)
	if !ok || temp != 18.2 || code != 61 {
		t.Errorf("At = %v, %v, %v", temp, code, ok)
	}
	if _, _, ok := h.At("2026-07-02", 9); ok {
		t.Error("expected missing slot")
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, "clear sky"},
		{2, "partly cloudy"},
		{45, "foggy"},
		{61, "rain"},
		{71, "snow"},
		{95, "thunderstorm"},
	}
	for _, c := range cases {
		if got := Describe(c.code); got != c.want {
			t.Errorf("Describe(%d) = %q, want %q", c.code, got, c.want)
		}
	}
}
