package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrab/famulus/internal/weather"
)

// WeatherTool answers current-conditions and hourly-forecast questions
// via Open-Meteo. It owns no store; dry-run and normal runs are identical.
type WeatherTool struct {
	client *weather.Client
}

func NewWeatherTool(c *weather.Client) *WeatherTool {
	return &WeatherTool{client: c}
}

func (t *WeatherTool) Name() string { return NameWeather }

func (t *WeatherTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)
	if action == "list" || action == "find" {
		action = "current"
	}

	city := stringField(p, "city")
	if city == "" {
		return errResult(NameWeather, "weather", action, ErrMissingCity, "weather requires a city")
	}

	loc, err := t.client.Geocode(ctx, city)
	if err != nil {
		if errors.Is(err, weather.ErrCityNotFound) {
			return errResult(NameWeather, "weather", action, ErrCityNotFound, fmt.Sprintf("could not find city %q", city))
		}
		return errResult(NameWeather, "weather", action, "provider_unavailable", err.Error())
	}

	date := stringField(p, "date")
	hour, hasHour := intField(p, "hour")

	// A date plus hour selects the hourly forecast branch; otherwise
	// report current conditions.
	if date != "" && hasHour {
		hourly, err := t.client.HourlyForecast(ctx, loc)
		if err != nil {
			return errResult(NameWeather, "weather", "forecast", "provider_unavailable", err.Error())
		}
		temp, code, ok := hourly.At(date, hour)
		if !ok {
			return errResult(NameWeather, "weather", "forecast", ErrNotFound, fmt.Sprintf("no forecast slot for %s %02d:00", date, hour))
		}
		r := baseResult(NameWeather, "weather", "forecast")
		r["city"] = loc.Name
		r["country"] = loc.Country
		r["date"] = date
		r["hour"] = hour
		r["day_phrase"] = stringField(p, "day_phrase")
		r["temperature"] = temp
		r["condition"] = weather.Describe(code)
		return r
	}

	current, err := t.client.CurrentWeather(ctx, loc)
	if err != nil {
		return errResult(NameWeather, "weather", "current", "provider_unavailable", err.Error())
	}
	r := baseResult(NameWeather, "weather", "current")
	r["city"] = loc.Name
	r["country"] = loc.Country
	r["temperature"] = current.Temperature
	r["wind_speed"] = current.WindSpeed
	r["condition"] = weather.Describe(current.WeatherCode)
	return r
}
