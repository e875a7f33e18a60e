package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

const (
	defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	defaultWeatherUnits   = "metric"
)

type weatherRequest struct {
	Location string `json:"location"`
	Units    string `json:"units"`
}

type owmResponse struct {
	Cod        json.RawMessage `json:"cod"`
	Message    string          `json:"message"`
	Name       string          `json:"name"`
	Visibility float64         `json:"visibility"`
	Sys        struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func init() {
	toolcore.RegisterBuiltin("get_weather", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		baseURL := strings.TrimSpace(options.WeatherBaseURL)
		if baseURL == "" {
			baseURL = defaultWeatherBaseURL
		}

		return &WeatherTool{
			Client:  newHTTPClient(options.TimeoutOr(options.WeatherTimeout)),
			BaseURL: baseURL,
			APIKey:  options.WeatherAPIKey,
		}, nil
	})
}

// WeatherTool reads current conditions from OpenWeatherMap.
type WeatherTool struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get current weather information for a specific location"
}

func (t *WeatherTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source: "builtin",
		Capabilities: []string{
			"weather.query",
			"http.get",
		},
		Risk:    toolcore.RiskLow,
		Network: true,
	}
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "The city name or location to get weather for",
			},
			"units": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"metric", "imperial"},
				"description": "Temperature units (metric for Celsius, imperial for Fahrenheit)",
			},
		},
		"required": []string{"location"},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	var args weatherRequest
	if err := decodeArgs(inv.Args, &args); err != nil {
		return toolcore.Result{}, err
	}

	location := strings.TrimSpace(args.Location)
	if location == "" {
		return toolcore.Fail("location is required"), nil
	}
	units := strings.TrimSpace(args.Units)
	if units == "" {
		units = defaultWeatherUnits
	}

	endpoint, err := buildURL(t.BaseURL, url.Values{
		"q":     {location},
		"units": {units},
		"appid": {t.APIKey},
	})
	if err != nil {
		return toolcore.Result{}, err
	}

	var payload owmResponse
	if err := getJSON(ctx, t.Client, endpoint, nil, &payload); err != nil {
		var se *statusError
		if !errors.As(err, &se) {
			return toolcore.Failf("Weather lookup failed: %v", err), nil
		}
	}
	if !codIsOK(payload.Cod) {
		return toolcore.Failf("Weather data not found for %s", location), nil
	}

	tempUnit, windUnit := "°C", "m/s"
	if units == "imperial" {
		tempUnit, windUnit = "°F", "mph"
	}

	description := ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	return toolcore.OK(map[string]string{
		"location":    payload.Name,
		"country":     payload.Sys.Country,
		"temperature": fmt.Sprintf("%d%s", int(math.Round(payload.Main.Temp)), tempUnit),
		"feels_like":  fmt.Sprintf("%d%s", int(math.Round(payload.Main.FeelsLike)), tempUnit),
		"humidity":    formatNumber(payload.Main.Humidity) + "%",
		"description": description,
		"wind_speed":  formatNumber(payload.Wind.Speed) + " " + windUnit,
		"pressure":    formatNumber(payload.Main.Pressure) + " hPa",
		"visibility":  formatNumber(payload.Visibility/1000) + " km",
	}), nil
}

// codIsOK reports a 200 cod. OpenWeatherMap sends it as a number on success
// and as a string such as "404" on errors.
func codIsOK(raw json.RawMessage) bool {
	trimmed := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return trimmed == "200"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
