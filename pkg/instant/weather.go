package instant

import (
	"context"
	"fmt"
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Conditions describes current weather at a location.
type Conditions struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	WindUnit    string  `json:"wind_unit"`
}

// StaticWeather serves a fixed condition model, optionally overridden
// per city. It stands in until a live provider is wired.
type StaticWeather struct {
	Defaults Conditions
	ByCity   map[string]Conditions
}

// NewStaticWeather creates a provider with mild defaults.
func NewStaticWeather() *StaticWeather {
	return &StaticWeather{
		Defaults: Conditions{
			Temperature: 22.5,
			Unit:        "C",
			Condition:   "Partly Cloudy",
			Humidity:    65,
			WindSpeed:   12.5,
			WindUnit:    "km/h",
		},
	}
}

// Current implements WeatherProvider.
func (w *StaticWeather) Current(_ context.Context, location string) (*types.InstantAnswer, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("no location")
	}

	cond, ok := w.ByCity[strings.ToLower(location)]
	if !ok {
		cond = w.Defaults
	}
	cond.Location = location

	return &types.InstantAnswer{
		Type:   "weather",
		Query:  "weather " + location,
		Result: fmt.Sprintf("%.0f°%s, %s", cond.Temperature, cond.Unit, cond.Condition),
		Data:   cond,
	}, nil
}
