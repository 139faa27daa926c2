// Package weather fetches current conditions by coordinates and caches
// them per saved location with a fixed freshness window.
package weather

import (
	"context"
	"time"
)

// Condition is a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// Snapshot is a normalized weather reading at a point in time.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperatureC"`
	WindSpeed   float64   `json:"windSpeed"`
	Condition   Condition `json:"condition"`
}

// Provider abstracts a weather data source queried by coordinates.
type Provider interface {
	Name() string
	Current(ctx context.Context, lat, lon float64) (Snapshot, error)
}
