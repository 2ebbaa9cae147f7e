// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package weather

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// MaxForecastDays bounds the forecast carried by a Snapshot.
const MaxForecastDays = 5

// Fetcher resolves a free-text city query into a Snapshot.
// Implementations return a not_found coded error for unknown places and an
// upstream coded error for transport or payload failures.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (Snapshot, error)
}

// Snapshot is a point-in-time weather reading for a city plus a short forecast.
// It is treated as immutable once returned by a Fetcher.
type Snapshot struct {
	City         string        `json:"city"`
	Area         string        `json:"area,omitempty"`
	Country      string        `json:"country,omitempty"`
	TemperatureC float64       `json:"temperature_c"`
	FeelsLikeC   float64       `json:"feels_like_c"`
	HumidityPct  int           `json:"humidity_pct"`
	WindSpeedKph float64       `json:"wind_speed_kph"`
	Condition    string        `json:"condition"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Forecast     []ForecastDay `json:"forecast,omitempty"`
}

// ForecastDay is one day of a Snapshot's forecast.
type ForecastDay struct {
	Date        string  `json:"date"`
	DayOfWeek   string  `json:"day_of_week"`
	TempMinC    float64 `json:"temp_min_c"`
	TempMaxC    float64 `json:"temp_max_c"`
	HumidityPct int     `json:"humidity_pct"`
	Condition   string  `json:"condition"`
	Good        bool    `json:"good"`
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	s.Forecast = slices.Clone(s.Forecast)
	return s
}

// Good reports whether the current condition counts as pleasant weather.
func (s Snapshot) Good() bool {
	return IsGoodWeather(s.Condition)
}

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// DayOfWeek returns the Chinese short weekday name for t.
func DayOfWeek(t time.Time) string {
	return weekdayNames[t.Weekday()]
}

// Longer phrases come first so "partly cloudy" wins over the bad "cloudy".
var goodConditions = []string{"partly cloudy", "sunny", "clear", "bright", "fair", "fine", "多云", "少云", "晴"}

var badConditions = []string{
	"thunder", "drizzle", "shower", "overcast", "cloudy", "storm", "sleet",
	"rain", "snow", "hail", "fog", "mist", "雨", "雪", "雷", "阴", "雾",
}

// IsGoodWeather classifies a condition description. Unknown descriptions
// count as good.
func IsGoodWeather(condition string) bool {
	c := strings.ToLower(condition)
	for _, good := range goodConditions {
		if strings.Contains(c, good) {
			return true
		}
	}
	for _, bad := range badConditions {
		if strings.Contains(c, bad) {
			return false
		}
	}
	return true
}

// Summary renders a one-line Chinese description, e.g.
// "北京：晴，25°C（体感 27°C），湿度 40%".
func (s Snapshot) Summary() string {
	return fmt.Sprintf("%s：%s，%.0f°C（体感 %.0f°C），湿度 %d%%",
		s.City, s.Condition, s.TemperatureC, s.FeelsLikeC, s.HumidityPct)
}
