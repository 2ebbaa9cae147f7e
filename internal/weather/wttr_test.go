// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

const wttrPayload = `{
  "current_condition": [{
    "temp_C": "18", "FeelsLikeC": "17", "humidity": "45", "windspeedKmph": "11",
    "weatherDesc": [{"value": "Partly cloudy"}],
    "lang_zh": [{"value": "局部多云"}]
  }],
  "nearest_area": [{"areaName": [{"value": "Beijing"}], "country": [{"value": "China"}]}],
  "weather": [
    {"date": "2026-03-02", "mintempC": "5", "maxtempC": "19",
     "hourly": [{"humidity": "30", "weatherDesc": [{"value": "Sunny"}]},
                {"humidity": "40", "weatherDesc": [{"value": "Clear"}]},
                {"humidity": "50", "weatherDesc": [{"value": "Sunny"}]}]},
    {"date": "2026-03-03", "mintempC": "4", "maxtempC": "10",
     "hourly": [{"humidity": "80", "weatherDesc": [{"value": "Light rain"}]}]},
    {"date": "2026-03-04", "mintempC": "1", "maxtempC": "8", "hourly": []}
  ]
}`

func newWttrServer(t *testing.T, handler http.HandlerFunc) *weather.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return weather.NewClient(weather.ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
}

func TestClient_FetchParsesSnapshot(t *testing.T) {
	var gotPath, gotFormat string
	c := newWttrServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("format")
		_, _ = w.Write([]byte(wttrPayload))
	})

	s, err := c.Fetch(context.Background(), " 北京 ")
	require.NoError(t, err)

	assert.Equal(t, "/北京", gotPath)
	assert.Equal(t, "j1", gotFormat)

	assert.Equal(t, "北京", s.City)
	assert.Equal(t, "Beijing", s.Area)
	assert.Equal(t, "China", s.Country)
	assert.Equal(t, 18.0, s.TemperatureC)
	assert.Equal(t, 17.0, s.FeelsLikeC)
	assert.Equal(t, 45, s.HumidityPct)
	assert.Equal(t, 11.0, s.WindSpeedKph)
	assert.Equal(t, "Partly cloudy", s.Condition)
	assert.True(t, s.Good())
	assert.False(t, s.UpdatedAt.IsZero())

	require.Len(t, s.Forecast, 3)
	assert.Equal(t, "周一", s.Forecast[0].DayOfWeek)
	assert.Equal(t, "Clear", s.Forecast[0].Condition, "mid-day hourly reading is used")
	assert.Equal(t, 40, s.Forecast[0].HumidityPct)
	assert.True(t, s.Forecast[0].Good)
	assert.Equal(t, "Light rain", s.Forecast[1].Condition)
	assert.False(t, s.Forecast[1].Good)
	assert.Equal(t, "Unknown", s.Forecast[2].Condition)
	assert.Equal(t, 8.0, s.Forecast[2].TempMaxC)
}

func TestClient_FetchLocalizedCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "zh", r.URL.Query().Get("lang"))
		_, _ = w.Write([]byte(wttrPayload))
	}))
	t.Cleanup(srv.Close)

	c := weather.NewClient(weather.ClientConfig{BaseURL: srv.URL, Lang: "zh"})
	s, err := c.Fetch(context.Background(), "北京")
	require.NoError(t, err)
	assert.Equal(t, "局部多云", s.Condition)
}

func TestClient_ForecastDaysLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(wttrPayload))
	}))
	t.Cleanup(srv.Close)

	c := weather.NewClient(weather.ClientConfig{BaseURL: srv.URL, ForecastDays: 1})
	s, err := c.Fetch(context.Background(), "Beijing")
	require.NoError(t, err)
	assert.Len(t, s.Forecast, 1)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		code   xzerr.Code
	}{
		{name: "unknown city", status: http.StatusNotFound, body: "Unknown location", check: xzerr.IsNotFound, code: xzerr.CodeWeatherCityNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", check: xzerr.IsUpstreamFailure, code: xzerr.CodeWeatherUpstreamFailure},
		{name: "malformed json", status: http.StatusOK, body: "{not json", check: xzerr.IsUpstreamFailure, code: xzerr.CodeWeatherResponseInvalid},
		{name: "missing current condition", status: http.StatusOK, body: `{"current_condition": []}`, check: xzerr.IsUpstreamFailure, code: xzerr.CodeWeatherResponseInvalid},
		{name: "non numeric temperature", status: http.StatusOK, body: `{"current_condition": [{"temp_C": "warm"}]}`, check: xzerr.IsUpstreamFailure, code: xzerr.CodeWeatherResponseInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newWttrServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Fetch(context.Background(), "somewhere")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected classification for %v", err)
			assert.Equal(t, tt.code, xzerr.CodeOf(err))
		})
	}
}

func TestClient_FetchEmptyCity(t *testing.T) {
	c := weather.NewClient(weather.ClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Fetch(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, xzerr.IsInvalidInput(err))
}

func TestClient_FetchCancelledContext(t *testing.T) {
	c := newWttrServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(wttrPayload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "北京")
	require.Error(t, err)
	assert.True(t, xzerr.IsUpstreamFailure(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsGoodWeather(t *testing.T) {
	tests := []struct {
		condition string
		good      bool
	}{
		{"Sunny", true},
		{"Clear", true},
		{"Partly cloudy", true},
		{"晴", true},
		{"多云", true},
		{"Cloudy", false},
		{"Overcast", false},
		{"Light rain", false},
		{"Thundery outbreaks", false},
		{"小雨", false},
		{"阴", false},
		{"Something unexpected", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.good, weather.IsGoodWeather(tt.condition), tt.condition)
	}
}

func TestDayOfWeek(t *testing.T) {
	assert.Equal(t, "周日", weather.DayOfWeek(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "周六", weather.DayOfWeek(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)))
}
