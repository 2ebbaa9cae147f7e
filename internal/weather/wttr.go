// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// DefaultBaseURL is the public wttr.in endpoint.
const DefaultBaseURL = "https://wttr.in"

// ClientConfig holds wttr.in client configuration.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	ForecastDays int
	// Lang selects localized condition text (e.g. "zh"). Empty keeps English.
	Lang string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client fetches snapshots from the wttr.in JSON API.
type Client struct {
	baseURL      string
	http         *http.Client
	forecastDays int
	lang         string
	now          func() time.Time
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a wttr.in client, filling unset fields with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ForecastDays <= 0 || cfg.ForecastDays > MaxForecastDays {
		cfg.ForecastDays = MaxForecastDays
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		http:         hc,
		forecastDays: cfg.ForecastDays,
		lang:         cfg.Lang,
		now:          time.Now,
	}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, city string) (Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Snapshot{}, xzerr.New(xzerr.CodeWeatherCityInvalid, "city must not be empty")
	}

	q := url.Values{"format": {"j1"}}
	if c.lang != "" {
		q.Set("lang", c.lang)
	}
	endpoint := c.baseURL + "/" + url.PathEscape(city) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Snapshot{}, xzerr.Wrapf(err, xzerr.CodeWeatherUpstreamFailure, "building weather request for %q", city)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, xzerr.Wrap(err, xzerr.CodeWeatherUpstreamFailure, "weather service unreachable", xzerr.FieldCity(city))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Snapshot{}, xzerr.New(xzerr.CodeWeatherCityNotFound, fmt.Sprintf("未找到城市: %s", city), xzerr.FieldCity(city))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Snapshot{}, xzerr.New(xzerr.CodeWeatherUpstreamFailure,
			fmt.Sprintf("weather service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			xzerr.FieldCity(city))
	}

	var payload wttrResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, xzerr.Wrap(err, xzerr.CodeWeatherResponseInvalid, "decoding weather payload", xzerr.FieldCity(city))
	}

	snap, err := c.toSnapshot(city, payload)
	if err != nil {
		return Snapshot{}, xzerr.With(err, xzerr.FieldCity(city))
	}
	slog.Debug("weather fetched", "city", city, "condition", snap.Condition, "forecast_days", len(snap.Forecast))
	return snap, nil
}

type wttrValue struct {
	Value string `json:"value"`
}

type wttrCondition struct {
	TempC         string      `json:"temp_C"`
	FeelsLikeC    string      `json:"FeelsLikeC"`
	Humidity      string      `json:"humidity"`
	WindSpeedKmph string      `json:"windspeedKmph"`
	WeatherDesc   []wttrValue `json:"weatherDesc"`
	LangZH        []wttrValue `json:"lang_zh"`
}

type wttrArea struct {
	AreaName []wttrValue `json:"areaName"`
	Country  []wttrValue `json:"country"`
}

type wttrDay struct {
	Date     string          `json:"date"`
	MinTempC string          `json:"mintempC"`
	MaxTempC string          `json:"maxtempC"`
	Hourly   []wttrCondition `json:"hourly"`
}

type wttrResponse struct {
	CurrentCondition []wttrCondition `json:"current_condition"`
	NearestArea      []wttrArea      `json:"nearest_area"`
	Weather          []wttrDay       `json:"weather"`
}

func (c *Client) toSnapshot(city string, payload wttrResponse) (Snapshot, error) {
	if len(payload.CurrentCondition) == 0 {
		return Snapshot{}, xzerr.New(xzerr.CodeWeatherResponseInvalid, "weather payload has no current condition")
	}
	cur := payload.CurrentCondition[0]

	var p numParser
	snap := Snapshot{
		City:         city,
		TemperatureC: p.float("temp_C", cur.TempC),
		FeelsLikeC:   p.float("FeelsLikeC", cur.FeelsLikeC),
		HumidityPct:  p.integer("humidity", cur.Humidity),
		WindSpeedKph: p.float("windspeedKmph", cur.WindSpeedKmph),
		Condition:    c.describe(cur),
		UpdatedAt:    c.now(),
	}
	if len(payload.NearestArea) > 0 {
		snap.Area = first(payload.NearestArea[0].AreaName)
		snap.Country = first(payload.NearestArea[0].Country)
	}

	for _, day := range payload.Weather {
		if len(snap.Forecast) == c.forecastDays {
			break
		}
		fd := ForecastDay{
			Date:     day.Date,
			TempMinC: p.float("mintempC", day.MinTempC),
			TempMaxC: p.float("maxtempC", day.MaxTempC),
		}
		if t, err := time.Parse(time.DateOnly, day.Date); err == nil {
			fd.DayOfWeek = DayOfWeek(t)
		}
		if len(day.Hourly) > 0 {
			mid := day.Hourly[len(day.Hourly)/2]
			fd.Condition = c.describe(mid)
			fd.HumidityPct = p.integer("humidity", mid.Humidity)
		}
		fd.Good = IsGoodWeather(fd.Condition)
		snap.Forecast = append(snap.Forecast, fd)
	}

	if p.err != nil {
		return Snapshot{}, p.err
	}
	return snap, nil
}

func (c *Client) describe(cond wttrCondition) string {
	if c.lang == "zh" {
		if v := first(cond.LangZH); v != "" {
			return v
		}
	}
	if v := first(cond.WeatherDesc); v != "" {
		return v
	}
	return "Unknown"
}

func first(vals []wttrValue) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}

// numParser keeps the first conversion error so the mapping code stays flat.
type numParser struct {
	err error
}

func (p *numParser) float(field, raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = xzerr.Wrapf(err, xzerr.CodeWeatherResponseInvalid, "parsing %s %q", field, raw)
	}
	return v
}

func (p *numParser) integer(field, raw string) int {
	return int(p.float(field, raw))
}
