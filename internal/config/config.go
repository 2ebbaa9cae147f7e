// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package config loads the xiaozhu configuration record from defaults,
// xiaozhu.yaml, XIAOZHU_* environment variables and flags.
package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. XIAOZHU_MODEL_API_KEY.
const EnvPrefix = "XIAOZHU"

// Config is the top-level configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model" yaml:"model"`
	Weather WeatherConfig `mapstructure:"weather" yaml:"weather"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ModelConfig selects the language model. Provider names a preset whose
// endpoint and model fill BaseURL and Name when they are empty.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Name        string  `mapstructure:"name" yaml:"name,omitempty"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// WeatherConfig points at the wttr.in compatible weather service.
type WeatherConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ForecastDays int           `mapstructure:"forecast_days" yaml:"forecast_days"`
	Lang         string        `mapstructure:"lang" yaml:"lang"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen      string          `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig limits requests per client IP. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// HistoryConfig bounds the conversation history sent to the model.
type HistoryConfig struct {
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
}

// LogConfig controls the slog handler installed by the CLI.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", provider.PresetOpenAI)
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "")
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.max_tokens", 2000)
	v.SetDefault("weather.base_url", "https://wttr.in")
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.forecast_days", 5)
	v.SetDefault("weather.lang", "zh")
	v.SetDefault("server.listen", "127.0.0.1:18790")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.requests_per_second", 0)
	v.SetDefault("server.rate_limit.burst", 0)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.data_dir", DefaultDataDir())
	v.SetDefault("history.max_turns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// SetupEnv binds XIAOZHU_* environment variables to config keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// DefaultDataDir returns ~/.local/share/xiaozhu, or ./.xiaozhu when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xiaozhu"
	}
	return filepath.Join(home, ".local", "share", "xiaozhu")
}

// Load reads configuration from path (or defaults only when empty) with
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, xzerr.Wrapf(err, xzerr.CodeConfigLoadReadFailure, "reading config %s", path)
		}
	}
	return FromViper(v, nil)
}

// FromViper decodes v into a Config, resolving keyring:// secrets through
// store (skipped when nil) and filling preset defaults. All validation
// problems are reported together.
func FromViper(v *viper.Viper, store secrets.Store) (*Config, error) {
	if store != nil {
		if err := secrets.ResolveViperSecrets(v, store); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeConfigParseInvalidFormat, "unmarshalling config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, xzerr.Wrapf(errors.Join(errs...), xzerr.CodeConfigValidateInvalidValue, "validating config")
	}
	cfg.ApplyPreset()
	cfg.Storage.DataDir = ExpandHome(cfg.Storage.DataDir)
	return &cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != filepath.Separator) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Preset returns the provider preset named by Model.Provider.
func (c *Config) Preset() (provider.Preset, error) {
	return provider.LookupPreset(c.Model.Provider)
}

// ApplyPreset fills an empty BaseURL and Name from the provider preset.
func (c *Config) ApplyPreset() {
	p, err := c.Preset()
	if err != nil {
		return
	}
	c.Model.Provider = p.Name
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = p.BaseURL
	}
	if c.Model.Name == "" {
		c.Model.Name = p.DefaultModel
	}
}

// Redacted returns a copy safe to print: a literal API key is masked, a
// keyring reference is kept.
func (c Config) Redacted() Config {
	if key := c.Model.APIKey; key != "" && !secrets.IsKeyringURI(key) {
		c.Model.APIKey = MaskKey(key)
	}
	c.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return c
}

// MaskKey keeps the first and last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Validate checks the configuration for logical errors. It collects every
// problem rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateModel()...)
	errs = append(errs, c.validateWeather()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateLog()...)

	if c.History.MaxTurns < 0 {
		errs = append(errs, invalid("history.max_turns must not be negative, got %d", c.History.MaxTurns))
	}
	return errs
}

func (c *Config) validateModel() []error {
	var errs []error

	p, err := provider.LookupPreset(c.Model.Provider)
	if err != nil {
		names := make([]string, 0, len(provider.Presets()))
		for _, p := range provider.Presets() {
			names = append(names, p.Name)
		}
		errs = append(errs, invalid("model.provider must be one of [%s], got %q",
			strings.Join(names, ", "), c.Model.Provider))
	} else if p.Name == provider.PresetCustom {
		if c.Model.BaseURL == "" {
			errs = append(errs, invalid("model.base_url is required for the custom provider"))
		}
		if c.Model.Name == "" {
			errs = append(errs, invalid("model.name is required for the custom provider"))
		}
	}

	if c.Model.BaseURL != "" {
		if u, err := url.Parse(c.Model.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, invalid("model.base_url must be an absolute URL, got %q", c.Model.BaseURL))
		}
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, invalid("model.temperature must be between 0 and 2, got %g", c.Model.Temperature))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, invalid("model.max_tokens must be greater than 0, got %d", c.Model.MaxTokens))
	}
	return errs
}

func (c *Config) validateWeather() []error {
	var errs []error

	if u, err := url.Parse(c.Weather.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, invalid("weather.base_url must be an absolute URL, got %q", c.Weather.BaseURL))
	}
	if c.Weather.Timeout <= 0 {
		errs = append(errs, invalid("weather.timeout must be positive, got %s", c.Weather.Timeout))
	}
	if c.Weather.ForecastDays < 1 || c.Weather.ForecastDays > 5 {
		errs = append(errs, invalid("weather.forecast_days must be between 1 and 5, got %d", c.Weather.ForecastDays))
	}
	return errs
}

func (c *Config) validateServer() []error {
	if c.Server.Listen == "" {
		return []error{invalid("server.listen must not be empty")}
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{invalid("server.listen must be a valid host:port address, got %q", c.Server.Listen)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{invalid("server.listen port must be a number, got %q", portStr)}
	}
	if port < 1 || port > 65535 {
		return []error{invalid("server.listen port must be between 1 and 65535, got %d", port)}
	}

	rl := c.Server.RateLimit
	if rl.RequestsPerSecond < 0 {
		return []error{invalid("server.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond)}
	}
	if rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		return []error{invalid("server.rate_limit.burst must be positive when a rate is set, got %d", rl.Burst)}
	}
	return nil
}

func (c *Config) validateStorage() []error {
	var errs []error

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.DataDir == "" {
			errs = append(errs, invalid("storage.data_dir must not be empty for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, invalid("storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend))
	}
	return errs
}

func (c *Config) validateLog() []error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, invalid("log.format must be one of [text, json], got %q", c.Log.Format))
	}
	return errs
}

func invalid(format string, args ...any) error {
	return xzerr.Errorf(xzerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}
