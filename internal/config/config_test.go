// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/config"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xiaozhu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Model.BaseURL)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Model.Name)
	assert.InDelta(t, 0.7, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 2000, cfg.Model.MaxTokens)
	assert.Equal(t, "https://wttr.in", cfg.Weather.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, 5, cfg.Weather.ForecastDays)
	assert.Equal(t, "127.0.0.1:18790", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 10, cfg.History.MaxTurns)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: deepseek
  api_key: sk-test
weather:
  timeout: 3s
server:
  listen: "0.0.0.0:9999"
storage:
  backend: memory
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.Model.Provider)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.Model.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.Model.Name)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoad_ExplicitEndpointWins(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: qwen
  base_url: http://localhost:8000/v1
  name: qwen-max
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/v1", cfg.Model.BaseURL)
	assert.Equal(t, "qwen-max", cfg.Model.Name)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XIAOZHU_SERVER_LISTEN", "10.0.0.1:8080")
	t.Setenv("XIAOZHU_MODEL_API_KEY", "sk-env")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "sk-env", cfg.Model.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, xzerr.HasCode(err, xzerr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: nonexistent
server:
  listen: "not-an-address"
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, xzerr.HasCode(err, xzerr.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "model.provider")
	assert.Contains(t, err.Error(), "server.listen")
}

func validConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return *cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "custom without endpoint", mutate: func(c *config.Config) {
			c.Model.Provider, c.Model.BaseURL = "custom", ""
		}, wantErr: "model.base_url is required"},
		{name: "relative base url", mutate: func(c *config.Config) { c.Model.BaseURL = "api/v1" }, wantErr: "model.base_url"},
		{name: "temperature", mutate: func(c *config.Config) { c.Model.Temperature = 2.5 }, wantErr: "model.temperature"},
		{name: "max tokens", mutate: func(c *config.Config) { c.Model.MaxTokens = 0 }, wantErr: "model.max_tokens"},
		{name: "weather url", mutate: func(c *config.Config) { c.Weather.BaseURL = "" }, wantErr: "weather.base_url"},
		{name: "weather timeout", mutate: func(c *config.Config) { c.Weather.Timeout = 0 }, wantErr: "weather.timeout"},
		{name: "forecast days", mutate: func(c *config.Config) { c.Weather.ForecastDays = 9 }, wantErr: "weather.forecast_days"},
		{name: "port out of range", mutate: func(c *config.Config) { c.Server.Listen = "127.0.0.1:70000" }, wantErr: "between 1 and 65535"},
		{name: "empty listen", mutate: func(c *config.Config) { c.Server.Listen = "" }, wantErr: "server.listen"},
		{name: "rate without burst", mutate: func(c *config.Config) { c.Server.RateLimit.RequestsPerSecond = 2 }, wantErr: "server.rate_limit.burst"},
		{name: "backend", mutate: func(c *config.Config) { c.Storage.Backend = "postgres" }, wantErr: "storage.backend"},
		{name: "sqlite without dir", mutate: func(c *config.Config) { c.Storage.DataDir = "" }, wantErr: "storage.data_dir"},
		{name: "negative turns", mutate: func(c *config.Config) { c.History.MaxTurns = -1 }, wantErr: "history.max_turns"},
		{name: "log level", mutate: func(c *config.Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "log format", mutate: func(c *config.Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.wantErr)
			assert.True(t, xzerr.IsInvalidInput(errs[0]))
		})
	}
}

func TestFromViper_ResolvesKeyringSecret(t *testing.T) {
	keyring.MockInit()
	store := secrets.NewKeyringStore()
	uri, err := secrets.SaveAPIKey(store, "openai", "sk-from-keyring")
	require.NoError(t, err)

	v := viper.New()
	config.SetDefaults(v)
	v.Set("model.api_key", uri)

	cfg, err := config.FromViper(v, store)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-keyring", cfg.Model.APIKey)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := validConfig(t)
	cfg.Model.APIKey = "sk-1234567890abcdef"

	red := cfg.Redacted()
	assert.Equal(t, "sk-1***********cdef", red.Model.APIKey)
	assert.Equal(t, "sk-1234567890abcdef", cfg.Model.APIKey)

	cfg.Model.APIKey = "keyring://xiaozhu/openai-api-key"
	assert.Equal(t, cfg.Model.APIKey, cfg.Redacted().Model.APIKey)

	assert.Equal(t, "****", config.MaskKey("abcd"))
}

func TestMarshal_RoundTripsThroughViper(t *testing.T) {
	cfg := validConfig(t)
	cfg.Model.Provider = "anthropic"
	cfg.Model.BaseURL = ""
	cfg.Model.Name = ""

	out, err := config.Marshal(cfg)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(out, &generic))
	assert.Contains(t, generic, "weather")

	path := writeConfig(t, string(out))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", loaded.Model.Provider)
	assert.Equal(t, "https://api.anthropic.com", loaded.Model.BaseURL)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xiaozhu.yaml")

	written, err := config.WriteDefault(path, false)
	require.NoError(t, err)
	assert.True(t, written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	written, err = config.WriteDefault(path, false)
	require.NoError(t, err)
	assert.False(t, written, "existing file is kept")

	written, err = config.WriteDefault(path, true)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestDefaultConfigYAML_Loads(t *testing.T) {
	path := writeConfig(t, string(config.DefaultConfigYAML))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 10*time.Second, cfg.Weather.Timeout)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local", "share", "xiaozhu"), config.ExpandHome("~/.local/share/xiaozhu"))
	assert.Equal(t, home, config.ExpandHome("~"))
	assert.Equal(t, "~other/data", config.ExpandHome("~other/data"))
	assert.Equal(t, "/var/lib/xiaozhu", config.ExpandHome("/var/lib/xiaozhu"))
}

func TestSetValues_KeepsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xiaozhu.yaml")
	_, err := config.WriteDefault(path, false)
	require.NoError(t, err)

	require.NoError(t, config.SetValues(path, map[string]string{
		"model.provider": "deepseek",
		"model.api_key":  "keyring://xiaozhu/deepseek-api-key",
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# 小助 (xiaozhu) configuration.")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "deepseek", v.GetString("model.provider"))
	assert.Equal(t, "keyring://xiaozhu/deepseek-api-key", v.GetString("model.api_key"))
	assert.Equal(t, 2000, v.GetInt("model.max_tokens"))
}

func TestSetValues_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xiaozhu.yaml")
	require.NoError(t, config.SetValues(path, map[string]string{"model.api_key": "sk-test"}))

	var doc map[string]map[string]string
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "sk-test", doc["model"]["api_key"])
}
