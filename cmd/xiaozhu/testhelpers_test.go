// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"bytes"
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, city string) (weather.Snapshot, error) {
	if city == "亚特兰蒂斯" {
		return weather.Snapshot{}, xzerr.New(xzerr.CodeWeatherCityNotFound, "未找到城市："+city, xzerr.FieldCity(city))
	}
	return weather.Snapshot{
		City:         city,
		TemperatureC: 25,
		FeelsLikeC:   27,
		HumidityPct:  40,
		WindSpeedKph: 12,
		Condition:    "晴",
		Forecast: []weather.ForecastDay{
			{Date: "2026-10-18", DayOfWeek: "周日", TempMinC: 15, TempMaxC: 26, Condition: "晴", Good: true},
		},
	}, nil
}

type fakeModel struct {
	parts []string
}

func (m fakeModel) Stream(context.Context, string, []provider.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range m.parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// mockSecretStore is an in-memory secrets.Store.
type mockSecretStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{data: make(map[string]string)}
}

func (m *mockSecretStore) Store(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[service+"/"+key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[service+"/"+key]
	if !ok {
		return "", xzerr.New(xzerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[service+"/"+key]; !ok {
		return xzerr.New(xzerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, service+"/"+key)
	return nil
}

func (m *mockSecretStore) List(service string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if key, ok := strings.CutPrefix(k, service+"/"); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// testEnv runs CLI invocations against one config file and data directory.
type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
	secrets *mockSecretStore
	wire    wireOptions
}

const testConfig = `model:
  provider: deepseek
  api_key: sk-test-abcdefgh12345678
storage:
  backend: sqlite
  data_dir: %DATA%
log:
  level: error
`

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfgPath := filepath.Join(dir, "xiaozhu.yaml")
	content := strings.ReplaceAll(testConfig, "%DATA%", filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return &testEnv{
		t:       t,
		dir:     dir,
		cfgPath: cfgPath,
		secrets: newMockSecretStore(),
		wire:    wireOptions{fetcher: fakeFetcher{}, model: fakeModel{parts: []string{"你好，", "我是小助。"}}},
	}
}

// run executes the root command with args and stdin, returning stdout.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	c := newCLI()
	c.secrets = func() secrets.Store { return e.secrets }
	c.wire = e.wire

	root := newRootCmd(c)
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, err := e.run(stdin, args...)
	require.NoError(e.t, err, out)
	return out
}
