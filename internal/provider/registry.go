// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package provider

import (
	"context"
	"slices"
	"strings"
	"sync"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Kind selects which SDK implementation serves a preset.
type Kind string

const (
	// KindOpenAI covers OpenAI and every OpenAI-compatible endpoint.
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
)

// Preset is a named provider configuration with defaults for the endpoint
// and model.
type Preset struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Kind         Kind   `json:"kind"`
	BaseURL      string `json:"base_url,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
}

const (
	PresetOpenAI    = "openai"
	PresetDeepSeek  = "deepseek"
	PresetQwen      = "qwen"
	PresetAnthropic = "anthropic"
	PresetGoogle    = "google"
	PresetCustom    = "custom"
)

var presets = []Preset{
	{Name: PresetOpenAI, DisplayName: "OpenAI", Kind: KindOpenAI, BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-3.5-turbo"},
	{Name: PresetDeepSeek, DisplayName: "DeepSeek", Kind: KindOpenAI, BaseURL: "https://api.deepseek.com/v1", DefaultModel: "deepseek-chat"},
	{Name: PresetQwen, DisplayName: "通义千问", Kind: KindOpenAI, BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", DefaultModel: "qwen-turbo"},
	{Name: PresetAnthropic, DisplayName: "Anthropic", Kind: KindAnthropic, BaseURL: "https://api.anthropic.com", DefaultModel: "claude-haiku-4-5"},
	{Name: PresetGoogle, DisplayName: "Google Gemini", Kind: KindGoogle, DefaultModel: "gemini-2.5-flash"},
	{Name: PresetCustom, DisplayName: "自定义 (OpenAI 兼容)", Kind: KindOpenAI},
}

// Presets returns the built-in preset catalogue.
func Presets() []Preset {
	return slices.Clone(presets)
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, xzerr.New(xzerr.CodeProviderNotFound, "unknown provider preset: "+name, xzerr.FieldProvider(name))
}

// Registry holds the constructed providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, xzerr.New(xzerr.CodeProviderNotFound, "provider not found: "+name, xzerr.FieldProvider(name))
	}
	return p, nil
}

// Statuses reports every registered provider, sorted by name.
func (r *Registry) Statuses(ctx context.Context) []ProviderStatus {
	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)

	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		p, err := r.Get(name)
		if err != nil {
			continue
		}
		st, err := p.Status(ctx)
		if err != nil {
			st = ProviderStatus{Provider: name, Message: err.Error()}
		}
		out = append(out, st)
	}
	return out
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return xzerr.Join(errs...)
	}
	return nil
}
