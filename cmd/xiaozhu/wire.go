// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/xiaozhu-dev/xiaozhu/internal/agent"
	"github.com/xiaozhu-dev/xiaozhu/internal/config"
	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	anthropicprov "github.com/xiaozhu-dev/xiaozhu/internal/provider/anthropic"
	googleprov "github.com/xiaozhu-dev/xiaozhu/internal/provider/google"
	openaiprov "github.com/xiaozhu-dev/xiaozhu/internal/provider/openai"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	_ "github.com/xiaozhu-dev/xiaozhu/internal/store/sqlite" // register sqlite backend
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// App holds the wired subsystems and manages their lifecycle.
type App struct {
	Config    *config.Config
	Store     store.Store
	Router    *agent.Router
	Chat      *conversation.Manager
	Providers *provider.Registry
}

// wireOptions replaces collaborators in tests.
type wireOptions struct {
	fetcher weather.Fetcher
	model   provider.Model
}

// providerFactory builds a provider for one SDK family.
type providerFactory func(ctx context.Context, name string, m config.ModelConfig) (provider.Provider, error)

var providerFactories = map[provider.Kind]providerFactory{
	provider.KindOpenAI: func(_ context.Context, name string, m config.ModelConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{Name: name, APIKey: m.APIKey, BaseURL: m.BaseURL})
	},
	provider.KindAnthropic: func(_ context.Context, _ string, m config.ModelConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: m.APIKey, BaseURL: m.BaseURL})
	},
	provider.KindGoogle: func(ctx context.Context, _ string, m config.ModelConfig) (provider.Provider, error) {
		return googleprov.New(ctx, googleprov.Config{APIKey: m.APIKey, BaseURL: m.BaseURL})
	},
}

// Wire opens storage, restores the weather history and builds the router.
func Wire(ctx context.Context, cfg *config.Config, opts wireOptions) (*App, error) {
	st, err := store.Open(&store.StorageConfig{Backend: cfg.Storage.Backend, Path: cfg.Storage.DataDir})
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "opening storage")
	}

	entries, err := st.History().LoadHistory(ctx)
	if err != nil {
		_ = st.Close()
		return nil, xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "loading weather history")
	}
	history := weather.NewHistoryCache(weather.WithPersister(st.History()))
	history.Restore(entries)

	fetcher := opts.fetcher
	if fetcher == nil {
		fetcher = weather.NewClient(weather.ClientConfig{
			BaseURL:      cfg.Weather.BaseURL,
			Timeout:      cfg.Weather.Timeout,
			ForecastDays: cfg.Weather.ForecastDays,
			Lang:         cfg.Weather.Lang,
		})
	}

	registry := provider.NewRegistry()
	model := opts.model
	if model == nil {
		model = buildModel(ctx, cfg, registry)
	}

	router := agent.NewRouter(fetcher, history, model, agent.WithHistoryTurns(cfg.History.MaxTurns))

	return &App{
		Config:    cfg,
		Store:     st,
		Router:    router,
		Chat:      conversation.NewManager(router, st.Sessions()),
		Providers: registry,
	}, nil
}

// buildModel constructs the configured provider. Without one the assistant
// still answers weather and interview questions; general questions and the
// final report fail with a provider-unavailable error.
func buildModel(ctx context.Context, cfg *config.Config, registry *provider.Registry) provider.Model {
	preset, err := cfg.Preset()
	if err != nil {
		return offlineModel{cause: err}
	}
	p, err := providerFactories[preset.Kind](ctx, preset.Name, cfg.Model)
	if err != nil {
		slog.Warn("model provider unavailable", "provider", preset.Name, "error", err)
		return offlineModel{cause: err}
	}
	registry.Register(preset.Name, p)
	slog.Debug("model provider ready", "provider", preset.Name, "model", cfg.Model.Name)

	return provider.Bind(p, cfg.Model.Name, provider.ChatOptions{
		Temperature: float32(cfg.Model.Temperature),
		MaxTokens:   cfg.Model.MaxTokens,
	})
}

// offlineModel stands in when no provider could be built.
type offlineModel struct {
	cause error
}

func (m offlineModel) Stream(context.Context, string, []provider.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", xzerr.New(xzerr.CodeProviderUnavailable,
			"no language model configured ("+m.cause.Error()+"); run `xiaozhu config set-key`"))
	}
}

// Close releases the providers and the store.
func (a *App) Close() error {
	return errors.Join(a.Providers.Close(), a.Store.Close())
}

// withApp loads the configuration, wires the app, runs fn and closes the app.
func (c *cli) withApp(ctx context.Context, fn func(*App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	app, err := Wire(ctx, cfg, c.wire)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing app", "error", err)
		}
	}()
	return fn(app)
}
