// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
}

// Provider implements provider.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	health *provider.HealthTracker
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, xzerr.New(xzerr.CodeProviderRequestInvalid, "google: missing api_key in config", xzerr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	health, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeProviderRequestInvalid, "google: creating health tracker")
	}

	return &Provider{client: client, health: health}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	if req.Model == "" {
		return nil, xzerr.New(xzerr.CodeProviderRequestInvalid, "google: model is required")
	}
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeProviderRequestInvalid, "google: converting messages")
	}
	config := buildConfig(req)

	eventCh := make(chan provider.ChatEvent, 100)
	go func() {
		defer close(eventCh)
		p.streamChat(ctx, req.Model, contents, config, eventCh)
	}()
	return eventCh, nil
}

func (p *Provider) Status(ctx context.Context) (provider.ProviderStatus, error) {
	hm := p.health.HealthMetrics()
	return provider.ProviderStatus{
		Available: p.Available(ctx),
		Provider:  "google",
		Message:   "ok",
		Health:    &hm,
	}, nil
}

func (p *Provider) Close() error { return nil }

func buildConfig(req provider.ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Options.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return cfg
}

// convertMessages maps history onto Gemini contents, where the assistant
// role is called "model".
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	result := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		var role string
		switch msg.Role {
		case provider.MessageRoleUser:
			role = "user"
		case provider.MessageRoleAssistant:
			role = "model"
		default:
			return nil, xzerr.Errorf(xzerr.CodeProviderRequestInvalid, "google: unsupported message role %q", msg.Role)
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return result, nil
}

func (p *Provider) streamChat(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	ch chan<- provider.ChatEvent,
) {
	var usage *provider.Usage
	for result, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			if ctx.Err() == nil {
				p.health.RecordFailure()
			}
			provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()})
			return
		}

		for _, candidate := range result.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" || part.Thought {
					continue
				}
				if !provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: part.Text}) {
					return
				}
			}
		}

		// Gemini repeats cumulative usage on every chunk; keep the latest.
		if result.UsageMetadata != nil {
			usage = &provider.Usage{
				InputTokens:  int(result.UsageMetadata.PromptTokenCount),
				OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			}
		}
	}

	p.health.RecordSuccess()
	if usage != nil {
		provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeUsage, Usage: usage})
	}
	provider.Send(ctx, ch, provider.ChatEvent{Type: provider.EventTypeDone})
}
