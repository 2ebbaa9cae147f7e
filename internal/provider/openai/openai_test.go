// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package openai_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider/openai"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func TestOpenAIProvider_NameDefaultsAndOverride(t *testing.T) {
	p := mustNewProvider(t, openai.Config{APIKey: "k"})
	assert.Equal(t, "openai", p.Name())

	p = mustNewProvider(t, openai.Config{Name: "deepseek", APIKey: "k", BaseURL: "https://api.deepseek.com/v1"})
	assert.Equal(t, "deepseek", p.Name())
}

func TestOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, xzerr.HasCode(err, xzerr.CodeProviderRequestInvalid))
}

func TestOpenAIProvider_StatusAndClose(t *testing.T) {
	p := mustNewProvider(t, openai.Config{APIKey: "k"})

	status, err := p.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openai", status.Provider)
	assert.True(t, status.Available)
	require.NotNil(t, status.Health)
	assert.Zero(t, status.Health.FailureCount)
	assert.NoError(t, p.Close())
}

func TestConvertMessages(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.MessageRoleUser, Content: "北京天气"},
		{Role: provider.MessageRoleAssistant, Content: "晴"},
	}

	params, err := openai.ConvertMessages(msgs, "你是小助")
	require.NoError(t, err)
	require.Len(t, params, 3)
	require.NotNil(t, params[0].OfSystem)
	require.NotNil(t, params[1].OfUser)
	assert.Equal(t, "北京天气", params[1].OfUser.Content.OfString.Value)
	require.NotNil(t, params[2].OfAssistant)
	assert.Equal(t, "晴", params[2].OfAssistant.Content.OfString.Value)

	params, err = openai.ConvertMessages(msgs, "")
	require.NoError(t, err)
	assert.Len(t, params, 2)

	_, err = openai.ConvertMessages([]provider.Message{{Role: "tool", Content: "x"}}, "")
	require.Error(t, err)
	assert.True(t, xzerr.IsInvalidInput(err))
}

func TestBuildParams(t *testing.T) {
	params, err := openai.BuildParams(provider.ChatRequest{
		Model:    "deepseek-chat",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
		Options:  provider.ChatOptions{Temperature: 0.5, MaxTokens: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", string(params.Model))
	assert.Equal(t, int64(100), params.MaxCompletionTokens.Value)
	assert.Equal(t, 0.5, params.Temperature.Value)

	_, err = openai.BuildParams(provider.ChatRequest{})
	require.Error(t, err)
	assert.True(t, xzerr.IsInvalidInput(err))
}

func TestOpenAIProvider_ChatStreamsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"你", "好"} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := mustNewProvider(t, openai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	ch, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "m",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var text strings.Builder
	var last provider.ChatEvent
	for ev := range ch {
		if ev.Type == provider.EventTypeTextDelta {
			text.WriteString(ev.Text)
		}
		last = ev
	}
	assert.Equal(t, "你好", text.String())
	assert.Equal(t, provider.EventTypeDone, last.Type)
	assert.True(t, p.Available(context.Background()))
}

func TestOpenAIProvider_ChatUpstreamErrorMarksUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := mustNewProvider(t, openai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	ch, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "m",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var last provider.ChatEvent
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, provider.EventTypeError, last.Type)
	assert.NotEmpty(t, last.Error)
	assert.False(t, p.Available(context.Background()))
}

func mustNewProvider(t *testing.T, cfg openai.Config) *openai.Provider {
	t.Helper()
	p, err := openai.New(cfg)
	require.NoError(t, err)
	return p
}
