// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package provider_test

import (
	"context"
	"errors"

	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
)

// scriptedProvider replays a fixed event script for every Chat call and
// records the last request.
type scriptedProvider struct {
	name     string
	events   []provider.ChatEvent
	chatErr  error
	closeErr error
	lastReq  provider.ChatRequest
	// block keeps the channel open after the script until ctx ends.
	block bool
}

func (m *scriptedProvider) Name() string { return m.name }

func (m *scriptedProvider) Available(context.Context) bool { return m.chatErr == nil }

func (m *scriptedProvider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	m.lastReq = req
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	ch := make(chan provider.ChatEvent)
	go func() {
		defer close(ch)
		for _, ev := range m.events {
			if !provider.Send(ctx, ch, ev) {
				return
			}
		}
		if m.block {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (m *scriptedProvider) Status(ctx context.Context) (provider.ProviderStatus, error) {
	if m.name == "broken" {
		return provider.ProviderStatus{}, errors.New("status unavailable")
	}
	return provider.ProviderStatus{Available: m.Available(ctx), Provider: m.name, Message: "ok"}, nil
}

func (m *scriptedProvider) Close() error { return m.closeErr }

func textEvents(parts ...string) []provider.ChatEvent {
	out := make([]provider.ChatEvent, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: p})
	}
	return append(out, provider.ChatEvent{Type: provider.EventTypeDone})
}
