// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package provider

import (
	"context"
	"iter"
	"log/slog"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Model streams a completion as text fragments. A non-nil error is always
// the last element of the sequence.
type Model interface {
	Stream(ctx context.Context, systemPrompt string, messages []Message) iter.Seq2[string, error]
}

// Binding fixes a Provider to one model name and option set so that callers
// never branch on provider identity.
type Binding struct {
	p       Provider
	model   string
	options ChatOptions
}

var _ Model = (*Binding)(nil)

// Bind returns a Model that sends every request to p with the given model.
func Bind(p Provider, model string, opts ChatOptions) *Binding {
	return &Binding{p: p, model: model, options: opts}
}

// Provider returns the bound provider.
func (b *Binding) Provider() Provider { return b.p }

// ModelName returns the bound model identifier.
func (b *Binding) ModelName() string { return b.model }

// Stream implements Model. Breaking out of the range cancels the request.
func (b *Binding) Stream(ctx context.Context, systemPrompt string, messages []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := b.p.Chat(ctx, ChatRequest{
			Model:        b.model,
			Messages:     messages,
			SystemPrompt: systemPrompt,
			Options:      b.options,
		})
		if err != nil {
			yield("", xzerr.Wrap(err, xzerr.CodeProviderUpstreamFailure, "starting completion",
				xzerr.FieldProvider(b.p.Name())))
			return
		}

		for ev := range ch {
			switch ev.Type {
			case EventTypeTextDelta:
				if ev.Text == "" {
					continue
				}
				if !yield(ev.Text, nil) {
					return
				}
			case EventTypeUsage:
				if ev.Usage != nil {
					slog.Debug("completion usage",
						"provider", b.p.Name(),
						"model", b.model,
						"input_tokens", ev.Usage.InputTokens,
						"output_tokens", ev.Usage.OutputTokens,
					)
				}
			case EventTypeError:
				yield("", xzerr.New(xzerr.CodeProviderUpstreamFailure, ev.Error, xzerr.FieldProvider(b.p.Name())))
				return
			case EventTypeDone:
				return
			}
		}

		// The channel closed without a terminal event: the provider gave up
		// because ctx ended.
		if err := ctx.Err(); err != nil {
			yield("", xzerr.Wrap(err, xzerr.CodeProviderUpstreamFailure, "completion interrupted",
				xzerr.FieldProvider(b.p.Name())))
		}
	}
}

// Send delivers ev on ch unless ctx ends first. Provider goroutines use it so
// that an abandoned stream never blocks them.
func Send(ctx context.Context, ch chan<- ChatEvent, ev ChatEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
