// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package career

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Yield receives events as the engine produces them. It returns false once
// the consumer has stopped listening.
type Yield func(event.Event) bool

// Engine drives interview transitions. It holds no session state and is
// safe for concurrent use.
type Engine struct {
	model        provider.Model
	systemPrompt string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSystemPrompt sets the system prompt used for report generation.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		e.systemPrompt = prompt
	}
}

// NewEngine returns an Engine that generates reports with model.
func NewEngine(model provider.Model, opts ...Option) *Engine {
	e := &Engine{model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a fresh interview. It is rejected while another interview
// is in progress.
func (e *Engine) Start(s State, yield Yield) (State, error) {
	if s.Active() {
		return s, xzerr.New(xzerr.CodeCareerTransitionInvalid,
			"职业规划面试正在进行中，请先回答当前问题或输入「取消」退出。",
			xzerr.FieldStage(s.StageIndex))
	}

	next := freshState(StatusInProgress)
	yield(event.CareerProgress{
		StageIndex: 0,
		Progress:   0,
		Prompt:     welcomeText + StagePrompt(0),
	})
	return next, nil
}

// Advance records answer, as given, for the current stage. Before the last stage it
// yields the next question. On the last stage it streams the report and
// returns a COMPLETED state; if the report cannot be produced the input
// state is returned unchanged alongside the error so the answer can be
// resubmitted.
func (e *Engine) Advance(ctx context.Context, s State, answer string, yield Yield) (State, error) {
	if !s.Active() {
		return s, xzerr.Errorf(xzerr.CodeCareerTransitionInvalid, "no interview in progress (status %s)", s.Status)
	}
	if s.StageIndex < 0 || s.StageIndex >= StageCount {
		return s, xzerr.Errorf(xzerr.CodeCareerStateInvalid, "stage index %d out of range", s.StageIndex)
	}

	if strings.TrimSpace(answer) == "" {
		return s, xzerr.New(xzerr.CodeCareerAnswerInvalid, "回答不能为空，请描述一下您的情况。",
			xzerr.FieldStage(s.StageIndex))
	}

	next := s.Clone()
	if next.Answers == nil {
		next.Answers = make(map[int]string, StageCount)
	}
	next.Answers[s.StageIndex] = answer

	if s.StageIndex+1 < StageCount {
		next.StageIndex++
		yield(event.CareerProgress{
			StageIndex: next.StageIndex,
			Progress:   next.Progress(),
			Prompt:     "👍 已记录您的" + StageAt(s.StageIndex).Name + "。\n\n" + StagePrompt(next.StageIndex),
		})
		return next, nil
	}

	if err := e.generateReport(ctx, next.Answers, yield); err != nil {
		slog.Warn("career report generation failed", "error", err)
		return s, err
	}

	next.Status = StatusCompleted
	next.StageIndex = StageCount
	return next, nil
}

func (e *Engine) generateReport(ctx context.Context, answers map[int]string, yield Yield) error {
	if !yield(event.Content{Text: completionText}) {
		return xzerr.New(xzerr.CodeCareerReportCancelled, "report generation abandoned")
	}

	msgs := []provider.Message{{Role: provider.MessageRoleUser, Content: ReportPrompt(answers)}}
	produced := false
	for text, err := range e.model.Stream(ctx, e.systemPrompt, msgs) {
		if err != nil {
			if xzerr.CodeOf(err) == "" {
				return xzerr.Wrap(err, xzerr.CodeCareerReportFailure, "generating career report")
			}
			return err
		}
		if text == "" {
			continue
		}
		produced = true
		if !yield(event.Content{Text: text}) {
			return xzerr.New(xzerr.CodeCareerReportCancelled, "report generation abandoned")
		}
	}
	if !produced {
		return xzerr.New(xzerr.CodeCareerReportFailure, "model returned an empty report")
	}
	return nil
}

// Cancel abandons any interview. It always succeeds and is idempotent.
func (e *Engine) Cancel(State) State {
	return freshState(StatusCancelled)
}
