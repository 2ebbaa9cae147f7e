// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package agent routes each user message to weather lookup, the career
// interview or a general model completion, and renders the outcome as one
// event sequence.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Request is one inbound user message plus the session context the caller
// carries between turns.
type Request struct {
	SessionID string
	Message   string
	History   []provider.Message
	Career    career.State

	// Load, when set, runs once the session is held and refreshes History
	// and Career from the caller's store, so the turn starts from the state
	// the previous turn committed. A Load error fails the turn.
	Load func(ctx context.Context, req *Request) error

	// Commit, when set, runs after the turn's last event while the session
	// is still held, so the caller can persist the outcome without racing
	// the session's next turn. It is not called for a rejected turn.
	Commit func(*Turn)
}

// Router dispatches messages. The weather history cache is the only mutable
// state it shares across sessions.
type Router struct {
	weather      weather.Fetcher
	history      *weather.HistoryCache
	model        provider.Model
	engine       *career.Engine
	guard        *SessionGuard
	systemPrompt string
	historyTurns int
	now          func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithSystemPrompt replaces Persona.
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) { r.systemPrompt = prompt }
}

// WithHistoryTurns sets how many prior turns accompany a general question.
func WithHistoryTurns(n int) Option {
	return func(r *Router) { r.historyTurns = n }
}

// WithClock overrides the time source used for history entries.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithGuard shares a SessionGuard between routers.
func WithGuard(g *SessionGuard) Option {
	return func(r *Router) { r.guard = g }
}

// NewRouter wires the collaborators into a Router.
func NewRouter(fetcher weather.Fetcher, history *weather.HistoryCache, model provider.Model, opts ...Option) *Router {
	r := &Router{
		weather:      fetcher,
		history:      history,
		model:        model,
		systemPrompt: Persona,
		historyTurns: DefaultHistoryTurns,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard == nil {
		r.guard = NewSessionGuard()
	}
	r.engine = career.NewEngine(model, career.WithSystemPrompt(r.systemPrompt))
	return r
}

// History returns the shared weather history cache.
func (r *Router) History() *weather.HistoryCache { return r.history }

// HistoryTurns is the number of prior messages sent with a general question.
func (r *Router) HistoryTurns() int { return r.historyTurns }

// Weather fetches the conditions for city outside a chat turn and records
// the query in the history cache.
func (r *Router) Weather(ctx context.Context, city string) (weather.Snapshot, weather.Entry, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.Snapshot{}, weather.Entry{}, xzerr.New(xzerr.CodeWeatherCityInvalid, "city is required")
	}
	snap, err := r.weather.Fetch(ctx, city)
	if err != nil {
		return weather.Snapshot{}, weather.Entry{}, err
	}
	entry, err := r.history.Record(ctx, city, snap, r.now())
	if err != nil {
		return snap, weather.Entry{}, err
	}
	return snap, entry, nil
}

// Classify picks the route for msg given the session's interview state.
func (r *Router) Classify(msg string, s career.State) Route {
	route, _ := r.classify(msg, s)
	return route
}

// classify also returns the city resolved for RouteWeather. The city is
// fixed here because the history fallback can change before the turn runs.
func (r *Router) classify(msg string, s career.State) (Route, string) {
	switch {
	case s.Active() && IsCancelCommand(msg):
		return RouteCareerCancel, ""
	case s.Active():
		return RouteCareerAnswer, ""
	case IsCareerTrigger(msg):
		return RouteCareerStart, ""
	}
	if city, ok := r.weatherCity(msg); ok {
		return RouteWeather, city
	}
	return RouteGeneral, ""
}

// Handle starts a turn for req. A session that already has an open turn
// gets a turn holding a single busy error; its state is left untouched.
func (r *Router) Handle(ctx context.Context, req Request) *Turn {
	release, err := r.guard.Acquire(req.SessionID)
	if err != nil {
		slog.Debug("rejecting turn for busy session", "session_id", req.SessionID)
		return failedTurn(req.Career, err)
	}
	if req.Load != nil {
		if err := req.Load(ctx, &req); err != nil {
			release()
			slog.Warn("loading session context", "session_id", req.SessionID, "error", err)
			return failedTurn(req.Career, err)
		}
	}

	route, city := r.classify(req.Message, req.Career)
	slog.Debug("routing message", "session_id", req.SessionID, "route", route)

	t := newTurn(ctx, route, req.Career, release, func(ctx context.Context, t *Turn, emit career.Yield) {
		var err error
		switch route {
		case RouteCareerCancel:
			err = r.cancelCareer(t, req.Career, emit)
		case RouteCareerAnswer:
			err = r.advanceCareer(ctx, t, req, emit)
		case RouteCareerStart:
			err = r.startCareer(t, req.Career, emit)
		case RouteWeather:
			err = r.lookupWeather(ctx, t, city, emit)
		default:
			err = r.answer(ctx, t, req, emit)
		}
		if err != nil {
			r.fail(ctx, t, req.SessionID, route, err, emit)
			return
		}
		emit(event.Done{})
	})
	t.commit = req.Commit
	return t
}

// CancelCareer abandons the session's interview outside a chat turn. load
// reads the current state once the session is held. It is rejected while
// the session has a turn in flight.
func (r *Router) CancelCareer(sessionID string, load func() (career.State, error)) (career.State, error) {
	release, err := r.guard.Acquire(sessionID)
	if err != nil {
		return career.State{}, err
	}
	defer release()

	s, err := load()
	if err != nil {
		return career.State{}, err
	}
	return r.engine.Cancel(s), nil
}

func (r *Router) cancelCareer(t *Turn, s career.State, emit career.Yield) error {
	next := r.engine.Cancel(s)
	t.setCareer(next)
	t.setReply("已退出职业规划。")
	emit(event.CareerProgress{StageIndex: 0, Progress: 0})
	return nil
}

func (r *Router) startCareer(t *Turn, s career.State, emit career.Yield) error {
	next, err := r.engine.Start(s, func(e event.Event) bool {
		if p, ok := e.(event.CareerProgress); ok {
			t.setReply(p.Prompt)
		}
		return emit(e)
	})
	if err != nil {
		return err
	}
	t.setCareer(next)
	return nil
}

func (r *Router) advanceCareer(ctx context.Context, t *Turn, req Request, emit career.Yield) error {
	next, err := r.engine.Advance(ctx, req.Career, req.Message, func(e event.Event) bool {
		if p, ok := e.(event.CareerProgress); ok {
			t.setReply(p.Prompt)
		}
		return emit(e)
	})
	t.setCareer(next)
	return err
}

func (r *Router) weatherCity(msg string) (string, bool) {
	if HasWeatherKeyword(msg) {
		if city := ExtractCity(msg); city != "" {
			return city, true
		}
		if e, ok := r.history.MostFrequent(); ok {
			return e.City, true
		}
		return "", false
	}
	if IsPlaceName(msg) {
		return strings.TrimSpace(punctuation.ReplaceAllString(msg, "")), true
	}
	return "", false
}

func (r *Router) lookupWeather(ctx context.Context, t *Turn, city string, emit career.Yield) error {
	snap, err := r.weather.Fetch(ctx, city)
	if err != nil {
		return err
	}
	if _, err := r.history.Record(ctx, city, snap, r.now()); err != nil {
		return err
	}
	t.setReply(snap.Summary())
	emit(event.Weather{Snapshot: snap})
	return nil
}

func (r *Router) answer(ctx context.Context, t *Turn, req Request, emit career.Yield) error {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return xzerr.New(xzerr.CodeAgentRequestEmpty, "消息不能为空。")
	}

	msgs := append(provider.LastTurns(req.History, r.historyTurns),
		provider.Message{Role: provider.MessageRoleUser, Content: msg})
	for text, err := range r.model.Stream(ctx, r.systemPrompt, msgs) {
		if err != nil {
			if xzerr.CodeOf(err) == "" {
				return xzerr.Wrap(err, xzerr.CodeProviderUpstreamFailure, "streaming completion")
			}
			return err
		}
		if text == "" {
			continue
		}
		if !emit(event.Content{Text: text}) {
			return xzerr.New(xzerr.CodeAgentTurnCancelled, "consumer stopped reading")
		}
	}
	return nil
}

func (r *Router) fail(ctx context.Context, t *Turn, sessionID string, route Route, err error, emit career.Yield) {
	if ctxErr := ctx.Err(); ctxErr != nil && !xzerr.IsCancelled(err) {
		err = xzerr.Wrap(ctxErr, xzerr.CodeAgentTurnCancelled, "turn cancelled")
	}
	if xzerr.IsCancelled(err) {
		slog.Debug("turn cancelled", "session_id", sessionID, "route", route)
	} else {
		slog.Warn("turn failed", "session_id", sessionID, "route", route, "error", err)
	}
	t.setErr(err)
	emit(event.FromError(err))
}
