// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
)

func (s *Server) registerRoutes() {
	// Session endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List sessions, newest first",
		Tags:        []string{"sessions"},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get a session with its interview state and recent messages",
		Tags:        []string{"sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}",
		Summary:       "Delete a session and its transcript",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-career",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/career/cancel",
		Summary:     "Abandon the session's career interview",
		Tags:        []string{"career"},
	}, s.handleCancelCareer)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-career-stages",
		Method:      http.MethodGet,
		Path:        "/api/v1/career/stages",
		Summary:     "List the interview questions",
		Tags:        []string{"career"},
	}, s.handleListStages)

	// Weather endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "get-weather",
		Method:      http.MethodGet,
		Path:        "/api/v1/weather/{city}",
		Summary:     "Current conditions and forecast for a city",
		Tags:        []string{"weather"},
	}, s.handleGetWeather)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-weather-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/history/weather",
		Summary:     "Recently queried cities",
		Tags:        []string{"weather"},
	}, s.handleListHistory)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clear-weather-history",
		Method:        http.MethodDelete,
		Path:          "/api/v1/history/weather",
		Summary:       "Forget every recorded city",
		Tags:          []string{"weather"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearHistory)

	// Provider endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers",
		Summary:     "Provider presets and the availability of the configured model",
		Tags:        []string{"providers"},
	}, s.handleListProviders)
}

// --- Request/Response types for huma ---

// SessionSummary is a session without its transcript.
type SessionSummary struct {
	ID        string       `json:"id"`
	Career    career.State `json:"career"`
	Progress  float64      `json:"progress" doc:"Fraction of interview stages answered"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MessageBody is one transcript entry.
type MessageBody struct {
	ID        string    `json:"id"`
	Role      string    `json:"role" enum:"user,assistant"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is a session plus its most recent messages.
type SessionDetail struct {
	SessionSummary
	Messages []MessageBody `json:"messages"`
}

type listSessionsInput struct {
	Limit  int `query:"limit" minimum:"0" maximum:"1000" doc:"Page size (default 100)"`
	Offset int `query:"offset" minimum:"0"`
}
type listSessionsOutput struct {
	Body struct {
		Sessions []SessionSummary `json:"sessions"`
	}
}

type sessionIDInput struct {
	ID string `path:"id" maxLength:"128"`
}

type getSessionInput struct {
	ID       string `path:"id" maxLength:"128"`
	Messages int    `query:"messages" minimum:"0" maximum:"500" default:"50" doc:"Number of recent messages to include"`
}
type getSessionOutput struct {
	Body SessionDetail
}

type cancelCareerOutput struct {
	Body struct {
		Career career.State `json:"career"`
		Reply  string       `json:"reply"`
	}
}

type listStagesOutput struct {
	Body struct {
		Stages []career.Stage `json:"stages"`
	}
}

type cityInput struct {
	City string `path:"city" maxLength:"64"`
}
type getWeatherOutput struct {
	Body struct {
		Weather weather.Snapshot `json:"weather"`
		Summary string           `json:"summary"`
		History weather.Entry    `json:"history"`
	}
}

type listHistoryOutput struct {
	Body struct {
		Entries      []weather.Entry `json:"entries"`
		MostFrequent *weather.Entry  `json:"most_frequent,omitempty"`
	}
}

type listProvidersOutput struct {
	Body struct {
		Presets  []provider.Preset         `json:"presets"`
		Statuses []provider.ProviderStatus `json:"statuses,omitempty"`
	}
}

// --- Handlers ---

func summarize(sess *store.Session) SessionSummary {
	return SessionSummary{
		ID:        sess.ID,
		Career:    sess.Career,
		Progress:  sess.Career.Progress(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
}

func (s *Server) handleListSessions(ctx context.Context, input *listSessionsInput) (*listSessionsOutput, error) {
	sessions, err := s.services.sessions.ListSessions(ctx, store.ListOpts{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, humaError(err)
	}
	out := &listSessionsOutput{}
	out.Body.Sessions = make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out.Body.Sessions = append(out.Body.Sessions, summarize(sess))
	}
	return out, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *getSessionInput) (*getSessionOutput, error) {
	sess, err := s.services.sessions.GetSession(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &getSessionOutput{Body: SessionDetail{SessionSummary: summarize(sess), Messages: []MessageBody{}}}
	if input.Messages == 0 {
		return out, nil
	}

	msgs, err := s.services.sessions.GetActiveWindow(ctx, sess.ID, input.Messages)
	if err != nil {
		return nil, humaError(err)
	}
	for _, m := range msgs {
		out.Body.Messages = append(out.Body.Messages, MessageBody{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, input *sessionIDInput) (*struct{}, error) {
	if err := s.services.sessions.DeleteSession(ctx, input.ID); err != nil {
		return nil, humaError(err)
	}
	return nil, nil
}

func (s *Server) handleCancelCareer(ctx context.Context, input *sessionIDInput) (*cancelCareerOutput, error) {
	next, err := s.services.chat.CancelCareer(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &cancelCareerOutput{}
	out.Body.Career = next
	out.Body.Reply = conversation.CancelReply
	return out, nil
}

func (s *Server) handleListStages(_ context.Context, _ *struct{}) (*listStagesOutput, error) {
	out := &listStagesOutput{}
	out.Body.Stages = career.Stages()
	return out, nil
}

func (s *Server) handleGetWeather(ctx context.Context, input *cityInput) (*getWeatherOutput, error) {
	city := input.City
	if unescaped, err := url.PathUnescape(city); err == nil {
		city = unescaped
	}

	snap, entry, err := s.services.router.Weather(ctx, city)
	if err != nil {
		return nil, humaError(err)
	}
	out := &getWeatherOutput{}
	out.Body.Weather = snap
	out.Body.Summary = snap.Summary()
	out.Body.History = entry
	return out, nil
}

func (s *Server) handleListHistory(_ context.Context, _ *struct{}) (*listHistoryOutput, error) {
	history := s.services.router.History()
	out := &listHistoryOutput{}
	out.Body.Entries = history.List()
	if e, ok := history.MostFrequent(); ok {
		out.Body.MostFrequent = &e
	}
	return out, nil
}

func (s *Server) handleClearHistory(ctx context.Context, _ *struct{}) (*struct{}, error) {
	s.services.router.History().Clear(ctx)
	return nil, nil
}

func (s *Server) handleListProviders(ctx context.Context, _ *struct{}) (*listProvidersOutput, error) {
	out := &listProvidersOutput{}
	out.Body.Presets = provider.Presets()
	if p := s.services.providers; p != nil {
		out.Body.Statuses = p.Statuses(ctx)
	}
	return out, nil
}
