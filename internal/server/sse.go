// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/xiaozhu-dev/xiaozhu/internal/agent"
	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// SessionHeader carries the session used for a chat request.
const SessionHeader = "X-Session-ID"

// ChatStreamRequest is the request body for the chat endpoint.
type ChatStreamRequest struct {
	Message   string `json:"message" minLength:"1" doc:"User message"`
	SessionID string `json:"session_id,omitempty" doc:"Session to continue; a new one is created when empty or unknown"`
}

// ChatResponse is the JSON rendering of a chat turn.
type ChatResponse struct {
	SessionID string            `json:"session_id"`
	Route     string            `json:"route"`
	Reply     string            `json:"reply,omitempty"`
	Events    []json.RawMessage `json:"events"`
}

func (s *Server) registerChatRoute() {
	s.router.Post("/api/v1/chat/stream", s.handleChatStream)

	// The streaming handler needs the raw ResponseWriter, so the route is
	// served by chi and only documented through huma.
	minLen := 1
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "chat-stream",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat/stream",
		Summary:     "Send a message and stream the assistant's events",
		Description: "Set Accept: text/event-stream for SSE, otherwise the events of the turn are returned as one JSON document. " +
			"Each event is {\"type\": content|weather|career_progress|error|done, \"data\": {...}}.",
		Tags: []string{"chat"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"message"},
						Properties: map[string]*huma.Schema{
							"message": {
								Type:        "string",
								MinLength:   &minLen,
								Description: "User message",
							},
							"session_id": {
								Type:        "string",
								Description: "Session to continue",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Turn events (SSE or JSON depending on Accept header)",
				Content: map[string]*huma.MediaType{
					"text/event-stream": {
						Schema: &huma.Schema{Type: "string", Description: "Server-sent event stream"},
					},
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"session_id": {Type: "string"},
								"route":      {Type: "string"},
								"reply":      {Type: "string"},
								"events": {
									Type:  "array",
									Items: &huma.Schema{Type: "object"},
								},
							},
						},
					},
				},
			},
			"400": {Description: "Invalid request body or session id"},
			"409": {Description: "Session is busy with another turn (JSON mode)"},
			"422": {Description: "Missing message"},
		},
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	sess, err := s.services.chat.Open(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, xzerr.HTTPStatus(err), err.Error())
		return
	}

	turn, err := s.services.chat.Send(r.Context(), sess, req.Message)
	if err != nil {
		writeError(w, xzerr.HTTPStatus(err), err.Error())
		return
	}
	defer turn.Close()

	w.Header().Set(SessionHeader, sess.ID)
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.writeSSE(w, turn)
		return
	}
	s.writeJSON(w, sess.ID, turn)
}

func (s *Server) writeSSE(w http.ResponseWriter, turn *agent.Turn) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// httptest.ResponseRecorder implements Flusher; a wrapped writer may not.
	flusher, _ := w.(http.Flusher)

	for e := range turn.Events() {
		data, err := event.Encode(e)
		if err != nil {
			slog.Error("encoding chat event", "type", e.Type(), "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type(), data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, sessionID string, turn *agent.Turn) {
	resp := ChatResponse{SessionID: sessionID, Route: string(turn.Route()), Events: []json.RawMessage{}}
	for e := range turn.Events() {
		data, err := event.Encode(e)
		if err != nil {
			slog.Error("encoding chat event", "type", e.Type(), "error", err)
			continue
		}
		resp.Events = append(resp.Events, data)
	}
	resp.Reply = turn.Reply()

	status := http.StatusOK
	if err := turn.Err(); err != nil && xzerr.IsBusy(err) {
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("writing chat response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
