// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package conversation binds the agent router to a session store: it opens
// sessions, feeds each turn its stored context and records the outcome.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/xiaozhu-dev/xiaozhu/internal/agent"
	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// MaxSessionIDLen bounds client-chosen session ids.
const MaxSessionIDLen = 128

// CancelReply is the confirmation shown after an interview is abandoned.
const CancelReply = "已退出职业规划。"

// Manager runs chat turns against stored sessions.
type Manager struct {
	router   *agent.Router
	sessions store.SessionStore
	now      func() time.Time
	newID    func() string
}

// NewManager returns a Manager.
func NewManager(router *agent.Router, sessions store.SessionStore) *Manager {
	return &Manager{
		router:   router,
		sessions: sessions,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Router returns the agent router.
func (m *Manager) Router() *agent.Router { return m.router }

// Sessions returns the session store.
func (m *Manager) Sessions() store.SessionStore { return m.sessions }

// Open loads session id, creating it when id is empty or unknown.
func (m *Manager) Open(ctx context.Context, id string) (*store.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = m.newID()
	} else if err := ValidateSessionID(id); err != nil {
		return nil, err
	}

	sess, err := m.sessions.GetSession(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !xzerr.IsNotFound(err) {
		return nil, err
	}

	now := m.now()
	sess = &store.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	slog.Debug("created session", "session_id", id)
	return sess, nil
}

// Send starts a turn for message in sess. The session's recent transcript
// and interview state are read once the session is held and accompany the
// message; once the turn's events have been consumed its outcome is written
// back before the session is released.
func (m *Manager) Send(ctx context.Context, sess *store.Session, message string) (*agent.Turn, error) {
	if sess == nil {
		return nil, xzerr.New(xzerr.CodeServerRequestInvalid, "no session")
	}
	return m.router.Handle(ctx, agent.Request{
		SessionID: sess.ID,
		Message:   message,
		Career:    sess.Career,
		Load: func(ctx context.Context, req *agent.Request) error {
			return m.load(ctx, sess, req)
		},
		Commit: func(t *agent.Turn) {
			m.commit(ctx, sess, message, t)
		},
	}), nil
}

func (m *Manager) load(ctx context.Context, sess *store.Session, req *agent.Request) error {
	current, err := m.sessions.GetSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	history, err := m.sessions.GetActiveWindow(ctx, sess.ID, m.router.HistoryTurns())
	if err != nil {
		return err
	}
	sess.Career = current.Career
	req.Career = current.Career
	req.History = store.ToProvider(history)
	return nil
}

// CancelCareer abandons the interview of session id and stores the result.
func (m *Manager) CancelCareer(ctx context.Context, id string) (career.State, error) {
	var current career.State
	next, err := m.router.CancelCareer(id, func() (career.State, error) {
		sess, err := m.sessions.GetSession(ctx, id)
		if err != nil {
			return career.State{}, err
		}
		current = sess.Career
		return current, nil
	})
	if err != nil {
		return current, err
	}
	if err := m.sessions.SaveCareer(ctx, id, next); err != nil {
		return current, err
	}
	return next, nil
}

// commit stores the interview state and, for a successful turn, the
// exchange. sess is updated to match.
func (m *Manager) commit(ctx context.Context, sess *store.Session, message string, turn *agent.Turn) {
	// The caller may already be gone; the outcome is still recorded.
	ctx = context.WithoutCancel(ctx)

	state := turn.Career()
	if err := m.sessions.SaveCareer(ctx, sess.ID, state); err != nil {
		slog.Warn("saving career state", "session_id", sess.ID, "error", err)
	} else {
		sess.Career = state
	}

	reply := turn.Reply()
	if turn.Err() != nil || reply == "" {
		return
	}

	now := m.now()
	for _, msg := range []*store.Message{
		{ID: m.newID(), SessionID: sess.ID, Role: provider.MessageRoleUser, Content: message, CreatedAt: now},
		{ID: m.newID(), SessionID: sess.ID, Role: provider.MessageRoleAssistant, Content: reply, CreatedAt: now},
	} {
		if err := m.sessions.AppendMessage(ctx, sess.ID, msg); err != nil {
			slog.Warn("appending message", "session_id", sess.ID, "error", err)
			return
		}
	}
}

// ValidateSessionID rejects ids that are too long or contain whitespace,
// control characters or slashes.
func ValidateSessionID(id string) error {
	if len(id) > MaxSessionIDLen {
		return xzerr.Errorf(xzerr.CodeServerRequestInvalid, "session id longer than %d bytes", MaxSessionIDLen)
	}
	if strings.ContainsFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' }) {
		return xzerr.Errorf(xzerr.CodeServerRequestInvalid, "session id %q contains invalid characters", id)
	}
	return nil
}
