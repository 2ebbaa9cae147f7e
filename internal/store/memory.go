// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	messages map[string][]*Message
}

// MemoryHistoryStore is a process-local HistoryStore.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries []weather.Entry
}

var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ HistoryStore = (*MemoryHistoryStore)(nil)
)

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() Store {
	return NewCompositeStore(
		&MemorySessionStore{sessions: map[string]*Session{}, messages: map[string][]*Message{}},
		&MemoryHistoryStore{},
	)
}

func (m *MemorySessionStore) CreateSession(_ context.Context, session *Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return xzerr.Errorf(xzerr.CodeStoreInvalidInput, "session %s already exists", session.ID)
	}
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemorySessionStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sessionNotFound(id)
	}
	return cloneSession(s), nil
}

func (m *MemorySessionStore) SaveCareer(_ context.Context, id string, state career.State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return sessionNotFound(id)
	}
	s.Career = state.Clone()
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemorySessionStore) ListSessions(_ context.Context, opts ListOpts) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

func (m *MemorySessionStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return sessionNotFound(id)
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *MemorySessionStore) AppendMessage(_ context.Context, sessionID string, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return sessionNotFound(sessionID)
	}
	cp := *msg
	cp.SessionID = sessionID
	m.messages[sessionID] = append(m.messages[sessionID], &cp)
	return nil
}

func (m *MemorySessionStore) GetActiveWindow(_ context.Context, sessionID string, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (h *MemoryHistoryStore) SaveHistory(_ context.Context, entries []weather.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = slices.Clone(entries)
	return nil
}

func (h *MemoryHistoryStore) LoadHistory(context.Context) ([]weather.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries), nil
}

func cloneSession(s *Session) *Session {
	cp := *s
	cp.Career = s.Career.Clone()
	return &cp
}

func sessionNotFound(id string) error {
	return xzerr.New(xzerr.CodeStoreSessionGetNotFound, "session not found", xzerr.FieldSessionID(id))
}

func paginate[T any](items []T, opts ListOpts) []T {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if opts.Offset >= len(items) {
		return nil
	}
	items = items[max(opts.Offset, 0):]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
