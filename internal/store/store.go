// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package store persists chat sessions and the weather query history.
package store

import (
	"context"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
)

// SessionStore manages chat sessions, their career interview state and the
// message transcript.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	SaveCareer(ctx context.Context, id string, state career.State) error
	ListSessions(ctx context.Context, opts ListOpts) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Active message window (last N messages sent with a general question).
	AppendMessage(ctx context.Context, sessionID string, msg *Message) error
	GetActiveWindow(ctx context.Context, sessionID string, limit int) ([]*Message, error)
}

// HistoryStore keeps the weather history cache across restarts. SaveHistory
// replaces the stored list wholesale.
type HistoryStore interface {
	weather.Persister
	LoadHistory(ctx context.Context) ([]weather.Entry, error)
}

// Store bundles the stores of one backend.
type Store interface {
	Sessions() SessionStore
	History() HistoryStore
	Close() error
}
