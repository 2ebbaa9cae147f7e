// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package agent

import (
	"sync"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// SessionGuard tracks which sessions have a turn in flight. Unlike a queue it
// never waits: a second acquire for a busy session fails immediately.
type SessionGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSessionGuard returns an empty SessionGuard.
func NewSessionGuard() *SessionGuard {
	return &SessionGuard{
		inflight: make(map[string]struct{}),
	}
}

// Acquire marks sessionID as busy and returns the function that clears it.
// The release function is idempotent and safe for concurrent calls.
func (g *SessionGuard) Acquire(sessionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[sessionID]; busy {
		return nil, xzerr.New(xzerr.CodeAgentSessionBusy,
			"session has a turn in flight", xzerr.FieldSessionID(sessionID))
	}
	g.inflight[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, sessionID)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether sessionID currently has a turn in flight.
func (g *SessionGuard) Busy(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[sessionID]
	return ok
}

// Len returns the number of sessions in flight.
func (g *SessionGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
