// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package store

import (
	"strings"
	"time"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Session is one conversation and the interview state it carries.
type Session struct {
	ID        string
	Career    career.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one entry of a session transcript.
type Message struct {
	ID        string
	SessionID string
	Role      provider.MessageRole
	Content   string
	CreatedAt time.Time
}

// ListOpts paginates list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// Validate checks that the Session has all required fields set correctly.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return xzerr.New(xzerr.CodeStoreInvalidInput, "session: ID is required")
	}
	if s.CreatedAt.IsZero() {
		return xzerr.New(xzerr.CodeStoreInvalidInput, "session: CreatedAt is required")
	}
	if err := s.Career.Validate(); err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreInvalidInput, "session: invalid career state",
			xzerr.FieldSessionID(s.ID))
	}
	return nil
}

// Validate checks that the Message has all required fields set correctly.
func (m Message) Validate() error {
	if m.ID == "" {
		return xzerr.New(xzerr.CodeStoreInvalidInput, "message: ID is required")
	}
	if !m.Role.Valid() {
		return xzerr.Errorf(xzerr.CodeStoreInvalidInput, "message: invalid role %q", m.Role)
	}
	if m.CreatedAt.IsZero() {
		return xzerr.New(xzerr.CodeStoreInvalidInput, "message: CreatedAt is required")
	}
	return nil
}

// ToProvider converts a transcript window into model messages.
func ToProvider(msgs []*Message) []provider.Message {
	out := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, provider.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
