// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package server

import (
	"context"

	"github.com/xiaozhu-dev/xiaozhu/internal/agent"
	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// ProviderStatuser reports provider availability.
type ProviderStatuser interface {
	Statuses(ctx context.Context) []provider.ProviderStatus
}

// Services holds dependencies injected into route handlers.
type Services struct {
	router    *agent.Router
	sessions  store.SessionStore
	chat      *conversation.Manager
	providers ProviderStatuser // optional; nil = provider endpoint unavailable
}

// NewServices validates and bundles the handler dependencies. At most one
// provider statuser may be supplied.
func NewServices(router *agent.Router, sessions store.SessionStore, providers ...ProviderStatuser) (*Services, error) {
	if router == nil {
		return nil, xzerr.New(xzerr.CodeServerConfigInvalid, "agent router is required")
	}
	if sessions == nil {
		return nil, xzerr.New(xzerr.CodeServerConfigInvalid, "session store is required")
	}
	if len(providers) > 1 {
		return nil, xzerr.New(xzerr.CodeServerConfigInvalid, "at most one provider statuser may be supplied")
	}
	s := &Services{
		router:   router,
		sessions: sessions,
		chat:     conversation.NewManager(router, sessions),
	}
	if len(providers) > 0 && providers[0] != nil {
		s.providers = providers[0]
	}
	return s, nil
}

// Router returns the agent router.
func (s *Services) Router() *agent.Router { return s.router }

// Sessions returns the session store.
func (s *Services) Sessions() store.SessionStore { return s.sessions }

// Providers returns the provider statuser, or nil.
func (s *Services) Providers() ProviderStatuser { return s.providers }
