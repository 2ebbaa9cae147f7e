// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/server"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Load configuration, wire storage and the model provider, and serve the chat API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = c.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func (c *cli) runServe(cmd *cobra.Command) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Wire(ctx, cfg, c.wire)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing app", "error", err)
		}
	}()

	svc, err := server.NewServices(app.Router, app.Store.Sessions(), app.Providers)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, svc)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "creating server")
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "小助 listening on http://%s (model %s/%s)\n",
		cfg.Server.Listen, cfg.Model.Provider, cfg.Model.Name)
	slog.Info("server starting", "listen", cfg.Server.Listen, "storage", cfg.Storage.Backend)

	return srv.Start(ctx)
}
