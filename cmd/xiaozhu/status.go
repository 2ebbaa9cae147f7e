// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func newStatusCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Check a running xiaozhu server's health and provider endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStatus(cmd)
		},
	}
	cmd.Flags().String("address", "", "server address to check (default server.listen)")
	return cmd
}

func (c *cli) runStatus(cmd *cobra.Command) error {
	addr, _ := cmd.Flags().GetString("address")
	if addr == "" {
		addr = c.v.GetString("server.listen")
	}
	out := cmd.OutOrStdout()
	api := newAPIClient(addr, c.httpClient)

	var health struct {
		Status string `json:"status"`
	}
	if err := api.getJSON(cmd.Context(), "/health", &health); err != nil {
		if xzerr.HasCode(err, xzerr.CodeCLIServerDown) {
			_, _ = fmt.Fprintf(out, "小助 at %s is not running\n", addr)
			return nil
		}
		return err
	}
	_, _ = fmt.Fprintf(out, "小助 at %s: %s\n", addr, health.Status)

	var providers struct {
		Statuses []provider.ProviderStatus `json:"statuses"`
	}
	if err := api.getJSON(cmd.Context(), "/api/v1/providers", &providers); err != nil {
		return err
	}
	if len(providers.Statuses) == 0 {
		_, _ = fmt.Fprintln(out, "  no model provider configured")
	}
	for _, st := range providers.Statuses {
		state := "available"
		if !st.Available {
			state = "unavailable"
		}
		line := fmt.Sprintf("  %s: %s", st.Provider, state)
		if st.Message != "" {
			line += " (" + st.Message + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
