// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
)

func newSessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored chat sessions",
	}
	cmd.AddCommand(
		newSessionListCmd(c),
		newSessionShowCmd(c),
		newSessionDeleteCmd(c),
	)
	return cmd
}

func newSessionListCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			out := cmd.OutOrStdout()
			return c.withApp(cmd.Context(), func(app *App) error {
				sessions, err := app.Store.Sessions().ListSessions(cmd.Context(), store.ListOpts{Limit: limit})
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(out, "No sessions found")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tCAREER\tUPDATED")
				for _, s := range sessions {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, careerLabel(s.Career), s.UpdatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of sessions")
	return cmd
}

func newSessionShowCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session's interview state and recent messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("messages")
			out := cmd.OutOrStdout()
			return c.withApp(cmd.Context(), func(app *App) error {
				sessions := app.Store.Sessions()
				s, err := sessions.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				msgs, err := sessions.GetActiveWindow(cmd.Context(), s.ID, n)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(out, "Session:  %s\n", s.ID)
				_, _ = fmt.Fprintf(out, "Created:  %s\n", s.CreatedAt.Local().Format(time.DateTime))
				_, _ = fmt.Fprintf(out, "Career:   %s\n", careerLabel(s.Career))
				if s.Career.Active() {
					_, _ = fmt.Fprintln(out, "          "+career.ProgressBar(s.Career.StageIndex))
				}
				for _, m := range msgs {
					_, _ = fmt.Fprintf(out, "\n[%s] %s\n%s\n", m.Role, m.CreatedAt.Local().Format(time.TimeOnly), m.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("messages", 10, "number of recent messages to print")
	return cmd
}

func newSessionDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				if err := app.Store.Sessions().DeleteSession(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			})
		},
	}
}

func careerLabel(s career.State) string {
	switch {
	case s.Active():
		return fmt.Sprintf("%s (%d/%d)", career.StatusInProgress, s.StageIndex, career.StageCount)
	case s.Status == "":
		return string(career.StatusNotStarted)
	default:
		return string(s.Status)
	}
}
