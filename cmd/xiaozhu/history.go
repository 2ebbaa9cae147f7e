// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the weather query history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recently queried cities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return c.withApp(cmd.Context(), func(app *App) error {
				entries := app.Router.History().List()
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No weather queries yet.")
					return nil
				}
				writeHistory(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	list.Flags().Bool("json", false, "print entries as JSON")

	top := &cobra.Command{
		Use:   "top",
		Short: "Show the most frequently queried city",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				e, ok := app.Router.History().MostFrequent()
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No weather queries yet.")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d queries)\n", e.City, e.QueryCount)
				return nil
			})
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded weather query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				n := app.Router.History().Len()
				app.Router.History().Clear(cmd.Context())
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries.\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, top, clear)
	return cmd
}

func writeHistory(w io.Writer, entries []weather.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CITY\tQUERIES\tLAST QUERY\tLAST WEATHER")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			e.City, e.QueryCount, e.LastQueryTime.Local().Format(time.DateTime), e.LastWeather.Summary())
	}
	_ = tw.Flush()
}
