// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
)

func newWeatherCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "weather <city>",
		Short:   "Look up current weather and forecast for a city",
		Example: "  xiaozhu weather 北京\n  xiaozhu weather --json Shanghai",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWeather(cmd, strings.Join(args, " "))
		},
	}
	cmd.Flags().Bool("json", false, "print the snapshot as JSON")
	cmd.Flags().Bool("plain", false, "disable styling")
	return cmd
}

func (c *cli) runWeather(cmd *cobra.Command, city string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	plain, _ := cmd.Flags().GetBool("plain")
	out := cmd.OutOrStdout()

	return c.withApp(cmd.Context(), func(app *App) error {
		snap, entry, err := app.Router.Weather(cmd.Context(), city)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, struct {
				Weather weather.Snapshot `json:"weather"`
				Summary string           `json:"summary"`
				History weather.Entry    `json:"history"`
			}{snap, snap.Summary(), entry})
		}

		if plain {
			_, _ = fmt.Fprintln(out, snap.Summary())
			for _, d := range snap.Forecast {
				_, _ = fmt.Fprintf(out, "%s %s %.0f~%.0f°C %s\n", d.Date, d.DayOfWeek, d.TempMinC, d.TempMaxC, d.Condition)
			}
			return nil
		}
		r := newRenderer(out, false)
		_, _ = fmt.Fprintln(out, r.weatherCard(snap))
		r.Info(fmt.Sprintf("已查询 %d 次", entry.QueryCount))
		return nil
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
