// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// renderer writes turn events to a terminal. In plain mode it emits the
// raw text only, which keeps output stable for pipes and tests.
type renderer struct {
	out   io.Writer
	plain bool
	md    *glamour.TermRenderer
}

func newRenderer(out io.Writer, plain bool) *renderer {
	r := &renderer{out: out, plain: plain}
	if plain {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		slog.Debug("markdown renderer unavailable", "error", err)
		return r
	}
	r.md = md
	return r
}

// Event renders one event. Content fragments are written as they arrive.
func (r *renderer) Event(e event.Event) {
	switch ev := e.(type) {
	case event.Content:
		_, _ = io.WriteString(r.out, ev.Text)
	case event.Weather:
		if r.plain {
			_, _ = fmt.Fprint(r.out, ev.Snapshot.Summary())
			return
		}
		_, _ = fmt.Fprint(r.out, r.weatherCard(ev.Snapshot))
	case event.CareerProgress:
		if ev.Prompt == "" {
			// A reset carries no prompt.
			r.Info(conversation.CancelReply)
			return
		}
		_, _ = fmt.Fprintln(r.out, r.markdown(ev.Prompt))
	case event.Error:
		r.Error(ev.Message)
	case event.Done:
		_, _ = fmt.Fprintln(r.out)
	}
}

// Error prints a user-facing error line.
func (r *renderer) Error(msg string) {
	line := "✗ " + msg
	if !r.plain {
		line = errorStyle.Render(line)
	}
	_, _ = fmt.Fprintln(r.out, line)
}

// Info prints a dimmed status line.
func (r *renderer) Info(msg string) {
	if !r.plain {
		msg = dimStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(r.out, msg)
}

func (r *renderer) markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// weatherCard renders a snapshot and its forecast inside a bordered box.
func (r *renderer) weatherCard(s weather.Snapshot) string {
	var b strings.Builder
	place := s.City
	if s.Area != "" && s.Area != s.City {
		place += " · " + s.Area
	}
	if s.Country != "" {
		place += ", " + s.Country
	}
	b.WriteString(titleStyle.Render(place))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %.0f°C (体感 %.0f°C)  湿度 %d%%  风速 %.0f km/h",
		conditionStyle(s.Good()).Render(s.Condition), s.TemperatureC, s.FeelsLikeC, s.HumidityPct, s.WindSpeedKph)

	for _, d := range s.Forecast {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s  %.0f~%.0f°C  %s",
			dimStyle.Render(d.Date), d.DayOfWeek, d.TempMinC, d.TempMaxC, conditionStyle(d.Good).Render(d.Condition))
	}
	return boxStyle.Render(b.String())
}

func conditionStyle(good bool) lipgloss.Style {
	if good {
		return goodStyle
	}
	return badStyle
}
