// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// newLogger builds the process logger: charmbracelet/log for humans,
// slog's JSON handler for machines.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeConfigValidateInvalidValue, "log level %q", level)
	}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.Level(lvl)})), nil
	case "", "text":
		return slog.New(log.NewWithOptions(w, log.Options{
			Level:           lvl,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})), nil
	default:
		return nil, xzerr.Errorf(xzerr.CodeConfigValidateInvalidValue, "unknown log format %q", format)
	}
}

func (c *cli) setupLogging(cmd *cobra.Command) error {
	level := c.v.GetString("log.level")
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}

	logger, err := newLogger(cmd.ErrOrStderr(), level, c.v.GetString("log.format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
