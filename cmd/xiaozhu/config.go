// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/config"
	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, inspect and check the configuration",
	}
	cmd.AddCommand(
		newConfigInitCmd(c),
		newConfigShowCmd(c),
		newConfigPresetsCmd(),
		newConfigCheckCmd(c),
		newConfigSetKeyCmd(c),
		newConfigKeysCmd(c),
		newConfigDeleteKeyCmd(c),
	)
	return cmd
}

// configPath is the file the current invocation reads, or the default
// location when none was found.
func (c *cli) configPath() (string, error) {
	if used := c.v.ConfigFileUsed(); used != "" {
		return used, nil
	}
	return config.DefaultConfigPath()
}

func newConfigInitCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the commented default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			written, err := config.WriteDefault(path, force)
			if err != nil {
				return err
			}
			if !written {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s (use --force to overwrite)\n", path)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	cmd.Flags().String("path", "", "destination (default ~/.config/xiaozhu/xiaozhu.yaml)")
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Keyring references are shown as-is, never resolved.
			cfg, err := config.FromViper(c.v, nil)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			if used := c.v.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in model provider presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tKIND\tMODEL\tENDPOINT")
			for _, p := range provider.Presets() {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Kind, orDash(p.DefaultModel), orDash(p.BaseURL))
			}
			return tw.Flush()
		},
	}
}

func newConfigCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the configured model endpoint accepts the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			preset, err := cfg.Preset()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Checking %s (%s) ... ", preset.DisplayName, orDash(cfg.Model.BaseURL))
			if err := provider.CheckConnection(cmd.Context(), c.httpClient, preset.Kind, cfg.Model.BaseURL, cfg.Model.APIKey); err != nil {
				_, _ = fmt.Fprintln(out, "failed")
				return err
			}
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newConfigSetKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <provider> [key]",
		Short: "Store a provider API key in the OS keyring and select the provider",
		Long: "Store the API key in the operating system keyring and point model.api_key in the " +
			"config file at it. Without a key argument the key is read from standard input.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, err := provider.LookupPreset(args[0])
			if err != nil {
				return err
			}

			var key string
			if len(args) == 2 {
				key = args[1]
			} else {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s API key: ", preset.DisplayName)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return xzerr.Wrap(err, xzerr.CodeCLIInputInvalid, "reading API key")
				}
				key = strings.TrimSpace(line)
			}

			uri, err := secrets.SaveAPIKey(c.secrets(), preset.Name, key)
			if err != nil {
				return err
			}

			path, err := c.configPath()
			if err != nil {
				return err
			}
			if err := config.SetValues(path, map[string]string{
				"model.provider": preset.Name,
				"model.api_key":  uri,
			}); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key in keyring; %s now uses %s\n", preset.Name, path, uri)
			return nil
		},
	}
}

func newConfigKeysCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List providers with an API key in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := secrets.StoredProviders(c.secrets())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No API keys stored.")
				return nil
			}

			inUse := c.v.GetString("model.api_key")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "PROVIDER\tKEYRING URI\tIN USE")
			for _, name := range names {
				uri := secrets.APIKeyURI(name)
				used := ""
				if uri == inUse {
					used = "*"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, uri, used)
			}
			return tw.Flush()
		},
	}
}

func newConfigDeleteKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <provider>",
		Short: "Remove a provider API key from the OS keyring",
		Long: "Remove the stored API key. When model.api_key in the config file points at it, " +
			"that setting is cleared as well.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, err := provider.LookupPreset(args[0])
			if err != nil {
				return err
			}
			if err := secrets.DeleteAPIKey(c.secrets(), preset.Name); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Removed %s key from keyring\n", preset.Name)
			if c.v.GetString("model.api_key") != secrets.APIKeyURI(preset.Name) {
				return nil
			}

			path, err := c.configPath()
			if err != nil {
				return err
			}
			if err := config.SetValues(path, map[string]string{"model.api_key": ""}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Cleared model.api_key in %s\n", path)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
