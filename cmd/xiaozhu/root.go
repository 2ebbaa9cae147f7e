// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaozhu-dev/xiaozhu/internal/config"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// cli carries the state shared by every subcommand of one root command.
type cli struct {
	v          *viper.Viper
	secrets    func() secrets.Store
	httpClient *http.Client
	wire       wireOptions
}

func newCLI() *cli {
	return &cli{
		v:          viper.New(),
		secrets:    func() secrets.Store { return secrets.NewKeyringStore() },
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewRootCmd creates the root xiaozhu command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newCLI())
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "xiaozhu",
		Short: "小助: weather, career planning and general chat",
		Long: "小助 (xiaozhu) answers weather questions, runs a six-question career planning " +
			"interview that ends in a personalised report, and passes everything else to a language model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.initViper(cmd); err != nil {
				return err
			}
			return c.setupLogging(cmd)
		},
	}

	// Global flags; initViper maps them to config keys.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().String("log-format", "", "log format (text or json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newChatCmd(c),
		newWeatherCmd(c),
		newHistoryCmd(c),
		newSessionCmd(c),
		newConfigCmd(c),
		newStatusCmd(c),
		newVersionCmd(),
	)

	return root
}

// initViper sets up defaults, env bindings, flag bindings and the optional
// config file so that flag > env > file > defaults holds everywhere.
func (c *cli) initViper(cmd *cobra.Command) error {
	v := c.v

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return xzerr.Wrap(err, xzerr.CodeConfigLoadReadFailure, "reading config file")
		}
	} else {
		// SetConfigType is omitted so viper never tries the bare name,
		// which collides with the ./xiaozhu binary.
		v.SetConfigName("xiaozhu")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/xiaozhu")
		v.AddConfigPath("/etc/xiaozhu")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return xzerr.Wrap(err, xzerr.CodeConfigLoadReadFailure, "reading config")
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return xzerr.Wrap(err, xzerr.CodeConfigLoadReadFailure, "reading bootstrapped config")
				}
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("storage.data_dir", flags.Lookup("data-dir")); err != nil {
		return xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "binding data-dir flag")
	}
	if err := v.BindPFlag("log.format", flags.Lookup("log-format")); err != nil {
		return xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "binding log-format flag")
	}

	config.WarnInsecurePermissions(v.ConfigFileUsed())
	return nil
}

// loadConfig decodes and validates the resolved configuration.
func (c *cli) loadConfig() (*config.Config, error) {
	return config.FromViper(c.v, c.secrets())
}
