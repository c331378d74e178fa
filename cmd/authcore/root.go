// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/logging"
	"github.com/holomush/authcore/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

// newRootCmdWithDeps builds the command tree. A nil deps uses production
// implementations.
func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - account registration and authentication",
		Long: `authcore manages user accounts backed by PostgreSQL: registration,
password and Google sign-in, account activation and password reset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newUserCmd(deps))
	cmd.AddCommand(newServeCmd(deps))

	return cmd
}

// loadRuntime reads configuration for cmd and builds its logger. Without
// --config the XDG default file is used if present. Log output goes to the
// command's error stream.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, err := xdg.ResolveConfigFile(configFile)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup("authcore", version, cfg.Log.Format, level, cmd.ErrOrStderr())
	return cfg, logger, nil
}
