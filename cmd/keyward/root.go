// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/keyward/internal/config"
	"github.com/holomush/keyward/internal/logging"
)

const serviceName = "keyward"

// NewRootCmd creates the root command for the keyward CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

// newRootCmdWithDeps builds the full command tree. If deps is nil, default
// implementations are used.
func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "keyward",
		Short: "Keyward - user accounts and session tokens",
		Long: `Keyward manages user accounts with argon2id-hashed passwords and the
opaque bearer tokens issued to them. Sessions can be validated, listed and
revoked. Data lives in SQLite or PostgreSQL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (YAML, default $XDG_CONFIG_HOME/keyward/config.yaml)")
	flags.String("env-file", "", "dotenv file with environment overrides")
	flags.String("database-url", defaults.Database.URL, "database URL (sqlite://path or postgres://...)")
	flags.String("log-format", logging.FormatText, "log format (text or json)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newUserCmd(deps))
	cmd.AddCommand(newSessionCmd(deps))

	return cmd
}
