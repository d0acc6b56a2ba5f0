// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// newSessionCmd creates the session command group.
func newSessionCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue, validate and revoke session tokens",
	}

	cmd.AddCommand(newSessionLoginCmd(deps))
	cmd.AddCommand(newSessionValidateCmd(deps))
	cmd.AddCommand(newSessionLogoutCmd(deps))
	cmd.AddCommand(newSessionRevokeAllCmd(deps))
	cmd.AddCommand(newSessionListCmd(deps))

	return cmd
}

func newSessionLoginCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME",
		Short: "Authenticate and print a new session token",
		Long: `Authenticate with the password read from standard input. On success the
new token is the only thing written to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, err := newPrompter(cmd).askSecret(fmt.Sprintf("Password for '%s': ", username))
			if err != nil {
				return err
			}

			return withApp(cmd, deps, func(a *app) error {
				token, ok, err := a.engine.Login(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code("INVALID_CREDENTIALS").Errorf("invalid credentials")
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
}

func newSessionValidateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "validate TOKEN",
		Short: "Check a session token and show its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, deps, func(a *app) error {
				user, ok, err := a.engine.ValidateSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return oops.Code("INVALID_SESSION").Errorf("invalid, revoked or expired session")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Valid session for user '%s' (ID: %d).\n", user.Username, user.ID)
				return nil
			})
		},
	}
}

func newSessionLogoutCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout TOKEN",
		Short: "Revoke a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, deps, func(a *app) error {
				found, err := a.engine.Logout(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !found {
					return oops.Code("SESSION_NOT_FOUND").Errorf("session not found")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session revoked.")
				return nil
			})
		},
	}
}

func newSessionRevokeAllCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-all USERNAME",
		Short: "Revoke every active session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return withApp(cmd, deps, func(a *app) error {
				ctx := cmd.Context()
				user, found, err := a.engine.GetUser(ctx, username)
				if err != nil {
					return err
				}
				if !found {
					return userNotFound(username)
				}

				count, err := a.engine.RevokeSessions(ctx, user.ID)
				if err != nil {
					return err
				}
				if count > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s) for user '%s'.\n", count, username)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No active sessions found for user '%s'.\n", username)
				}
				return nil
			})
		},
	}
}

func newSessionListCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, optionally for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			username, _ := cmd.Flags().GetString("user") //nolint:errcheck // flag registered below

			return withApp(cmd, deps, func(a *app) error {
				sessions, err := a.engine.ListSessions(cmd.Context(), username)
				if err != nil {
					return err
				}
				views := newSessionViews(sessions, a.engine.Now())
				if format == outputTable {
					return writeSessionTable(cmd.OutOrStdout(), views)
				}
				return writeStructured(cmd.OutOrStdout(), format, views)
			})
		},
	}
	cmd.Flags().StringP("user", "u", "", "only list sessions of this user")
	addOutputFlag(cmd)
	return cmd
}
