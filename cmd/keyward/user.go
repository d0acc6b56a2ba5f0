// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/keyward/internal/auth"
)

// newUserCmd creates the user command group.
func newUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(newUserCreateCmd(deps))
	cmd.AddCommand(newUserListCmd(deps))
	cmd.AddCommand(newUserDeleteCmd(deps))
	cmd.AddCommand(newUserActiveCmd(deps, "disable", false))
	cmd.AddCommand(newUserActiveCmd(deps, "enable", true))

	return cmd
}

func newUserCreateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user",
		Long: `Create a user. The password is read from standard input twice, once as
the password and once as confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := auth.ValidateUsername(username); err != nil {
				return err
			}
			password, err := newPrompter(cmd).newPassword(username)
			if err != nil {
				return err
			}

			return withApp(cmd, deps, func(a *app) error {
				user, err := a.engine.CreateUser(cmd.Context(), username, password)
				if auth.IsDuplicateUser(err) {
					return oops.Code("USER_DUPLICATE").Errorf("user '%s' already exists", username)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User '%s' created successfully (ID: %d).\n", user.Username, user.ID)
				return nil
			})
		},
	}
}

func newUserListCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(a *app) error {
				users, err := a.engine.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				views := newUserViews(users)
				if format == outputTable {
					return writeUserTable(cmd.OutOrStdout(), views)
				}
				return writeStructured(cmd.OutOrStdout(), format, views)
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newUserDeleteCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user and all of their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			force, _ := cmd.Flags().GetBool("force") //nolint:errcheck // flag registered below

			return withApp(cmd, deps, func(a *app) error {
				ctx := cmd.Context()
				if _, found, err := a.engine.GetUser(ctx, username); err != nil {
					return err
				} else if !found {
					return userNotFound(username)
				}

				if !force {
					ok, err := newPrompter(cmd).confirm(
						fmt.Sprintf("Delete user '%s'? This cannot be undone. [y/N]: ", username))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}

				deleted, err := a.engine.DeleteUser(ctx, username)
				if err != nil {
					return err
				}
				if !deleted {
					return userNotFound(username)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User '%s' deleted.\n", username)
				return nil
			})
		},
	}
	cmd.Flags().BoolP("force", "f", false, "skip the confirmation prompt")
	return cmd
}

func newUserActiveCmd(deps *Deps, verb string, active bool) *cobra.Command {
	short := "Disable a user; existing sessions stay valid until revoked"
	if active {
		short = "Re-enable a disabled user"
	}
	return &cobra.Command{
		Use:   verb + " USERNAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			return withApp(cmd, deps, func(a *app) error {
				found, err := a.engine.SetUserActive(cmd.Context(), username, active)
				if err != nil {
					return err
				}
				if !found {
					return userNotFound(username)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User '%s' %sd.\n", username, verb)
				return nil
			})
		},
	}
}

func userNotFound(username string) error {
	return oops.Code("USER_NOT_FOUND").With("username", username).Errorf("user '%s' not found", username)
}
