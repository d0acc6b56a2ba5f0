// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/keyward/internal/auth"
)

// Output formats for list commands.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

const listTimeLayout = "2006-01-02 15:04"

// addOutputFlag registers --output on a list command.
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json or yaml)")
}

// outputFormat reads and validates --output.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", oops.Code("INVALID_OUTPUT").Wrap(err)
	}
	switch strings.ToLower(format) {
	case outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case outputYAML:
		return outputYAML, nil
	default:
		return "", oops.Code("INVALID_OUTPUT").
			With("output", format).
			Errorf("output must be table, json or yaml, got %q", format)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return oops.Code("OUTPUT_FAILED").With("format", format).Wrap(err)
		}
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return oops.Code("OUTPUT_FAILED").With("format", format).Wrap(err)
		}
		if err := enc.Close(); err != nil {
			return oops.Code("OUTPUT_FAILED").With("format", format).Wrap(err)
		}
	default:
		return oops.Code("OUTPUT_FAILED").Errorf("unsupported structured format %q", format)
	}
	return nil
}

// userView is the listed form of a user. The password hash is never shown.
type userView struct {
	ID        int64     `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

func newUserViews(users []*auth.User) []userView {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID:        u.ID,
			Username:  u.Username,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}
	return views
}

// sessionView is the listed form of a session. The token is never shown.
type sessionView struct {
	ID        int64              `json:"id" yaml:"id"`
	UserID    int64              `json:"user_id" yaml:"user_id"`
	Username  string             `json:"username" yaml:"username"`
	CreatedAt time.Time          `json:"created_at" yaml:"created_at"`
	ExpiresAt *time.Time         `json:"expires_at" yaml:"expires_at"`
	Status    auth.SessionStatus `json:"status" yaml:"status"`
}

func newSessionViews(sessions []*auth.SessionInfo, now time.Time) []sessionView {
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:        s.ID,
			UserID:    s.UserID,
			Username:  s.Username,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Status:    s.StatusAt(now),
		})
	}
	return views
}

func writeUserTable(w io.Writer, users []userView) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "No users found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tACTIVE\tCREATED")
	for _, u := range users {
		active := "yes"
		if !u.Active {
			active = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, active, u.CreatedAt.Format(listTimeLayout))
	}
	return tw.Flush()
}

func writeSessionTable(w io.Writer, sessions []sessionView) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tCREATED\tEXPIRES\tSTATUS")
	for _, s := range sessions {
		expires := "never"
		if s.ExpiresAt != nil {
			expires = s.ExpiresAt.Format(listTimeLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.ID, s.Username, s.CreatedAt.Format(listTimeLayout), expires, s.Status)
	}
	return tw.Flush()
}
