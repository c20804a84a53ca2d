// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/core"
	"github.com/toeirei/warden/internal/i18n"
)

func printList(w io.Writer, items []string, emptyID string) {
	if len(items) == 0 {
		fmt.Fprintln(w, i18n.T(emptyID))
		return
	}
	for _, it := range items {
		fmt.Fprintln(w, it)
	}
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap <admin>",
		Short: "Create the first administrator",
		Long: `Creates <admin> with the wildcard permission and a password.
Refuses to run once the store holds any user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin := args[0]
			if len(svc.ListUsers()) > 0 {
				return errors.New(i18n.T("cli.bootstrap_refused"))
			}
			pw, err := readNewSecret(cmd, admin)
			if err != nil {
				return err
			}
			defer pw.Zero()
			if err := svc.Bootstrap(cmd.Context(), admin, pw.Reveal()); err != nil {
				if errors.Is(err, core.ErrAlreadyBootstrapped) {
					return errors.New(i18n.T("cli.bootstrap_refused"))
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.bootstrap_done", admin))
			return nil
		},
	}
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printList(cmd.OutOrStdout(), svc.ListUsers(), "cli.no_users")
		},
	}
}

func newPermsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "perms <user>",
		Short: "List a user's permissions",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printList(cmd.OutOrStdout(), svc.ListPermissions(args[0]), "cli.no_permissions")
		},
	}
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the available commands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range svc.ListCommands() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <user>",
		Short: "Set a user's password",
		Long:  `Sets <user>'s password directly in the store, creating the user if needed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			pw, err := readNewSecret(cmd, user)
			if err != nil {
				return err
			}
			defer pw.Zero()
			if err := svc.SetPassword(cmd.Context(), user, pw.Reveal()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.passwd_done", user))
			return nil
		},
	}
}
