// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/tui"
)

// commandLine rebuilds a command line from CLI args. A single argument is
// taken verbatim; several are quoted so the dispatcher sees the same words.
func commandLine(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return shellquote.Join(args...)
}

func newExecCmd() *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "exec --as <user> <command...>",
		Short: "Run one command line as a user",
		Long: `Runs a single command line on behalf of --as and prints the result.

Examples:
  warden exec --as alice whoami
  warden exec --as alice -- sudo -u bob list_users
  warden exec --as alice 'sudo -i -u bob 60'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), svc.Execute(cmd.Context(), as, commandLine(args)))
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Invoking user (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <user>",
		Short: "Check a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			pw, err := readSecret(cmd, i18n.T("cli.password_prompt", user))
			if err != nil {
				return err
			}
			defer pw.Zero()
			if !svc.Login(cmd.Context(), user, pw.Reveal()) {
				return errors.New(i18n.T("cli.login_failed", user))
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.login_ok", user))
			return nil
		},
	}
}

func newConsoleCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "console --user <user>",
		Short: "Interactive console for a user",
		Long: `Opens an interactive console that runs every line as --user.
On a terminal the user's password is checked first. When input is piped,
each line is executed and its result printed, without a password prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !stdinIsTerminal() {
				return tui.RunLines(cmd.Context(), svc, user, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			pw, err := readSecret(cmd, i18n.T("cli.password_prompt", user))
			if err != nil {
				return err
			}
			ok := svc.Login(cmd.Context(), user, pw.Reveal())
			pw.Zero()
			if !ok {
				return errors.New(i18n.T("cli.login_failed", user))
			}
			return tui.Run(cmd.Context(), svc, user)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "User to act as (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
