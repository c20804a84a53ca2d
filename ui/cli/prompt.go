// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/security"
	"golang.org/x/term"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// readSecret prompts on stderr and reads one password. On a terminal echo is
// disabled; otherwise a single line is read from the command's input.
func readSecret(cmd *cobra.Command, prompt string) (security.Secret, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if stdinIsTerminal() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return security.FromBytes(b), nil
	}
	line, err := readLine(cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return security.FromString(line), nil
}

// readNewSecret asks twice and requires both answers to match.
func readNewSecret(cmd *cobra.Command, user string) (security.Secret, error) {
	first, err := readSecret(cmd, i18n.T("cli.password_prompt", user))
	if err != nil {
		return nil, err
	}
	second, err := readSecret(cmd, i18n.T("cli.password_confirm"))
	if err != nil {
		first.Zero()
		return nil, err
	}
	defer second.Zero()
	if len(first) == 0 {
		return nil, errors.New(i18n.T("cli.password_empty"))
	}
	if first.Reveal() != second.Reveal() {
		first.Zero()
		return nil, errors.New(i18n.T("cli.password_mismatch"))
	}
	return first, nil
}

// readLine reads up to a newline one byte at a time so nothing past the line
// is consumed from r.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}
