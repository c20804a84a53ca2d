// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// RunLines is the console for non-terminal input: every non-blank line of r
// is executed as user and its result written to w on its own line.
func RunLines(ctx context.Context, b Backend, user string, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, b.Execute(ctx, user, line)); err != nil {
			return err
		}
	}
	return sc.Err()
}
