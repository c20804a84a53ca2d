// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Command warden runs commands on behalf of users behind a permission check.
//
// Usage:
//
//	warden [command] [flags]
//
// See --help for the available commands.
package main

import (
	"os"

	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
