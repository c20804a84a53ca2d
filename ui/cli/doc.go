// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli is warden's command-line interface, built on Cobra. The root
// command loads configuration, opens the configured store and hands every
// subcommand a ready core.Service.
package cli
