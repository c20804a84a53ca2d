// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core is the facade used by the CLI and the console. It wires the
// credential store, the command registry, the dispatcher and the audit sinks
// together and adds the operator tasks that sit outside the command language:
// bootstrap, password reset, backup, restore and database maintenance.
package core
