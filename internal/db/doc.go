// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db contains the durable backends behind the credential store.
//
// A Backend only knows how to load and save the full user set; all policy
// (wildcards, idempotency, rollback on failed writes) lives in package
// credentials. Two families exist:
//
//   - FileBackend writes the users document as JSON (default) or YAML, keyed
//     by username with "perms" and "password" fields.
//   - SQLBackend stores the same data through Bun on sqlite, postgres or
//     mysql, with embedded migrations.
//
// Testing notes
//   - Prefer `Open("sqlite", "file:<name>?mode=memory&cache=shared")` in tests
//     that need real SQL semantics; use t.TempDir() for the file backend.
package db
