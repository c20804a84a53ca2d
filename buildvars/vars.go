// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds values injected at link time.
package buildvars

// Version is set via -ldflags "-X github.com/toeirei/warden/buildvars.Version=...".
// It is empty for development builds.
var Version string

// VersionOrDefault returns Version, or def when Version is unset.
func VersionOrDefault(def string) string {
	if Version != "" {
		return Version
	}
	return def
}
