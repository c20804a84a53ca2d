// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads warden's settings with Viper from defaults, a YAML
// file, WARDEN_* environment variables and command-line flags, and writes
// the effective configuration back as YAML.
package config
