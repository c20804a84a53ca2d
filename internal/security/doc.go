// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package security holds the salted password record format and a small
// redacting wrapper for plaintext secrets read from terminals or flags.
package security
