// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/toeirei/warden/internal/logging"

func dbLogf(format string, v ...any) {
	logging.Debugf(format, v...)
}
