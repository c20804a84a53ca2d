// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/warden/internal/model"
)

// Supported backend kinds.
const (
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
)

// Backend persists the complete user set. Save always receives the full set
// and must replace whatever was stored before.
type Backend interface {
	Load(ctx context.Context) (map[string]model.User, error)
	Save(ctx context.Context, users map[string]model.User) error
	Close() error
}

// Open returns a Backend for kind. For KindFile target is a path; for the SQL
// kinds it is a DSN.
func Open(kind, target string) (Backend, error) {
	switch kind {
	case "", KindFile:
		return NewFileBackend(target), nil
	case KindSQLite, KindPostgres, KindMySQL:
		return NewSQLBackend(kind, target)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupported, kind)
	}
}
