// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/toeirei/warden/internal/model"
	"github.com/uptrace/bun"
)

// AuditLogModel maps the audit_log table. Rows are only ever inserted.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int            `bun:"id,pk,autoincrement"`
	Timestamp     time.Time      `bun:"timestamp"`
	Level         string         `bun:"level"`
	Action        string         `bun:"action"`
	Invoker       string         `bun:"invoker"`
	ActingUser    sql.NullString `bun:"acting_user"`
	Command       sql.NullString `bun:"command"`
	Outcome       sql.NullString `bun:"outcome"`
	Details       sql.NullString `bun:"details"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// LogEvent appends one audit row.
func (s *SQLBackend) LogEvent(ctx context.Context, e model.AuditEvent) error {
	level := "info"
	if e.Failed() {
		level = "error"
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	row := &AuditLogModel{
		Timestamp:  ts.UTC(),
		Level:      level,
		Action:     e.Action,
		Invoker:    e.Invoker,
		ActingUser: nullString(e.ActingUser),
		Command:    nullString(e.Command),
		Outcome:    nullString(string(e.Outcome)),
		Details:    nullString(e.Detail),
	}
	_, err := s.bun.NewInsert().Model(row).Exec(ctx)
	return err
}

// CountAuditRows returns the number of audit rows. Used by `warden db stats`
// and tests; the dispatcher never reads the trail back.
func (s *SQLBackend) CountAuditRows(ctx context.Context) (int, error) {
	return s.bun.NewSelect().Model((*AuditLogModel)(nil)).Count(ctx)
}
