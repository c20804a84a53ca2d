// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/toeirei/warden/internal/model"
)

func TestSQLBackend_RoundTrip(t *testing.T) {
	b := newTestSQLBackend(t)
	ctx := context.Background()

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load on empty db failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty db, got %+v", got)
	}

	if err := b.Save(ctx, sampleUsers()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameUsers(t, got, sampleUsers())

	// Save replaces the previous contents entirely.
	next := map[string]model.User{"dave": {Username: "dave", Permissions: []string{"say"}}}
	if err := b.Save(ctx, next); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameUsers(t, got, next)
}

func TestSQLBackend_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.db")
	for i := 0; i < 2; i++ {
		b, err := NewSQLBackend(KindSQLite, path)
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		_ = b.Close()
	}
}

func TestSQLBackend_AuditLog(t *testing.T) {
	b := newTestSQLBackend(t)
	ctx := context.Background()
	events := []model.AuditEvent{
		{Time: time.Now(), Action: "EXECUTE", Invoker: "alice", ActingUser: "bob", Command: "whoami", Outcome: model.OutcomeOK},
		{Action: "SUDO_SESSION_END", Invoker: "alice"},
	}
	for _, e := range events {
		if err := b.LogEvent(ctx, e); err != nil {
			t.Fatalf("LogEvent failed: %v", err)
		}
	}
	n, err := b.CountAuditRows(ctx)
	if err != nil {
		t.Fatalf("CountAuditRows failed: %v", err)
	}
	if n != len(events) {
		t.Fatalf("expected %d audit rows, got %d", len(events), n)
	}
}

func TestOpen_Kinds(t *testing.T) {
	b, err := Open("", filepath.Join(t.TempDir(), "u.json"))
	if err != nil {
		t.Fatalf("Open file failed: %v", err)
	}
	if _, ok := b.(*FileBackend); !ok {
		t.Fatalf("expected *FileBackend, got %T", b)
	}

	b, err = Open(KindSQLite, filepath.Join(t.TempDir(), "w.db"))
	if err != nil {
		t.Fatalf("Open sqlite failed: %v", err)
	}
	defer func() { _ = b.Close() }()
	if sb, ok := b.(*SQLBackend); !ok || sb.Kind() != KindSQLite {
		t.Fatalf("expected sqlite *SQLBackend, got %T", b)
	}

	if _, err := Open("oracle", "x"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestRunMaintenance_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maint.db")
	b, err := NewSQLBackend(KindSQLite, path)
	if err != nil {
		t.Fatalf("NewSQLBackend failed: %v", err)
	}
	if err := b.Save(context.Background(), sampleUsers()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_ = b.Close()

	if err := RunMaintenance(context.Background(), KindSQLite, path); err != nil {
		t.Fatalf("RunMaintenance failed: %v", err)
	}
	if err := RunMaintenance(context.Background(), KindFile, "users.json"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for file backend, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n CREATE TABLE b (y INT);\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (x INT)" || got[1] != "CREATE TABLE b (y INT)" {
		t.Fatalf("unexpected statements: %#v", got)
	}
}
