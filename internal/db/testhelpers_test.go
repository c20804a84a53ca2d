// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"

	"github.com/toeirei/warden/internal/model"
)

// newTestSQLBackend opens a private in-memory sqlite database for t.
func newTestSQLBackend(t *testing.T) *SQLBackend {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	b, err := NewSQLBackend(KindSQLite, dsn)
	if err != nil {
		t.Fatalf("NewSQLBackend failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleUsers() map[string]model.User {
	return map[string]model.User{
		"alice": {Username: "alice", Permissions: []string{"sudo", "say"}, Password: "abcd$ef01"},
		"bob":   {Username: "bob", Permissions: []string{"admin"}},
		"carol": {Username: "carol", Permissions: []string{}},
	}
}

func assertSameUsers(t *testing.T, got, want map[string]model.User) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d users, got %d: %+v", len(want), len(got), got)
	}
	for name, w := range want {
		g, ok := got[name]
		if !ok {
			t.Fatalf("missing user %q", name)
		}
		if g.Username != name {
			t.Errorf("%s: username field = %q", name, g.Username)
		}
		if g.Password != w.Password {
			t.Errorf("%s: password = %q, want %q", name, g.Password, w.Password)
		}
		if len(g.Permissions) != len(w.Permissions) {
			t.Fatalf("%s: permissions = %v, want %v", name, g.Permissions, w.Permissions)
		}
		for i := range w.Permissions {
			if g.Permissions[i] != w.Permissions[i] {
				t.Errorf("%s: permission[%d] = %q, want %q", name, i, g.Permissions[i], w.Permissions[i])
			}
		}
	}
}
