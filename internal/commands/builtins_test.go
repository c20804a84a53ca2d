// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package commands

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/toeirei/warden/internal/credentials"
	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/dispatch"
	"github.com/toeirei/warden/internal/registry"
)

func newEnv(t *testing.T) (*dispatch.Dispatcher, *credentials.Store) {
	t.Helper()
	ctx := context.Background()
	store := credentials.Open(ctx, db.NewFileBackend(filepath.Join(t.TempDir(), "users.json")))
	t.Cleanup(func() { _ = store.Close() })

	for _, step := range []struct{ user, perm string }{
		{"alice", "sudo"},
		{"bob", "admin"},
		{"root", "*"},
	} {
		if err := store.AddPermission(ctx, step.user, step.perm); err != nil {
			t.Fatalf("seed %s: %v", step.user, err)
		}
	}

	reg := registry.New()
	RegisterBuiltins(reg, store)
	return dispatch.New(reg, store), store
}

func TestBuiltinResults(t *testing.T) {
	d, _ := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		invoker, line, want string
	}{
		{"alice", "whoami", "you are alice"},
		{"alice", "echo  a   b", "a b"},
		{"alice", `echo "a   b"`, "a   b"},
		{"alice", "echo", ""},
		{"alice", "say hi", "user 'alice' lacks 'say' permission"},
		{"root", "say hello there", "root says: hello there"},
		{"bob", "list_users", "alice, bob, root"},
		{"alice", "list_users", "user 'alice' lacks 'admin' permission"},
		{"bob", "list_perms alice", "sudo"},
		{"bob", "list_perms nobody", ""},
		{"bob", "create_user carol", "user 'carol' created"},
		{"bob", "add_perm carol say", "added 'say' to carol"},
		{"carol", "say hey", "carol says: hey"},
		{"bob", "remove_perm carol say", "removed 'say' from carol"},
		{"carol", "say hey", "user 'carol' lacks 'say' permission"},
		{"root", "grant dave say", "root granted 'say' to dave"},
		{"root", "revoke dave say", "root revoked 'say' from dave"},
		{"bob", "grant dave say", "user 'bob' lacks 'grant' permission"},
		{"root", `grant "" say`, "error: username must not be empty"},
		{"bob", `create_user ""`, "error: username must not be empty"},
		{"alice", "list_commands", "grant, revoke, whoami, say, echo, list_users, list_perms, create_user, change_password, add_perm, remove_perm, list_commands"},
	}
	for _, tc := range cases {
		if got := d.Run(ctx, tc.invoker, tc.line); got != tc.want {
			t.Errorf("%s: %q => %q, want %q", tc.invoker, tc.line, got, tc.want)
		}
	}
}

func TestBuiltinArity(t *testing.T) {
	d, _ := newEnv(t)
	ctx := context.Background()
	cases := map[string]string{
		"whoami extra":       "error: usage: whoami",
		"grant alice":        "error: usage: grant <who> <perm>",
		"list_perms":         "error: usage: list_perms <who>",
		"change_password me": "error: usage: change_password <who> <new_password>",
	}
	for line, want := range cases {
		if got := d.Run(ctx, "root", line); got != want {
			t.Errorf("%q => %q, want %q", line, got, want)
		}
	}
}

func TestSudoScenario(t *testing.T) {
	d, _ := newEnv(t)
	ctx := context.Background()

	if got := d.Run(ctx, "alice", "sudo -u bob list_users"); !strings.Contains(got, "alice") {
		t.Fatalf("sudo list_users as bob: %q", got)
	}
	if got := d.Run(ctx, "bob", "sudo -u alice whoami"); got != "invoker 'bob' lacks 'sudo' permission" {
		t.Fatalf("bob sudo: %q", got)
	}
	if got := d.Run(ctx, "alice", "sudo -u bob add_perm alice say"); got != "added 'say' to alice" {
		t.Fatalf("sudo add_perm: %q", got)
	}
	if got := d.Run(ctx, "alice", "say done"); got != "alice says: done" {
		t.Fatalf("say after grant: %q", got)
	}
}

func TestChangePassword(t *testing.T) {
	d, store := newEnv(t)
	ctx := context.Background()

	if got := d.Run(ctx, "bob", "change_password bob s3cret"); got != "password changed for bob" {
		t.Fatalf("own password: %q", got)
	}
	if !store.CheckPassword("bob", "s3cret") {
		t.Fatalf("password was not stored")
	}

	// admin alone cannot change somebody else's password
	if got := d.Run(ctx, "bob", "change_password alice x"); got != "no permission to change others' password" {
		t.Fatalf("others password without permission: %q", got)
	}
	if store.CheckPassword("alice", "x") {
		t.Fatalf("alice's password must not change")
	}

	if got := d.Run(ctx, "root", "change_password alice x"); got != "password changed for alice" {
		t.Fatalf("wildcard user: %q", got)
	}
	if !store.CheckPassword("alice", "x") {
		t.Fatalf("alice's password should have changed")
	}
}

type brokenStore struct{ Store }

func (brokenStore) AddPermission(context.Context, string, string) error {
	return errors.New("read-only filesystem")
}

func (brokenStore) HasPermission(string, string) bool { return true }

func TestPersistenceFailureIsHandlerFault(t *testing.T) {
	_, store := newEnv(t)
	reg := registry.New()
	RegisterBuiltins(reg, brokenStore{store})
	d := dispatch.New(reg, brokenStore{store})

	if got := d.Run(context.Background(), "bob", "add_perm bob say"); got != "error: read-only filesystem" {
		t.Fatalf("got %q", got)
	}
	if slices.Contains(store.ListPermissions("bob"), "say") {
		t.Fatalf("permission should not have been added")
	}
}
