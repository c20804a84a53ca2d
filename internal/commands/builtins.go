// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package commands provides the built-in administrative command set.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/toeirei/warden/internal/registry"
)

// Permissions referenced by the built-ins.
const (
	PermGrant                = "grant"
	PermSay                  = "say"
	PermAdmin                = "admin"
	PermChangeOthersPassword = "change_others_password"
)

// Store is the slice of the credential store the built-ins need.
// *credentials.Store satisfies it.
type Store interface {
	EnsureUser(ctx context.Context, name string) error
	SetPassword(ctx context.Context, name, plain string) error
	AddPermission(ctx context.Context, name, perm string) error
	RemovePermission(ctx context.Context, name, perm string) error
	HasPermission(name, perm string) bool
	ListUsers() []string
	ListPermissions(name string) []string
}

type builtin struct {
	name  string
	usage string // argument synopsis; empty means no arguments
	arity int    // exact argument count, or -1 for any
	perm  string
	run   func(ctx context.Context, inv registry.Invocation) (string, error)
}

// RegisterBuiltins installs the built-in commands into reg in a fixed order,
// which is also the order list_commands reports.
func RegisterBuiltins(reg *registry.Registry, store Store) {
	for _, b := range builtins(reg, store) {
		reg.RegisterFunc(b.name, checked(b), b.perm)
	}
}

// checked enforces the argument count before running b.
func checked(b builtin) registry.HandlerFunc {
	return func(ctx context.Context, inv registry.Invocation) (string, error) {
		if b.arity >= 0 && len(inv.Args) != b.arity {
			return "", fmt.Errorf("usage: %s", strings.TrimSpace(b.name+" "+b.usage))
		}
		return b.run(ctx, inv)
	}
}

func builtins(reg *registry.Registry, store Store) []builtin {
	return []builtin{
		{name: "grant", usage: "<who> <perm>", arity: 2, perm: PermGrant,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who, perm := inv.Args[0], inv.Args[1]
				if err := store.AddPermission(ctx, who, perm); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s granted '%s' to %s", inv.User, perm, who), nil
			}},
		{name: "revoke", usage: "<who> <perm>", arity: 2, perm: PermGrant,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who, perm := inv.Args[0], inv.Args[1]
				if err := store.RemovePermission(ctx, who, perm); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s revoked '%s' from %s", inv.User, perm, who), nil
			}},
		{name: "whoami", arity: 0,
			run: func(_ context.Context, inv registry.Invocation) (string, error) {
				return "you are " + inv.User, nil
			}},
		{name: "say", usage: "<words...>", arity: -1, perm: PermSay,
			run: func(_ context.Context, inv registry.Invocation) (string, error) {
				return fmt.Sprintf("%s says: %s", inv.User, strings.Join(inv.Args, " ")), nil
			}},
		{name: "echo", usage: "<words...>", arity: -1,
			run: func(_ context.Context, inv registry.Invocation) (string, error) {
				return strings.Join(inv.Args, " "), nil
			}},
		{name: "list_users", arity: 0, perm: PermAdmin,
			run: func(context.Context, registry.Invocation) (string, error) {
				return strings.Join(store.ListUsers(), ", "), nil
			}},
		{name: "list_perms", usage: "<who>", arity: 1, perm: PermAdmin,
			run: func(_ context.Context, inv registry.Invocation) (string, error) {
				return strings.Join(store.ListPermissions(inv.Args[0]), ", "), nil
			}},
		{name: "create_user", usage: "<who>", arity: 1, perm: PermAdmin,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who := inv.Args[0]
				if err := store.EnsureUser(ctx, who); err != nil {
					return "", err
				}
				return fmt.Sprintf("user '%s' created", who), nil
			}},
		{name: "change_password", usage: "<who> <new_password>", arity: 2, perm: PermAdmin,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who, plain := inv.Args[0], inv.Args[1]
				if who != inv.User && !store.HasPermission(inv.User, PermChangeOthersPassword) {
					return "no permission to change others' password", nil
				}
				if err := store.SetPassword(ctx, who, plain); err != nil {
					return "", err
				}
				return "password changed for " + who, nil
			}},
		{name: "add_perm", usage: "<who> <perm>", arity: 2, perm: PermAdmin,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who, perm := inv.Args[0], inv.Args[1]
				if err := store.AddPermission(ctx, who, perm); err != nil {
					return "", err
				}
				return fmt.Sprintf("added '%s' to %s", perm, who), nil
			}},
		{name: "remove_perm", usage: "<who> <perm>", arity: 2, perm: PermAdmin,
			run: func(ctx context.Context, inv registry.Invocation) (string, error) {
				who, perm := inv.Args[0], inv.Args[1]
				if err := store.RemovePermission(ctx, who, perm); err != nil {
					return "", err
				}
				return fmt.Sprintf("removed '%s' from %s", perm, who), nil
			}},
		{name: "list_commands", arity: 0,
			run: func(context.Context, registry.Invocation) (string, error) {
				return strings.Join(reg.Names(), ", "), nil
			}},
	}
}
