// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package credentials owns user records: permission sets and salted password
// hashes. It applies no policy beyond the wildcard permission; every mutation
// is written through the backend before the call returns.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/security"
)

// ErrEmptyUsername is returned when a mutation names no user.
var ErrEmptyUsername = errors.New("username must not be empty")

// Store is the credential store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	users   map[string]model.User
	backend db.Backend
}

// Open loads the user set from backend. A missing or unreadable store is not
// an error: the store starts empty and the first mutation creates it.
func Open(ctx context.Context, backend db.Backend) *Store {
	s := &Store{users: map[string]model.User{}, backend: backend}
	users, err := backend.Load(ctx)
	if err != nil {
		logging.Warnf("credentials: starting with an empty user set: %v", err)
		return s
	}
	for name, u := range users {
		u.Username = name
		s.users[name] = u.Clone()
	}
	logging.Debugf("credentials: loaded %d users", len(s.users))
	return s
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// mutate applies fn to the named user (creating it when absent) and persists
// the result. If persisting fails the in-memory state is restored and the
// error returned. fn reports whether it changed anything; unchanged users
// that already existed are not rewritten.
func (s *Store) mutate(ctx context.Context, name string, fn func(u *model.User) bool) error {
	if name == "" {
		return ErrEmptyUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.users[name]
	u := prev.Clone()
	u.Username = name
	changed := fn(&u)
	if existed && !changed {
		return nil
	}
	s.users[name] = u
	if err := s.backend.Save(ctx, s.users); err != nil {
		if existed {
			s.users[name] = prev
		} else {
			delete(s.users, name)
		}
		return fmt.Errorf("persist user %s: %w", name, err)
	}
	return nil
}

// EnsureUser creates name with no permissions and no password if absent.
func (s *Store) EnsureUser(ctx context.Context, name string) error {
	return s.mutate(ctx, name, func(*model.User) bool { return false })
}

// SetPassword stores a freshly salted hash of plain, replacing any prior one.
func (s *Store) SetPassword(ctx context.Context, name, plain string) error {
	record, err := security.HashPassword(plain, "")
	if err != nil {
		return err
	}
	return s.mutate(ctx, name, func(u *model.User) bool {
		u.Password = record
		return true
	})
}

// CheckPassword reports whether plain matches the stored record. Unknown
// users and users without a password never authenticate.
func (s *Store) CheckPassword(name, plain string) bool {
	s.mu.RLock()
	u, ok := s.users[name]
	s.mu.RUnlock()
	if !ok || !u.HasPassword() {
		return false
	}
	return security.VerifyPassword(u.Password, plain)
}

// AddPermission grants perm to name.
func (s *Store) AddPermission(ctx context.Context, name, perm string) error {
	return s.mutate(ctx, name, func(u *model.User) bool {
		if slices.Contains(u.Permissions, perm) {
			return false
		}
		u.Permissions = append(u.Permissions, perm)
		return true
	})
}

// RemovePermission revokes perm from name. Removing "*" does not remove
// individually granted permissions.
func (s *Store) RemovePermission(ctx context.Context, name, perm string) error {
	return s.mutate(ctx, name, func(u *model.User) bool {
		i := slices.Index(u.Permissions, perm)
		if i < 0 {
			return false
		}
		u.Permissions = slices.Delete(u.Permissions, i, i+1)
		return true
	})
}

// HasPermission reports whether name holds perm or the wildcard.
func (s *Store) HasPermission(name, perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[name]
	return ok && u.Has(perm)
}

// ListUsers returns all usernames in ascending order.
func (s *Store) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListPermissions returns name's permissions in grant order, or an empty
// slice for an unknown user.
func (s *Store) ListPermissions(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[name]
	if !ok {
		return []string{}
	}
	return u.Clone().Permissions
}

// Snapshot returns a deep copy of every user record.
func (s *Store) Snapshot() map[string]model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.User, len(s.users))
	for name, u := range s.users {
		out[name] = u.Clone()
	}
	return out
}

// Replace swaps the whole user set and persists it. On failure the previous
// set stays in effect.
func (s *Store) Replace(ctx context.Context, users map[string]model.User) error {
	next := make(map[string]model.User, len(users))
	for name, u := range users {
		if name == "" {
			return ErrEmptyUsername
		}
		u.Username = name
		next[name] = u.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("persist user set: %w", err)
	}
	s.users = next
	return nil
}
