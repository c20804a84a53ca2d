// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data types shared by the credential store,
// the dispatcher and the presentation layers.
package model

import (
	"fmt"
	"slices"
	"time"
)

// Wildcard is the permission token that grants every permission.
const Wildcard = "*"

// User is a named identity with a permission set and an optional password.
type User struct {
	Username    string
	Permissions []string
	// Password is the encoded "<hexSalt>$<hexHash>" record, or empty when the
	// user has never had a password set.
	Password string
}

// HasPassword reports whether the user can authenticate at all.
func (u User) HasPassword() bool { return u.Password != "" }

// Has reports whether the permission set contains perm or the wildcard.
func (u User) Has(perm string) bool {
	return slices.Contains(u.Permissions, Wildcard) || slices.Contains(u.Permissions, perm)
}

// Clone returns a deep copy so callers can't mutate store-owned slices.
func (u User) Clone() User {
	u.Permissions = slices.Clone(u.Permissions)
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	return u
}

// Session is an impersonation session held by an invoker.
type Session struct {
	Invoker   string
	Target    string
	ExpiresAt time.Time
}

// Active reports whether the session is still usable at now.
func (s Session) Active(now time.Time) bool { return now.Before(s.ExpiresAt) }

// String returns "invoker->target".
func (s Session) String() string {
	return fmt.Sprintf("%s->%s", s.Invoker, s.Target)
}

// Outcome classifies how a dispatch attempt ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeDenied  Outcome = "denied"
	OutcomeUnknown Outcome = "unknown"
	OutcomeError   Outcome = "error"
	OutcomeUsage   Outcome = "usage"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Time       time.Time
	Action     string
	Invoker    string
	ActingUser string
	Command    string
	Outcome    Outcome
	Detail     string
}

// Failed reports whether the event should be logged at error severity.
func (e AuditEvent) Failed() bool { return e.Outcome == OutcomeError }

// String renders the event as the single human-readable audit message.
func (e AuditEvent) String() string {
	msg := fmt.Sprintf("%s: invoker=%s", e.Action, e.Invoker)
	if e.ActingUser != "" {
		msg += " as=" + e.ActingUser
	}
	if e.Command != "" {
		msg += fmt.Sprintf(" cmd='%s'", e.Command)
	}
	if e.Outcome != "" {
		msg += " -> " + string(e.Outcome)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}
