// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package dispatch runs command lines on behalf of an invoker. It resolves
// one-shot elevation (sudo -u) and impersonation sessions (sudo -i -u),
// checks the acting user's permission, invokes the handler and writes an
// audit event for every attempt.
//
// Run never returns a Go error. Denials, unknown commands, usage mistakes
// and handler faults all come back as plain strings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/kballard/go-shellquote"
	"github.com/toeirei/warden/internal/audit"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/registry"
)

// ElevationKeyword starts the one-shot and session elevation forms.
const ElevationKeyword = "sudo"

// SudoPermission is required to elevate or open a session.
const SudoPermission = "sudo"

// DefaultSessionTTL applies when sudo -i gives no usable TTL.
const DefaultSessionTTL = 300 * time.Second

// Fixed result strings.
const (
	ResultNoCommand = "no command"
	UsageOneShot    = "usage: sudo -u <target> <command...>"
	UsageSudo       = "usage: sudo -u <target> <command...>  OR  sudo -i -u <target> [seconds]"
)

// Audit actions.
const (
	ActionCommand      = "CMD"
	ActionSudo         = "SUDO"
	ActionSessionStart = "SUDO_SESSION_START"
	ActionSessionExec  = "SUDO_SESSION_EXEC"
	ActionSessionEnd   = "SUDO_SESSION_END"
	ActionExecute      = "EXECUTE"
	ActionParse        = "PARSE"
)

// Authorizer answers permission questions. *credentials.Store satisfies it.
type Authorizer interface {
	HasPermission(user, perm string) bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the time source used for session expiry.
func WithClock(c Clock) Option { return func(d *Dispatcher) { d.clock = c } }

// WithAuditWriter sets where audit events go. The default discards them.
func WithAuditWriter(w audit.Writer) Option { return func(d *Dispatcher) { d.audit = w } }

// WithLogger sets the logger used for operational warnings.
func WithLogger(l *clog.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// WithDefaultTTL overrides the session TTL used when sudo -i omits one.
// Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.defaultTTL = ttl
		}
	}
}

// Dispatcher owns the impersonation sessions. It is safe for concurrent use;
// calls for the same invoker are serialized end to end.
type Dispatcher struct {
	reg        *registry.Registry
	auth       Authorizer
	audit      audit.Writer
	log        *clog.Logger
	clock      Clock
	defaultTTL time.Duration

	sessMu   sync.Mutex
	sessions map[string]model.Session

	locksMu sync.Mutex
	locks   map[string]*invokerLock
}

// New returns a Dispatcher reading commands from reg and permissions from auth.
func New(reg *registry.Registry, auth Authorizer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:        reg,
		auth:       auth,
		audit:      audit.Discard,
		log:        logging.L,
		clock:      systemClock{},
		defaultTTL: DefaultSessionTTL,
		sessions:   map[string]model.Session{},
		locks:      map[string]*invokerLock{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run executes line for invoker and returns the human-readable result.
func (d *Dispatcher) Run(ctx context.Context, invoker, line string) string {
	tokens, err := shellquote.Split(line)
	if err != nil {
		d.record(ctx, model.AuditEvent{Action: ActionParse, Invoker: invoker, Command: line, Outcome: model.OutcomeUsage, Detail: err.Error()})
		return "error: " + err.Error()
	}
	if len(tokens) == 0 {
		return ResultNoCommand
	}

	unlock := d.lockInvoker(invoker)
	defer unlock()

	// sudo is evaluated before, and regardless of, any session.
	if tokens[0] == ElevationKeyword {
		return d.elevate(ctx, invoker, tokens)
	}

	if s, ok := d.activeSession(ctx, invoker); ok {
		d.record(ctx, model.AuditEvent{Action: ActionSessionExec, Invoker: invoker, ActingUser: s.Target, Command: line})
		return d.executeAs(ctx, invoker, s.Target, tokens, line)
	}

	d.record(ctx, model.AuditEvent{Action: ActionCommand, Invoker: invoker, Command: line})
	return d.executeAs(ctx, invoker, invoker, tokens, line)
}

func (d *Dispatcher) elevate(ctx context.Context, invoker string, tokens []string) string {
	line := strings.Join(tokens, " ")
	switch {
	case len(tokens) >= 3 && tokens[1] == "-u":
		target := tokens[2]
		if len(tokens) < 4 {
			d.record(ctx, model.AuditEvent{Action: ActionSudo, Invoker: invoker, ActingUser: target, Command: line, Outcome: model.OutcomeUsage})
			return UsageOneShot
		}
		if denial, ok := d.checkSudo(ctx, invoker, target, line); !ok {
			return denial
		}
		command := strings.Join(tokens[3:], " ")
		d.record(ctx, model.AuditEvent{Action: ActionSudo, Invoker: invoker, ActingUser: target, Command: command})
		return d.executeAs(ctx, invoker, target, tokens[3:], command)

	case len(tokens) >= 4 && tokens[1] == "-i" && tokens[2] == "-u":
		target := tokens[3]
		ttl := int64(d.defaultTTL / time.Second)
		if len(tokens) >= 5 {
			// an unparseable TTL silently keeps the default
			if n, ok := parseTTL(tokens[4]); ok {
				ttl = n
			}
		}
		if denial, ok := d.checkSudo(ctx, invoker, target, line); !ok {
			return denial
		}
		d.startSession(invoker, target, time.Duration(ttl)*time.Second)
		d.record(ctx, model.AuditEvent{Action: ActionSessionStart, Invoker: invoker, ActingUser: target, Outcome: model.OutcomeOK, Detail: fmt.Sprintf("ttl=%ds", ttl)})
		return fmt.Sprintf("impersonating %s for %d seconds", target, ttl)

	default:
		d.record(ctx, model.AuditEvent{Action: ActionSudo, Invoker: invoker, Command: line, Outcome: model.OutcomeUsage})
		return UsageSudo
	}
}

// maxTTLSeconds is the longest TTL a time.Duration can hold.
const maxTTLSeconds = int64(math.MaxInt64 / time.Second)

// parseTTL reads a TTL in seconds. Values beyond what a time.Duration can
// represent saturate at maxTTLSeconds (or its negative).
func parseTTL(tok string) (int64, bool) {
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, false
		}
	}
	switch {
	case n > maxTTLSeconds:
		n = maxTTLSeconds
	case n < -maxTTLSeconds:
		n = -maxTTLSeconds
	}
	return n, true
}

func (d *Dispatcher) checkSudo(ctx context.Context, invoker, target, line string) (string, bool) {
	if d.auth.HasPermission(invoker, SudoPermission) {
		return "", true
	}
	d.record(ctx, model.AuditEvent{Action: ActionSudo, Invoker: invoker, ActingUser: target, Command: line, Outcome: model.OutcomeDenied, Detail: "missing " + SudoPermission})
	return fmt.Sprintf("invoker '%s' lacks '%s' permission", invoker, SudoPermission), false
}

// executeAs runs tokens with acting's identity. Authorization looks only at
// acting, never at invoker.
func (d *Dispatcher) executeAs(ctx context.Context, invoker, acting string, tokens []string, line string) string {
	ev := model.AuditEvent{Action: ActionExecute, Invoker: invoker, ActingUser: acting, Command: line}
	name, args := tokens[0], tokens[1:]

	entry, ok := d.reg.Lookup(name)
	if !ok {
		ev.Outcome = model.OutcomeUnknown
		d.record(ctx, ev)
		return fmt.Sprintf("unknown command '%s'", name)
	}
	if entry.Permission != "" && !d.auth.HasPermission(acting, entry.Permission) {
		ev.Outcome = model.OutcomeDenied
		ev.Detail = "missing " + entry.Permission
		d.record(ctx, ev)
		return fmt.Sprintf("user '%s' lacks '%s' permission", acting, entry.Permission)
	}

	result, err := invoke(ctx, entry.Handler, registry.Invocation{User: acting, Args: args})
	if err != nil {
		ev.Outcome = model.OutcomeError
		ev.Detail = err.Error()
		d.record(ctx, ev)
		return "error: " + err.Error()
	}
	ev.Outcome = model.OutcomeOK
	d.record(ctx, ev)
	return result
}

// invoke is the single boundary where handler faults, panics included, are
// turned into errors.
func invoke(ctx context.Context, h registry.Handler, inv registry.Invocation) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return h.Run(ctx, inv)
}

func (d *Dispatcher) record(ctx context.Context, e model.AuditEvent) {
	e.Time = d.clock.Now()
	if err := d.audit.LogEvent(ctx, e); err != nil {
		d.log.Warnf("audit: could not record %s: %v", e.Action, err)
	}
}
