// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/toeirei/warden/internal/audit"
	"github.com/toeirei/warden/internal/commands"
	"github.com/toeirei/warden/internal/config"
	"github.com/toeirei/warden/internal/credentials"
	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/dispatch"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/registry"
)

// ErrAlreadyBootstrapped is returned by Bootstrap when the store has users.
var ErrAlreadyBootstrapped = errors.New("store already has users")

// Operator audit actions.
const (
	ActionBootstrap = "BOOTSTRAP"
	ActionPassword  = "PASSWD"
	ActionRestore   = "RESTORE"
	ActionLogin     = "LOGIN"
)

// Options wires a Service from already-open parts.
type Options struct {
	Backend db.Backend
	// Audit defaults to discarding events.
	Audit audit.Writer
	// DefaultTTL of zero keeps the dispatcher default.
	DefaultTTL time.Duration
	Clock      dispatch.Clock
	// Closers are closed after the backend by Close.
	Closers []io.Closer
}

// Service is the collaborator-facing surface of warden.
type Service struct {
	store    *credentials.Store
	registry *registry.Registry
	disp     *dispatch.Dispatcher
	audit    audit.Writer
	backend  db.Backend
	closers  []io.Closer

	kind string
	dsn  string
}

// New builds a Service over opts.Backend with the built-in commands installed.
func New(ctx context.Context, opts Options) *Service {
	w := opts.Audit
	if w == nil {
		w = audit.Discard
	}
	store := credentials.Open(ctx, opts.Backend)
	reg := registry.New()
	commands.RegisterBuiltins(reg, store)

	dopts := []dispatch.Option{dispatch.WithAuditWriter(w), dispatch.WithDefaultTTL(opts.DefaultTTL)}
	if opts.Clock != nil {
		dopts = append(dopts, dispatch.WithClock(opts.Clock))
	}
	return &Service{
		store:    store,
		registry: reg,
		disp:     dispatch.New(reg, store, dopts...),
		audit:    w,
		backend:  opts.Backend,
		closers:  opts.Closers,
		kind:     db.KindFile,
	}
}

// Open builds a Service from configuration: it opens the configured store
// and the audit file, and mirrors audit events into the database when asked.
func Open(ctx context.Context, cfg config.Config) (*Service, error) {
	target := cfg.Store.Path
	if cfg.Store.Type != "" && cfg.Store.Type != db.KindFile {
		target = cfg.Store.Dsn
	}
	backend, err := db.Open(cfg.Store.Type, target)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Type, err)
	}

	fileAudit, closer, err := audit.OpenFile(cfg.Audit.Path)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	var w audit.Writer = fileAudit
	if cfg.Audit.Database {
		if sqlb, ok := backend.(*db.SQLBackend); ok {
			w = audit.Multi(fileAudit, sqlb)
		} else {
			logging.Warnf("audit.database is set but the %s store has no audit table; using the audit file only", db.KindFile)
		}
	}

	s := New(ctx, Options{
		Backend:    backend,
		Audit:      w,
		DefaultTTL: time.Duration(cfg.Session.DefaultTTL) * time.Second,
		Closers:    []io.Closer{closer},
	})
	if cfg.Store.Type != "" {
		s.kind = cfg.Store.Type
	}
	s.dsn = cfg.Store.Dsn
	logging.Debugf("core: opened %s store with %d users", s.kind, len(s.store.ListUsers()))
	return s, nil
}

// Close releases the store and the audit sinks.
func (s *Service) Close() error {
	errs := []error{s.store.Close()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Login reports whether password authenticates username.
func (s *Service) Login(ctx context.Context, username, password string) bool {
	ok := s.store.CheckPassword(username, password)
	outcome := model.OutcomeOK
	if !ok {
		outcome = model.OutcomeDenied
	}
	s.record(ctx, model.AuditEvent{Action: ActionLogin, Invoker: username, Outcome: outcome})
	return ok
}

// Execute runs line for invoker and returns its human-readable result.
func (s *Service) Execute(ctx context.Context, invoker, line string) string {
	return s.disp.Run(ctx, invoker, line)
}

// ListCommands returns command names in registration order.
func (s *Service) ListCommands() []string { return s.registry.Names() }

// ListUsers returns all usernames, sorted.
func (s *Service) ListUsers() []string { return s.store.ListUsers() }

// ListPermissions returns username's permissions.
func (s *Service) ListPermissions(username string) []string {
	return s.store.ListPermissions(username)
}

// Session returns invoker's impersonation session, if one is stored.
func (s *Service) Session(invoker string) (model.Session, bool) {
	return s.disp.Session(invoker)
}

// EndSession drops invoker's impersonation session.
func (s *Service) EndSession(ctx context.Context, invoker string) bool {
	return s.disp.EndSession(ctx, invoker)
}

// Bootstrap creates the first administrator with the wildcard permission.
// It refuses to run once any user exists.
func (s *Service) Bootstrap(ctx context.Context, admin, password string) error {
	if len(s.store.ListUsers()) > 0 {
		return ErrAlreadyBootstrapped
	}
	if err := s.store.AddPermission(ctx, admin, model.Wildcard); err != nil {
		return fmt.Errorf("bootstrap %s: %w", admin, err)
	}
	if err := s.store.SetPassword(ctx, admin, password); err != nil {
		return fmt.Errorf("bootstrap %s: %w", admin, err)
	}
	s.record(ctx, model.AuditEvent{Action: ActionBootstrap, Invoker: admin, Outcome: model.OutcomeOK})
	return nil
}

// SetPassword resets username's password from the operator's side, without
// going through the command language.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	if err := s.store.SetPassword(ctx, username, password); err != nil {
		return err
	}
	s.record(ctx, model.AuditEvent{Action: ActionPassword, Invoker: username, Outcome: model.OutcomeOK})
	return nil
}

// StoreKind returns the configured store type.
func (s *Service) StoreKind() string { return s.kind }

// Maintain runs engine maintenance on a SQL store.
func (s *Service) Maintain(ctx context.Context) error {
	return db.RunMaintenance(ctx, s.kind, s.dsn)
}

// AuditRows counts rows in the audit_log table of a SQL store.
func (s *Service) AuditRows(ctx context.Context) (int, error) {
	sqlb, ok := s.backend.(*db.SQLBackend)
	if !ok {
		return 0, fmt.Errorf("%w: %s store has no audit table", db.ErrUnsupported, s.kind)
	}
	return sqlb.CountAuditRows(ctx)
}

func (s *Service) record(ctx context.Context, e model.AuditEvent) {
	e.Time = time.Now()
	if err := s.audit.LogEvent(ctx, e); err != nil {
		logging.Warnf("audit: could not record %s: %v", e.Action, err)
	}
}
