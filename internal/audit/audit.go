// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package audit provides the append-only sinks for dispatch events. Nothing
// in warden reads the trail back.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/toeirei/warden/internal/model"
)

// DefaultPath is the audit file used when none is configured.
const DefaultPath = "sudo_audit.log"

// TimeFormat is the timestamp layout of every audit line.
const TimeFormat = "2006-01-02 15:04:05"

// Writer accepts audit events. *db.SQLBackend satisfies it as well.
type Writer interface {
	LogEvent(ctx context.Context, e model.AuditEvent) error
}

// LogWriter renders each event as one timestamped line with a severity.
type LogWriter struct {
	logger *clog.Logger
}

// NewLogWriter writes audit lines to w.
func NewLogWriter(w io.Writer) *LogWriter {
	l := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           clog.InfoLevel,
		Formatter:       clog.TextFormatter,
	})
	return &LogWriter{logger: l}
}

// OpenFile appends audit lines to path, creating it (and its directory) when
// needed. The returned closer closes the file.
func OpenFile(path string) (*LogWriter, io.Closer, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create audit directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return NewLogWriter(f), f, nil
}

// LogEvent writes one line. Failures are logged at error level, denials and
// usage mistakes at warn, everything else at info.
func (w *LogWriter) LogEvent(_ context.Context, e model.AuditEvent) error {
	msg := e.String()
	switch e.Outcome {
	case model.OutcomeError:
		w.logger.Error(msg)
	case model.OutcomeDenied, model.OutcomeUnknown, model.OutcomeUsage:
		w.logger.Warn(msg)
	default:
		w.logger.Info(msg)
	}
	return nil
}

type multi []Writer

// Multi fans an event out to every writer and joins their errors.
func Multi(writers ...Writer) Writer {
	var out multi
	for _, w := range writers {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

func (m multi) LogEvent(ctx context.Context, e model.AuditEvent) error {
	var errs []error
	for _, w := range m {
		if err := w.LogEvent(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Writer = discard{}

type discard struct{}

func (discard) LogEvent(context.Context, model.AuditEvent) error { return nil }

// Recorder keeps events in memory. Tests and the console's status line use it.
type Recorder struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

// LogEvent appends e, stamping the time if unset.
func (r *Recorder) LogEvent(_ context.Context, e model.AuditEvent) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event.
func (r *Recorder) Last() (model.AuditEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return model.AuditEvent{}, false
	}
	return r.events[len(r.events)-1], true
}
