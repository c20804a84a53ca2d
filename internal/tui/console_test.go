// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/model"
)

type fakeBackend struct {
	lines   []string
	session *model.Session
	ended   int
}

func (f *fakeBackend) Execute(_ context.Context, invoker, line string) string {
	f.lines = append(f.lines, line)
	return invoker + ": " + line
}

func (f *fakeBackend) Session(string) (model.Session, bool) {
	if f.session == nil {
		return model.Session{}, false
	}
	return *f.session, true
}

func (f *fakeBackend) EndSession(context.Context, string) bool {
	if f.session == nil {
		return false
	}
	f.session = nil
	f.ended++
	return true
}

func typeLine(t *testing.T, m *consoleModel, s string) *consoleModel {
	t.Helper()
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	mi, cmd := mi.(*consoleModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("enter on %q should produce a command", s)
	}
	mi, _ = mi.(*consoleModel).Update(cmd())
	return mi.(*consoleModel)
}

func TestConsole_RunsLinesAndKeepsTranscript(t *testing.T) {
	i18n.Init("en")
	fb := &fakeBackend{}
	m := newConsoleModel(context.Background(), fb, "alice")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m = typeLine(t, m, "whoami")
	m = typeLine(t, m, "echo hi")

	if len(fb.lines) != 2 || fb.lines[1] != "echo hi" {
		t.Fatalf("backend saw %v", fb.lines)
	}
	if m.lastResult != "alice: echo hi" {
		t.Fatalf("lastResult = %q", m.lastResult)
	}
	if !strings.Contains(m.View(), "alice: whoami") {
		t.Fatalf("transcript missing from view:\n%s", m.View())
	}
}

func TestConsole_BlankEnterDoesNothing(t *testing.T) {
	i18n.Init("en")
	fb := &fakeBackend{}
	m := newConsoleModel(context.Background(), fb, "alice")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("blank line should not run anything")
	}
}

func TestConsole_HistoryRecall(t *testing.T) {
	i18n.Init("en")
	m := newConsoleModel(context.Background(), &fakeBackend{}, "alice")
	m = typeLine(t, m, "first")
	m = typeLine(t, m, "second")

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "second" {
		t.Fatalf("up once: %q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "first" {
		t.Fatalf("up twice: %q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != "" {
		t.Fatalf("down past the end should clear input, got %q", m.input.Value())
	}
}

func TestConsole_CopyLastResult(t *testing.T) {
	i18n.Init("en")
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	defer func() { copyToClipboard = orig }()

	m := newConsoleModel(context.Background(), &fakeBackend{}, "alice")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if m.status != i18n.T("console.nothing_to_copy") {
		t.Fatalf("status = %q", m.status)
	}

	m = typeLine(t, m, "whoami")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "alice: whoami" || m.status != i18n.T("console.copied") {
		t.Fatalf("copied %q, status %q", copied, m.status)
	}

	copyToClipboard = func(string) error { return errors.New("no display") }
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if !m.statusErr || !strings.Contains(m.status, "no display") {
		t.Fatalf("expected clipboard error status, got %q", m.status)
	}
}

func TestConsole_EndSessionAndBadge(t *testing.T) {
	i18n.Init("en")
	now := time.Unix(1000, 0)
	fb := &fakeBackend{session: &model.Session{Invoker: "alice", Target: "bob", ExpiresAt: now.Add(90 * time.Second)}}
	m := newConsoleModel(context.Background(), fb, "alice")
	m.now = func() time.Time { return now }

	if badge := m.sessionBadge(); !strings.Contains(badge, "bob") || !strings.Contains(badge, "90s") {
		t.Fatalf("badge = %q", badge)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if fb.ended != 1 || m.status != i18n.T("console.session_ended") {
		t.Fatalf("ctrl+l should end the session, status %q", m.status)
	}
	if m.sessionBadge() != "" {
		t.Fatalf("badge should be empty without a session")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.status != i18n.T("console.no_session") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestConsole_QuitKeys(t *testing.T) {
	m := newConsoleModel(context.Background(), &fakeBackend{}, "alice")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("esc should return tea.Quit")
	}
}

func TestRunLines(t *testing.T) {
	fb := &fakeBackend{}
	var out strings.Builder
	in := strings.NewReader("whoami\n\n   \necho a b\n")
	if err := RunLines(context.Background(), fb, "bob", in, &out); err != nil {
		t.Fatalf("RunLines: %v", err)
	}
	if got := out.String(); got != "bob: whoami\nbob: echo a b\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestAlignFooter(t *testing.T) {
	if got := AlignFooter("a", "b", 5); got != "a   b" {
		t.Fatalf("got %q", got)
	}
	if got := AlignFooter("left", "right", 3); got != "left right" {
		t.Fatalf("narrow width: %q", got)
	}
}
