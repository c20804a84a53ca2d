// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui provides warden's interactive console: a prompt that runs
// command lines as a logged-in user and shows their results.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/logging"
	"github.com/toeirei/warden/internal/model"
)

// Backend is what the console needs from the service.
type Backend interface {
	Execute(ctx context.Context, invoker, line string) string
	Session(invoker string) (model.Session, bool)
	EndSession(ctx context.Context, invoker string) bool
}

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type resultMsg struct {
	line   string
	result string
}

type transcriptEntry struct {
	user   string
	line   string
	result string
}

type consoleModel struct {
	ctx     context.Context
	backend Backend
	user    string
	now     func() time.Time

	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int

	transcript []transcriptEntry
	history    []string
	histPos    int
	lastResult string
	status     string
	statusErr  bool
}

func newConsoleModel(ctx context.Context, b Backend, user string) *consoleModel {
	ti := textinput.New()
	ti.Placeholder = i18n.T("console.placeholder")
	ti.Prompt = promptStyle.Render(i18n.T("console.prompt", user))
	ti.Focus()
	return &consoleModel{
		ctx:     ctx,
		backend: b,
		user:    user,
		now:     time.Now,
		input:   ti,
	}
}

func (m *consoleModel) Init() tea.Cmd { return textinput.Blink }

// run executes line off the update loop.
func (m *consoleModel) run(line string) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{line: line, result: m.backend.Execute(m.ctx, m.user, line)}
	}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		// title, input, status and help lines plus margins
		h := msg.Height - 8
		if h < 3 {
			h = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = h
		}
		m.input.Width = msg.Width - 8
		m.refreshViewport()
		return m, nil

	case resultMsg:
		m.transcript = append(m.transcript, transcriptEntry{user: m.user, line: msg.line, result: msg.result})
		m.lastResult = msg.result
		m.setStatus("", false)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, line)
			m.histPos = len(m.history)
			return m, m.run(line)

		case tea.KeyCtrlY:
			m.copyLastResult()
			return m, nil

		case tea.KeyCtrlL:
			if m.backend.EndSession(m.ctx, m.user) {
				m.setStatus(i18n.T("console.session_ended"), false)
			} else {
				m.setStatus(i18n.T("console.no_session"), false)
			}
			return m, nil

		case tea.KeyUp:
			if m.histPos > 0 {
				m.histPos--
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			}
			return m, nil

		case tea.KeyDown:
			if m.histPos < len(m.history)-1 {
				m.histPos++
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			} else {
				m.histPos = len(m.history)
				m.input.Reset()
			}
			return m, nil

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) copyLastResult() {
	if m.lastResult == "" {
		m.setStatus(i18n.T("console.nothing_to_copy"), false)
		return
	}
	if err := copyToClipboard(m.lastResult); err != nil {
		logging.Debugf("console: clipboard write failed: %v", err)
		m.setStatus(i18n.T("console.copy_failed", err), true)
		return
	}
	m.setStatus(i18n.T("console.copied"), false)
}

func (m *consoleModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *consoleModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *consoleModel) renderTranscript() string {
	var b strings.Builder
	for _, e := range m.transcript {
		b.WriteString(helpStyle.Render(i18n.T("console.prompt", e.user)))
		b.WriteString(e.line)
		b.WriteString("\n")
		b.WriteString(styleResult(e.result))
		b.WriteString("\n")
	}
	return b.String()
}

// styleResult colours denials and faults. The text itself is unchanged.
func styleResult(result string) string {
	switch {
	case strings.HasPrefix(result, "error:"),
		strings.HasPrefix(result, "usage:"),
		strings.HasPrefix(result, "unknown command"),
		strings.Contains(result, " lacks '"):
		return errorStyle.Render(result)
	case strings.HasPrefix(result, "impersonating "):
		return successStyle.Render(result)
	default:
		return result
	}
}

// sessionBadge describes the user's impersonation session, if any.
func (m *consoleModel) sessionBadge() string {
	s, ok := m.backend.Session(m.user)
	if !ok || !s.Active(m.now()) {
		return ""
	}
	left := int(s.ExpiresAt.Sub(m.now()).Round(time.Second) / time.Second)
	return specialStyle.Render(i18n.T("console.session", s.Target, left))
}

func (m *consoleModel) View() string {
	var b strings.Builder
	b.WriteString(AlignFooter(titleStyle.Render(i18n.T("console.title")), m.sessionBadge(), m.width-4))
	b.WriteString("\n\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderTranscript())
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	switch {
	case m.status == "":
	case m.statusErr:
		b.WriteString(errorStyle.Render(m.status))
	default:
		b.WriteString(statusMessageStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(i18n.T("console.help")))
	return docStyle.Render(b.String())
}

// Run starts the full-screen console for user.
func Run(ctx context.Context, b Backend, user string) error {
	if _, err := tea.NewProgram(newConsoleModel(ctx, b, user), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
