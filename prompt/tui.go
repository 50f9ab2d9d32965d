package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "charm.land/bubbletea/v2"
)

// TUI confirms with a single key press in an interactive terminal.
//
// Create instances with [NewTUI].
type TUI struct {
	in  io.Reader
	out io.Writer
}

// NewTUI creates a [TUI] prompter.
func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{in: in, out: out}
}

// Confirm shows msg until enter (confirm) or q, esc, ctrl+c (abort).
func (t *TUI) Confirm(ctx context.Context, msg string) (bool, error) {
	m := newConfirmModel(msg)

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)

	_, err := p.Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return false, fmt.Errorf("run prompt: %w", err)
	}

	return m.confirmed, nil
}

// confirmModel is the bubbletea model behind [TUI].
type confirmModel struct {
	msg       string
	confirmed bool
	done      bool
}

func newConfirmModel(msg string) *confirmModel {
	return &confirmModel{msg: msg}
}

// Init starts with no command; the model only reacts to keys.
func (m *confirmModel) Init() tea.Cmd {
	return nil
}

// Update handles confirm and abort keys.
func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "enter":
		m.confirmed = true
		m.done = true

		return m, tea.Quit

	case "q", "esc", "ctrl+c":
		m.done = true

		return m, tea.Quit
	}

	return m, nil
}

// View renders the question, or nothing once answered.
func (m *confirmModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	return tea.NewView(fmt.Sprintf("\n%s (enter to start, q to abort)\n", m.msg))
}
