package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#89b4fa")
	colorMuted  = lipgloss.Color("#6c7086")
	colorText   = lipgloss.Color("#cdd6f4")

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	messageStyle  = lipgloss.NewStyle().Foreground(colorText).MarginTop(1)
	optionStyle   = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1e1e2e")).Background(colorAccent).Padding(0, 1)
	hintStyle     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

// Terminal renders dialogs on the controlling terminal. Only one dialog is
// on screen at a time; concurrent callers queue.
type Terminal struct {
	mu     sync.Mutex
	input  io.Reader
	output io.Writer
}

// NewTerminal creates a Prompter on stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{}
}

// NewTerminalWith creates a Prompter on the given streams.
func NewTerminalWith(input io.Reader, output io.Writer) *Terminal {
	return &Terminal{input: input, output: output}
}

// Choose runs the dialog until the user picks an option. A cancelled ctx
// dismisses the dialog with its cancel choice.
func (t *Terminal) Choose(ctx context.Context, d Dialog) (int, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.input != nil {
		opts = append(opts, tea.WithInput(t.input))
	}
	if t.output != nil {
		opts = append(opts, tea.WithOutput(t.output))
	}

	final, err := tea.NewProgram(newDialogModel(d), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return d.Cancel, nil
		}
		return 0, fmt.Errorf("run dialog %q: %w", d.Title, err)
	}
	return final.(dialogModel).choice, nil
}

// dialogModel is the bubbletea model behind a Dialog.
type dialogModel struct {
	dialog  Dialog
	cursor  int
	choice  int
	decided bool
}

func newDialogModel(d Dialog) dialogModel {
	return dialogModel{dialog: d, cursor: d.Cancel, choice: d.Cancel}
}

func (m dialogModel) Init() tea.Cmd {
	return nil
}

func (m dialogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyLeft, tea.KeyShiftTab, tea.KeyUp:
		m.cursor = (m.cursor - 1 + len(m.dialog.Options)) % len(m.dialog.Options)
	case tea.KeyRight, tea.KeyTab, tea.KeyDown:
		m.cursor = (m.cursor + 1) % len(m.dialog.Options)
	case tea.KeyEnter:
		m.choice, m.decided = m.cursor, true
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlC:
		m.choice, m.decided = m.dialog.Cancel, true
		return m, tea.Quit
	case tea.KeyRunes:
		switch string(key.Runes) {
		case "h", "k":
			m.cursor = (m.cursor - 1 + len(m.dialog.Options)) % len(m.dialog.Options)
		case "l", "j":
			m.cursor = (m.cursor + 1) % len(m.dialog.Options)
		case "y":
			m.choice, m.decided = m.dialog.Confirm, true
			return m, tea.Quit
		case "n", "q":
			m.choice, m.decided = m.dialog.Cancel, true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m dialogModel) View() string {
	if m.decided {
		return ""
	}

	options := make([]string, len(m.dialog.Options))
	for i, opt := range m.dialog.Options {
		if i == m.cursor {
			options[i] = selectedStyle.Render(opt)
		} else {
			options[i] = optionStyle.Render(opt)
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.dialog.Title))
	if m.dialog.Message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.dialog.Message))
	}
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, options...))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("←/→ move • enter select • esc cancel"))

	return frameStyle.Render(b.String()) + "\n"
}
