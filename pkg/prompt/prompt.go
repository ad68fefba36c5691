// Package prompt asks the operator questions. The terminal implementation
// renders with bubbletea; Static answers without a terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator quits a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks yes/no and multiple choice questions.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
	Select(ctx context.Context, message string, options []string) (string, error)
}

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Terminal prompts on a terminal.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a prompter on stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stderr}
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	final, err := t.run(ctx, &confirmModel{message: message})
	if err != nil {
		return false, err
	}

	m, ok := final.(*confirmModel)
	if !ok || m.cancelled {
		return false, ErrCancelled
	}

	return m.answer, nil
}

// Select asks the operator to pick one of options.
func (t *Terminal) Select(ctx context.Context, message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options to select from")
	}

	final, err := t.run(ctx, &selectModel{message: message, options: options})
	if err != nil {
		return "", err
	}

	m, ok := final.(*selectModel)
	if !ok || m.cancelled {
		return "", ErrCancelled
	}

	return m.options[m.cursor], nil
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}

	return final, nil
}

type confirmModel struct {
	message   string
	answer    bool
	done      bool
	cancelled bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch strings.ToLower(key.String()) {
	case "y":
		m.answer, m.done = true, true
	case "n", "enter":
		m.answer, m.done = false, true
	case "ctrl+c", "esc", "q":
		m.cancelled, m.done = true, true
	default:
		return m, nil
	}

	return m, tea.Quit
}

func (m *confirmModel) View() string {
	if m.done {
		return ""
	}

	return questionStyle.Render(m.message) + " " + hintStyle.Render("[y/N]") + "\n"
}

type selectModel struct {
	message   string
	options   []string
	cursor    int
	done      bool
	cancelled bool
}

func (m *selectModel) Init() tea.Cmd { return nil }

func (m *selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		m.done = true

		return m, tea.Quit
	case "ctrl+c", "esc", "q":
		m.cancelled, m.done = true, true

		return m, tea.Quit
	}

	return m, nil
}

func (m *selectModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	b.WriteString(questionStyle.Render(m.message))
	b.WriteString("\n")

	for i, option := range m.options {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + option))
		} else {
			b.WriteString("  " + option)
		}

		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("↑/↓ to move, enter to select"))
	b.WriteString("\n")

	return b.String()
}

// Static answers every prompt the same way.
type Static struct {
	Answer bool
	Choice int

	Asked []string
}

// Compile-time interface checks.
var (
	_ Prompter = (*Terminal)(nil)
	_ Prompter = (*Static)(nil)
)

// Confirm records the question and returns Answer.
func (s *Static) Confirm(_ context.Context, message string) (bool, error) {
	s.Asked = append(s.Asked, message)

	return s.Answer, nil
}

// Select records the question and returns the option at Choice.
func (s *Static) Select(_ context.Context, message string, options []string) (string, error) {
	s.Asked = append(s.Asked, message)

	if s.Choice < 0 || s.Choice >= len(options) {
		return "", fmt.Errorf("choice %d out of range for %d options", s.Choice, len(options))
	}

	return options[s.Choice], nil
}
