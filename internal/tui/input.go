package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// InputModel reads a single line of text
type InputModel struct {
	prompt    string
	validate  func(string) error
	value     []rune
	errMsg    string
	submitted bool
	canceled  bool
}

// NewInputModel creates a line input; validate may be nil
func NewInputModel(prompt string, validate func(string) error) InputModel {
	return InputModel{prompt: prompt, validate: validate}
}

// Init initializes the model
func (m InputModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.submitted || m.canceled {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.canceled = true
		return m, tea.Quit
	case tea.KeyEnter:
		if m.validate != nil {
			if err := m.validate(m.Value()); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
		}
		m.submitted = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.value) > 0 {
			m.value = m.value[:len(m.value)-1]
		}
	case tea.KeySpace:
		m.value = append(m.value, ' ')
	case tea.KeyRunes:
		m.value = append(m.value, keyMsg.Runes...)
	}

	m.errMsg = ""
	return m, nil
}

// View renders the prompt, the current text and any validation error
func (m InputModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.prompt))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("> ") + string(m.value))
	if !m.submitted {
		b.WriteString(mutedStyle.Render("█"))
	}
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render("⚠ " + m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

// Value returns the entered text without surrounding whitespace
func (m InputModel) Value() string {
	return strings.TrimSpace(string(m.value))
}

// Submitted reports whether enter accepted the value
func (m InputModel) Submitted() bool {
	return m.submitted
}

// Canceled reports whether the operator aborted the prompt
func (m InputModel) Canceled() bool {
	return m.canceled
}

// Err returns the last validation message
func (m InputModel) Err() string {
	return m.errMsg
}
