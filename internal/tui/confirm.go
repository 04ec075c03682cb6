package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel is a yes/no question
type ConfirmModel struct {
	question string
	selected bool
	answered bool
	accepted bool
	canceled bool
}

// NewConfirmModel creates a confirmation with the given answer preselected
func NewConfirmModel(question string, defaultYes bool) ConfirmModel {
	return ConfirmModel{question: question, selected: defaultYes}
}

// Init initializes the model
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.answered {
		return m, nil
	}

	switch keyMsg.String() {
	case "y", "Y":
		return m.answer(true), tea.Quit
	case "n", "N", "esc":
		return m.answer(false), tea.Quit
	case "ctrl+c":
		m.canceled = true
		return m.answer(false), tea.Quit
	case "enter":
		return m.answer(m.selected), tea.Quit
	case "left", "right", "tab", "h", "l":
		m.selected = !m.selected
	}
	return m, nil
}

func (m ConfirmModel) answer(yes bool) ConfirmModel {
	m.answered = true
	m.accepted = yes
	m.selected = yes
	return m
}

// View renders the question and both options
func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.question))
	b.WriteString("\n")

	yes, no := optionStyle.Render("  Yes  "), optionStyle.Render("  No  ")
	if m.selected {
		yes = selectedStyle.Render("  Yes  ")
	} else {
		no = selectedStyle.Render("  No  ")
	}
	b.WriteString(yes + " " + no)
	b.WriteString("\n")

	if !m.answered {
		b.WriteString(hintStyle.Render("y/n to answer | ←/→ to choose | Enter to confirm"))
		b.WriteString("\n")
	}
	return b.String()
}

// Answered reports whether a choice was made
func (m ConfirmModel) Answered() bool {
	return m.answered
}

// Accepted reports whether the operator said yes
func (m ConfirmModel) Accepted() bool {
	return m.accepted
}

// Canceled reports whether the operator hit ctrl+c
func (m ConfirmModel) Canceled() bool {
	return m.canceled
}
