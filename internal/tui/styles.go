package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd700")).MarginTop(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00d7ff")).Bold(true)
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
)
