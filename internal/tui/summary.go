package tui

import (
	"fmt"
	"io"
	"strings"

	"aibootstrap/internal/provision"
)

// SummaryReporter prints the run summary
type SummaryReporter struct {
	out io.Writer
}

// NewSummaryReporter creates a reporter writing to out
func NewSummaryReporter(out io.Writer) *SummaryReporter {
	return &SummaryReporter{out: out}
}

// Summarize renders the report
func (r *SummaryReporter) Summarize(report provision.Report) error {
	_, err := fmt.Fprintln(r.out, RenderSummary(report))
	return err
}

// RenderSummary renders what a run did and what the operator has to do next
func RenderSummary(report provision.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("aibootstrap: provisioning summary"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Steps"))
	b.WriteString("\n")
	for _, s := range report.Steps {
		fmt.Fprintf(&b, "  %s %2d. %s\n", outcomeMarker(s.Outcome), s.Index, s.Title)
	}

	if changes := report.Changes(); len(changes) > 0 {
		b.WriteString(sectionStyle.Render("Installed and changed"))
		b.WriteString("\n")
		for _, c := range changes {
			b.WriteString("  " + labelStyle.Render("+") + " " + c + "\n")
		}
	} else {
		b.WriteString(mutedStyle.Render("  Nothing to change, the system was already provisioned."))
		b.WriteString("\n")
	}

	if warnings := report.Warnings(); len(warnings) > 0 {
		b.WriteString(sectionStyle.Render("Warnings"))
		b.WriteString("\n")
		for _, w := range warnings {
			b.WriteString("  " + warnStyle.Render("⚠ "+w) + "\n")
		}
	}

	if report.TargetUser != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Target user: ") + report.TargetUser + "\n")
	}

	if report.FailedIndex > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Aborted at step %d (%s): %s", report.FailedIndex, report.FailedStep, report.Error)))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("Fix the cause and run aibootstrap run again; completed steps will be skipped."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render("Next steps"))
	b.WriteString("\n")
	b.WriteString("  1. Restart the system to load the NVIDIA driver: sudo reboot\n")
	b.WriteString("  2. Log in again so PATH, LD_LIBRARY_PATH and group changes apply\n")
	b.WriteString("  3. Check the result: aibootstrap verify\n")

	return b.String()
}

func outcomeMarker(o provision.Outcome) string {
	switch o {
	case provision.OutcomeApplied:
		return okStyle.Render("✓")
	case provision.OutcomeSkipped:
		return mutedStyle.Render("·")
	case provision.OutcomeWarned:
		return warnStyle.Render("!")
	case provision.OutcomeFailed:
		return errorStyle.Render("✗")
	default:
		return " "
	}
}
