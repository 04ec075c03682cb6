package tui

import (
	"fmt"
	"strings"

	"aibootstrap/internal/provision"
)

// Check is one line of post-install verification
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// RenderPlan renders what the next run would do per step
func RenderPlan(entries []provision.PlanEntry) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("aibootstrap: plan"))
	b.WriteString("\n")

	pending := 0
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s %2d. %-44s %s\n", planMarker(e.Action), e.Index, e.Title, planLabel(e))
		if e.Action == provision.PlanApply {
			pending++
		}
	}

	b.WriteString("\n")
	if pending == 0 {
		b.WriteString(okStyle.Render("Every guarded step is already satisfied."))
	} else {
		b.WriteString(hintStyle.Render(fmt.Sprintf("%d step(s) would make changes.", pending)))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderChecks renders verification results
func RenderChecks(checks []Check) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("aibootstrap: verify"))
	b.WriteString("\n")

	for _, c := range checks {
		marker := okStyle.Render("✓")
		if !c.OK {
			marker = errorStyle.Render("✗")
		}
		line := fmt.Sprintf("  %s %s", marker, c.Name)
		if c.Detail != "" {
			line += " " + mutedStyle.Render("("+c.Detail+")")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func planMarker(a provision.PlanAction) string {
	switch a {
	case provision.PlanSkip:
		return mutedStyle.Render("·")
	case provision.PlanApply:
		return okStyle.Render("+")
	case provision.PlanUnknown:
		return warnStyle.Render("?")
	default:
		return labelStyle.Render("*")
	}
}

func planLabel(e provision.PlanEntry) string {
	switch e.Action {
	case provision.PlanSkip:
		return mutedStyle.Render("satisfied")
	case provision.PlanApply:
		return "would apply"
	case provision.PlanUnknown:
		return warnStyle.Render("unknown: " + e.Reason)
	default:
		return labelStyle.Render("always runs")
	}
}
