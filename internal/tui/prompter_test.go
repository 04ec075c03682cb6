package tui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"aibootstrap/internal/config"
)

func TestLinePrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewLinePrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm(context.Background(), "Continue?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Continue? [y/N]") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestLinePrompter_ConfirmEOF(t *testing.T) {
	p := NewLinePrompter(strings.NewReader(""), &bytes.Buffer{})
	if _, err := p.Confirm(context.Background(), "Continue?"); !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled on empty input, got %v", err)
	}
}

func TestLinePrompter_AskRetriesInvalid(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("Bad User\nalice\n"), &out)

	got, err := p.Ask(context.Background(), "Username", config.ValidateUsername)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got != "alice" {
		t.Errorf("Ask() = %q", got)
	}
	if !strings.Contains(out.String(), "invalid answer") {
		t.Errorf("Expected retry message, got %q", out.String())
	}
}

func TestLinePrompter_AskGivesUp(t *testing.T) {
	p := NewLinePrompter(strings.NewReader("A\nB\nC\nalice\n"), &bytes.Buffer{})

	if _, err := p.Ask(context.Background(), "Username", config.ValidateUsername); err == nil {
		t.Error("Expected error after repeated invalid answers")
	}
}

func TestLinePrompter_AskWithoutValidation(t *testing.T) {
	p := NewLinePrompter(strings.NewReader("  anything goes  \n"), &bytes.Buffer{})

	got, err := p.Ask(context.Background(), "Name", nil)
	if err != nil || got != "anything goes" {
		t.Errorf("Ask() = %q, %v", got, err)
	}
}

func TestNewPrompter_NonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer func() { _ = r.Close() }()
	defer func() { _ = w.Close() }()

	p := NewPrompter(r, &bytes.Buffer{})
	if p.Interactive() {
		t.Error("A pipe must not be treated as a terminal")
	}
}
