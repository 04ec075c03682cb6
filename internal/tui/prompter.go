package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const maxLineAttempts = 3

// ErrCanceled is returned when the operator aborts a prompt
var ErrCanceled = errors.New("prompt canceled")

// Prompter asks questions on a terminal with bubbletea, or line by line otherwise
type Prompter struct {
	in          io.Reader
	out         io.Writer
	reader      *bufio.Reader
	interactive bool
}

// NewPrompter picks the interactive front end when in is a terminal
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	fd := in.Fd()
	p := NewLinePrompter(in, out)
	p.interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return p
}

// NewLinePrompter reads plain answer lines from in; used for pipes and tests
func NewLinePrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     in,
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// Interactive reports whether prompts run as bubbletea programs
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Confirm asks a yes/no question; the default answer is no
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if p.interactive {
		final, err := p.run(ctx, NewConfirmModel(question, false))
		if err != nil {
			return false, err
		}
		m, ok := final.(ConfirmModel)
		if !ok {
			return false, fmt.Errorf("unexpected model %T", final)
		}
		if m.Canceled() {
			return false, ErrCanceled
		}
		return m.Accepted(), nil
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Ask reads a line of text, re-asking while validate rejects it
func (p *Prompter) Ask(ctx context.Context, question string, validate func(string) error) (string, error) {
	if p.interactive {
		final, err := p.run(ctx, NewInputModel(question, validate))
		if err != nil {
			return "", err
		}
		m, ok := final.(InputModel)
		if !ok {
			return "", fmt.Errorf("unexpected model %T", final)
		}
		if !m.Submitted() {
			return "", ErrCanceled
		}
		return m.Value(), nil
	}

	var lastErr error
	for attempt := 0; attempt < maxLineAttempts; attempt++ {
		fmt.Fprintf(p.out, "%s: ", question)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if validate == nil {
			return line, nil
		}
		if lastErr = validate(line); lastErr == nil {
			return line, nil
		}
		fmt.Fprintf(p.out, "invalid answer: %v\n", lastErr)
	}
	return "", fmt.Errorf("no valid answer after %d attempts: %w", maxLineAttempts, lastErr)
}

func (p *Prompter) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return final, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: no input", ErrCanceled)
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
