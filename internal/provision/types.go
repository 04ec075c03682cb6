package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"aibootstrap/internal/apt"
	"aibootstrap/internal/config"
	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
)

// Precondition failures abort the run before anything is changed
var (
	ErrNotRoot       = errors.New("must be run as root (try: sudo aibootstrap run)")
	ErrDeclined      = errors.New("provisioning declined by operator")
	ErrNoTargetUser  = errors.New("no target user given")
	ErrPostcondition = errors.New("postcondition not satisfied after apply")
)

// Process exit codes
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitNotRoot  = 2
	ExitDeclined = 3
	ExitConfig   = 4
)

// CheckFunc inspects system state; true means the step is already satisfied
type CheckFunc func(ctx context.Context, env *Env) (bool, error)

// ApplyFunc performs the step's mutation
type ApplyFunc func(ctx context.Context, env *Env) error

// Step is one named, guarded provisioning action
type Step struct {
	Name  string
	Title string

	// Check is the idempotency guard; nil means the step always applies
	Check CheckFunc
	Apply ApplyFunc

	// Verify is the postcondition; nil falls back to Check
	Verify CheckFunc

	// SoftVerify turns a failed postcondition into a warning
	SoftVerify bool
}

// Outcome is how a step ended
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeWarned  Outcome = "warned"
	OutcomeFailed  Outcome = "failed"
)

// StepResult records a single executed step
type StepResult struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	Changes    []string  `json:"changes,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the step took
func (r StepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report is the outcome of one run over the sequence
type Report struct {
	Steps      []StepResult `json:"steps"`
	TargetUser string       `json:"target_user,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Success    bool         `json:"success"`

	// FailedIndex is the 1-based index of the aborting step, 0 when none failed
	FailedIndex int    `json:"failed_index,omitempty"`
	FailedStep  string `json:"failed_step,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Count returns how many steps ended with the outcome
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == outcome {
			n++
		}
	}
	return n
}

// Changes returns every recorded change in step order
func (r Report) Changes() []string {
	var changes []string
	for _, s := range r.Steps {
		changes = append(changes, s.Changes...)
	}
	return changes
}

// Warnings returns every recorded warning in step order
func (r Report) Warnings() []string {
	var warnings []string
	for _, s := range r.Steps {
		warnings = append(warnings, s.Warnings...)
	}
	return warnings
}

// StepError reports the step that aborted the run
type StepError struct {
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode maps a run error onto the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNotRoot):
		return ExitNotRoot
	case errors.Is(err, ErrDeclined):
		return ExitDeclined
	default:
		return ExitFailure
	}
}

// Prompter asks the operator questions
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
	Ask(ctx context.Context, question string, validate func(string) error) (string, error)
}

// Reporter presents the final summary
type Reporter interface {
	Summarize(report Report) error
}

// Env is everything the steps act on
type Env struct {
	System   host.System
	Apt      *apt.Manager
	Prompter Prompter
	Reporter Reporter
	Config   config.Config
	Logger   *logging.Logger

	// AssumeYes skips the confirmation prompt
	AssumeYes bool

	// TempDir receives transient downloads
	TempDir string

	account *host.User
	current *StepResult
	report  *Report
}

// NewEnv wires an environment for the sequence
func NewEnv(sys host.System, cfg config.Config, prompter Prompter, reporter Reporter, logger *logging.Logger) *Env {
	return &Env{
		System:   sys,
		Apt:      apt.NewManager(sys, logger),
		Prompter: prompter,
		Reporter: reporter,
		Config:   cfg,
		Logger:   logger,
		TempDir:  os.TempDir(),
	}
}

// TargetAccount resolves the target user once: configured name first, prompt otherwise
func (e *Env) TargetAccount(ctx context.Context) (host.User, error) {
	if e.account != nil {
		return *e.account, nil
	}

	name := e.Config.TargetUser
	if name == "" {
		if e.Prompter == nil {
			return host.User{}, ErrNoTargetUser
		}
		answer, err := e.Prompter.Ask(ctx, "Username to grant sudo and set up for development", config.ValidateUsername)
		if err != nil {
			return host.User{}, fmt.Errorf("failed to read username: %w", err)
		}
		name = answer
	}
	if err := config.ValidateUsername(name); err != nil {
		return host.User{}, fmt.Errorf("target user: %w", err)
	}

	account, err := e.System.LookupUser(name)
	if err != nil {
		return host.User{}, err
	}
	e.account = &account
	e.Config.TargetUser = account.Username
	return account, nil
}

// Report returns a snapshot of the run so far
func (e *Env) Report() Report {
	if e.report == nil {
		return Report{}
	}
	snapshot := *e.report
	snapshot.Steps = append([]StepResult(nil), e.report.Steps...)
	return snapshot
}

func (e *Env) changed(items ...string) {
	if e.current != nil {
		e.current.Changes = append(e.current.Changes, items...)
	}
}

func (e *Env) warn(message string) {
	if e.current != nil {
		e.current.Warnings = append(e.current.Warnings, message)
	}
	e.Logger.Warn("step.warning", message, map[string]interface{}{
		"step": e.currentName(),
	})
}

func (e *Env) currentName() string {
	if e.current == nil {
		return ""
	}
	return e.current.Name
}
