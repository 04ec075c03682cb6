package provision

import (
	"context"
	"fmt"
	"time"

	"aibootstrap/internal/logging"
)

// Runner executes steps in order, halting on the first failure
type Runner struct {
	env    *Env
	logger *logging.Logger
	now    func() time.Time
}

// NewRunner creates a runner over the environment
func NewRunner(env *Env) *Runner {
	return &Runner{
		env:    env,
		logger: env.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run folds over the steps. The returned report is always populated, also on failure.
func (r *Runner) Run(ctx context.Context, steps []Step) (Report, error) {
	report := &Report{StartedAt: r.now()}
	r.env.report = report
	defer func() {
		r.env.current = nil
		r.env.report = nil
	}()

	r.logger.Info("run.start", "Starting provisioning", map[string]interface{}{
		"steps": len(steps),
	})

	for i, step := range steps {
		result := StepResult{
			Index:     i + 1,
			Name:      step.Name,
			Title:     step.Title,
			StartedAt: r.now(),
		}
		r.env.current = &result

		err := r.runStep(ctx, step, &result)
		result.FinishedAt = r.now()
		if account := r.env.account; account != nil {
			report.TargetUser = account.Username
		}

		if err != nil {
			result.Outcome = OutcomeFailed
			result.Error = err.Error()
			report.Steps = append(report.Steps, result)

			stepErr := &StepError{Step: step.Name, Index: i + 1, Err: err}
			report.FinishedAt = r.now()
			report.FailedIndex = i + 1
			report.FailedStep = step.Name
			report.Error = err.Error()

			r.logger.Error("step.failed", "Provisioning step failed", map[string]interface{}{
				"step":  step.Name,
				"index": i + 1,
				"error": err.Error(),
			})
			return *report, stepErr
		}

		report.Steps = append(report.Steps, result)
	}

	report.FinishedAt = r.now()
	report.Success = true
	r.logger.Info("run.complete", "Provisioning complete", map[string]interface{}{
		"applied":  report.Count(OutcomeApplied),
		"skipped":  report.Count(OutcomeSkipped),
		"warned":   report.Count(OutcomeWarned),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	})
	return *report, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, result *StepResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.logger.Info("step.start", step.Title, map[string]interface{}{
		"step":  step.Name,
		"index": result.Index,
	})

	if step.Check != nil {
		satisfied, err := step.Check(ctx, r.env)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		if satisfied {
			result.Outcome = OutcomeSkipped
			r.logger.Info("step.skip", "Already satisfied", map[string]interface{}{
				"step": step.Name,
			})
			return nil
		}
	}

	if err := step.Apply(ctx, r.env); err != nil {
		return err
	}

	verify := step.Verify
	if verify == nil {
		verify = step.Check
	}
	if verify != nil {
		ok, err := verify(ctx, r.env)
		if err != nil || !ok {
			if !step.SoftVerify {
				if err != nil {
					return fmt.Errorf("%w: %v", ErrPostcondition, err)
				}
				return ErrPostcondition
			}
			message := "post-install check did not pass"
			if err != nil {
				message = fmt.Sprintf("post-install check failed: %v", err)
			}
			r.env.warn(message)
		}
	}

	result.Outcome = OutcomeApplied
	if len(result.Warnings) > 0 {
		result.Outcome = OutcomeWarned
	}

	r.logger.Info("step.apply.complete", "Step applied", map[string]interface{}{
		"step":    step.Name,
		"changes": result.Changes,
	})
	return nil
}

// PlanAction is what a step would do on the next run
type PlanAction string

const (
	PlanApply   PlanAction = "apply"
	PlanSkip    PlanAction = "skip"
	PlanAlways  PlanAction = "always"
	PlanUnknown PlanAction = "unknown"
)

// PlanEntry is one step's predicted action
type PlanEntry struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Title  string     `json:"title"`
	Action PlanAction `json:"action"`
	Reason string     `json:"reason,omitempty"`
}

// Plan evaluates every guard without applying anything
func Plan(ctx context.Context, env *Env, steps []Step) []PlanEntry {
	entries := make([]PlanEntry, 0, len(steps))
	for i, step := range steps {
		entry := PlanEntry{Index: i + 1, Name: step.Name, Title: step.Title}

		switch {
		case step.Check == nil:
			entry.Action = PlanAlways
		default:
			satisfied, err := step.Check(ctx, env)
			switch {
			case err != nil:
				entry.Action = PlanUnknown
				entry.Reason = err.Error()
			case satisfied:
				entry.Action = PlanSkip
			default:
				entry.Action = PlanApply
			}
		}

		entries = append(entries, entry)
	}
	return entries
}
