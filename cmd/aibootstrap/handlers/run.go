package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
	"aibootstrap/internal/metrics"
	"aibootstrap/internal/provision"
	"aibootstrap/internal/state"
	"aibootstrap/internal/tui"
)

// newSystem builds the host the commands act on; replaced in tests
var newSystem = func(logger *logging.Logger) host.System {
	return host.NewLocal(logger)
}

// RunOptions are the flags of the run command
type RunOptions struct {
	Options
	AssumeYes bool
}

// Run executes the provisioning sequence and records the outcome.
//
// The lock and run record are only touched with root privileges, so an
// unprivileged invocation leaves the machine exactly as it was. A declined
// run releases the lock and records nothing; a state directory created for
// the lock is removed again.
func Run(ctx context.Context, opts RunOptions, streams Streams) error {
	cfg, logger, err := setup(opts.Options)
	if err != nil {
		return err
	}
	defer fsutil.CloseWithError(logger.Close, logger, "log file")

	sys := newSystem(logger)
	privileged := sys.EffectiveUID() == 0

	var declined bool
	if privileged {
		dir := stateDir()
		_, statErr := os.Stat(dir)
		created := errors.Is(statErr, fs.ErrNotExist)

		lock := state.NewLock(dir, logger)
		if err := lock.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("run.lock.release.failed", "Failed to release run lock", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			if declined && created {
				removeStateDir(dir, logger)
			}
		}()
	}

	env := provision.NewEnv(sys, cfg, tui.NewPrompter(streams.In, streams.Out), tui.NewSummaryReporter(streams.Out), logger)
	env.AssumeYes = opts.AssumeYes

	report, runErr := provision.NewRunner(env).Run(ctx, provision.Sequence())
	declined = errors.Is(runErr, provision.ErrDeclined)

	if privileged && !declined {
		recordRun(cfg.Metrics.Textfile, report, logger)
	}

	if runErr != nil && !errors.Is(runErr, provision.ErrNotRoot) && !declined {
		fmt.Fprintln(streams.Out, tui.RenderSummary(report))
	}
	return runErr
}

// removeStateDir drops an empty state directory; anything left inside keeps it
func removeStateDir(dir string, logger *logging.Logger) {
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("run.state.cleanup_failed", "Failed to remove state directory", map[string]interface{}{
			"path":  dir,
			"error": err.Error(),
		})
	}
}

// recordRun persists the report and the optional metrics textfile; failures only warn
func recordRun(textfile string, report provision.Report, logger *logging.Logger) {
	if err := state.NewStore(stateDir(), logger).Save(version, report); err != nil {
		logger.Warn("run.record.failed", "Failed to save run record", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if textfile == "" {
		return
	}
	if err := metrics.NewWriter(logger).Write(report, textfile); err != nil {
		logger.Warn("run.metrics.failed", "Failed to write metrics textfile", map[string]interface{}{
			"path":  textfile,
			"error": err.Error(),
		})
	}
}
