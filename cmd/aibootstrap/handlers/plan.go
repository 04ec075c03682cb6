package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/provision"
	"aibootstrap/internal/tui"
)

// Plan prints what a run would do without changing anything.
// Steps that need the target user report unknown unless one is configured.
func Plan(ctx context.Context, opts Options, jsonOutput bool, streams Streams) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer fsutil.CloseWithError(logger.Close, logger, "log file")

	env := provision.NewEnv(newSystem(logger), cfg, nil, nil, logger)
	entries := provision.Plan(ctx, env, provision.Sequence())

	if jsonOutput {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Fprintln(streams.Out, string(data))
		return nil
	}

	fmt.Fprint(streams.Out, tui.RenderPlan(entries))
	return nil
}
