package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"aibootstrap/internal/logging"
	"aibootstrap/internal/state"
	"aibootstrap/internal/tui"
)

// Status prints the record of the last provisioning run
func Status(jsonOutput bool, streams Streams) error {
	store := state.NewStore(stateDir(), logging.NewLogger(logging.LevelWarn))

	last, err := store.Load()
	if errors.Is(err, state.ErrNoRun) {
		fmt.Fprintln(streams.Out, "No provisioning run recorded yet. Start one with: sudo aibootstrap run")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(last, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal run record: %w", err)
		}
		fmt.Fprintln(streams.Out, string(data))
		return nil
	}

	result := "succeeded"
	if !last.Report.Success {
		result = "failed"
	}
	fmt.Fprintf(streams.Out, "Last run %s at %s (aibootstrap %s)\n\n", result, last.SavedAt.Local().Format("2006-01-02 15:04:05"), last.Version)
	fmt.Fprintln(streams.Out, tui.RenderSummary(last.Report))
	return nil
}
