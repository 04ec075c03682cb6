// Package profile keeps shell profile edits idempotent.
package profile

import (
	"fmt"

	"aibootstrap/internal/host"
)

// ExportPath returns a line prepending dir to PATH
func ExportPath(dir string) string {
	return fmt.Sprintf("export PATH=%s${PATH:+:${PATH}}", dir)
}

// ExportLibraryPath returns a line prepending dir to LD_LIBRARY_PATH
func ExportLibraryPath(dir string) string {
	return fmt.Sprintf("export LD_LIBRARY_PATH=%s${LD_LIBRARY_PATH:+:${LD_LIBRARY_PATH}}", dir)
}

// Satisfied reports whether every line is already present in the file
func Satisfied(sys host.Probe, path string, lines ...string) (bool, error) {
	for _, line := range lines {
		found, err := sys.FileContainsLine(path, line)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// Ensure appends each line that is not yet present and returns the lines it added.
// When owner is set and the file had to be created, it is handed to that user.
func Ensure(sys host.System, path, owner string, lines ...string) ([]string, error) {
	var added []string
	for _, line := range lines {
		found, err := sys.FileContainsLine(path, line)
		if err != nil {
			return added, err
		}
		if found {
			continue
		}

		created, err := sys.AppendLine(path, line)
		if err != nil {
			return added, fmt.Errorf("failed to update %s: %w", path, err)
		}
		if created && owner != "" {
			if err := sys.Chown(path, owner); err != nil {
				return added, err
			}
		}
		added = append(added, line)
	}
	return added, nil
}
