// Package sources edits APT repository source lists in place.
//
// Both the one-line format (/etc/apt/sources.list) and the deb822 format
// (*.sources under /etc/apt/sources.list.d) are understood. Only entries that
// already carry the "main" component are touched, and components are only
// ever appended, so every edit is safe to repeat.
package sources

import (
	"fmt"
	"strings"

	"aibootstrap/internal/host"
)

const (
	// BackupSuffix is appended to a source file's path to name its backup
	BackupSuffix = ".bak"

	mainComponent    = "main"
	componentsField  = "Components:"
	deb822Extension  = ".sources"
	sourcePermission = 0o644
)

// DefaultComponents are the Debian 12+ components carrying NVIDIA drivers and firmware
var DefaultComponents = []string{"contrib", "non-free", "non-free-firmware"}

// IsDeb822 reports whether path names a deb822 style source file
func IsDeb822(path string) bool {
	return strings.HasSuffix(path, deb822Extension)
}

// Rewrite enables components in content using the format implied by path
func Rewrite(path, content string, components []string) (string, bool) {
	if IsDeb822(path) {
		return EnableComponentsDeb822(content, components)
	}
	return EnableComponents(content, components)
}

// EnableComponents appends missing components to every one-line deb/deb-src
// entry that lists "main". It reports whether anything changed.
func EnableComponents(content string, components []string) (string, bool) {
	lines := strings.Split(content, "\n")
	changed := false

	for i, line := range lines {
		code, comment := splitComment(line)
		fields := strings.Fields(code)
		if len(fields) == 0 || (fields[0] != "deb" && fields[0] != "deb-src") {
			continue
		}

		existing := entryComponents(fields)
		if !contains(existing, mainComponent) {
			continue
		}

		missing := missingFrom(existing, components)
		if len(missing) == 0 {
			continue
		}

		rewritten := strings.TrimRight(code, " \t") + " " + strings.Join(missing, " ")
		if comment != "" {
			rewritten += " " + comment
		}
		lines[i] = rewritten
		changed = true
	}

	return strings.Join(lines, "\n"), changed
}

// EnableComponentsDeb822 appends missing components to the Components field
// of every deb822 stanza that lists "main".
func EnableComponentsDeb822(content string, components []string) (string, bool) {
	lines := strings.Split(content, "\n")
	changed := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || !hasFieldPrefix(trimmed, componentsField) {
			continue
		}

		existing := strings.Fields(trimmed[len(componentsField):])
		if !contains(existing, mainComponent) {
			continue
		}

		missing := missingFrom(existing, components)
		if len(missing) == 0 {
			continue
		}

		lines[i] = strings.TrimRight(line, " \t") + " " + strings.Join(missing, " ")
		changed = true
	}

	return strings.Join(lines, "\n"), changed
}

// Missing reports whether any qualifying entry in a source file still lacks a component
func Missing(sys host.System, path string, components []string) (bool, error) {
	data, err := sys.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	_, changed := Rewrite(path, string(data), components)
	return changed, nil
}

// Backup copies path to path+BackupSuffix unless a backup already exists.
// The first backup is kept so it always holds the pristine list.
func Backup(sys host.System, path string) (bool, error) {
	backupPath := path + BackupSuffix
	if sys.PathExists(backupPath) {
		return false, nil
	}
	if err := sys.CopyFile(path, backupPath); err != nil {
		return false, fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return true, nil
}

// Enable rewrites a source file in place and reports whether it changed
func Enable(sys host.System, path string, components []string) (bool, error) {
	data, err := sys.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated, changed := Rewrite(path, string(data), components)
	if !changed {
		return false, nil
	}

	if err := sys.WriteFile(path, []byte(updated), sourcePermission); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// entryComponents returns the components of a one-line entry, skipping the
// type, an optional [options] block, the URI and the suite.
func entryComponents(fields []string) []string {
	rest := fields[1:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "[") {
		for len(rest) > 0 {
			tok := rest[0]
			rest = rest[1:]
			if strings.HasSuffix(tok, "]") {
				break
			}
		}
	}
	if len(rest) < 2 {
		return nil
	}
	return rest[2:]
}

func splitComment(line string) (string, string) {
	idx := strings.Index(line, "#")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx:]
}

func hasFieldPrefix(line, field string) bool {
	return len(line) >= len(field) && strings.EqualFold(line[:len(field)], field)
}

func missingFrom(existing, wanted []string) []string {
	var missing []string
	for _, c := range wanted {
		if !contains(existing, c) && !contains(missing, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
