package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/logging"
)

const (
	// DefaultDownloadTimeout bounds a single artifact download
	DefaultDownloadTimeout = 10 * time.Minute

	dpkgInstalledStatus = "install ok installed"
	profilePermissions  = 0o644
)

// Local implements System against the machine this process runs on
type Local struct {
	stdout io.Writer
	stderr io.Writer
	client *http.Client
	logger *logging.Logger
}

// NewLocal creates a Local system streaming command output to the process stdout/stderr
func NewLocal(logger *logging.Logger) *Local {
	return &Local{
		stdout: os.Stdout,
		stderr: os.Stderr,
		client: &http.Client{Timeout: DefaultDownloadTimeout},
		logger: logger,
	}
}

// SetOutput redirects streamed command output
func (l *Local) SetOutput(stdout, stderr io.Writer) {
	l.stdout = stdout
	l.stderr = stderr
}

// SetHTTPClient replaces the client used for downloads
func (l *Local) SetHTTPClient(client *http.Client) {
	l.client = client
}

// EffectiveUID returns the effective user ID of this process
func (l *Local) EffectiveUID() int {
	return os.Geteuid()
}

// KernelRelease returns the running kernel release
func (l *Local) KernelRelease() (string, error) {
	return kernelRelease()
}

// PackageInstalled queries the dpkg database for the package status
func (l *Local) PackageInstalled(ctx context.Context, name string) (bool, error) {
	var stdout, stderr bytes.Buffer
	// #nosec G204 -- package names come from configuration
	cmd := exec.CommandContext(ctx, "dpkg-query", "-W", "-f=${Status}", name)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// dpkg-query exits 1 for packages it has never seen
			return false, nil
		}
		return false, fmt.Errorf("dpkg-query %s failed: %w", name, err)
	}

	return strings.TrimSpace(stdout.String()) == dpkgInstalledStatus, nil
}

// CommandOnPath reports whether a program is reachable on PATH
func (l *Local) CommandOnPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// PathExists reports whether path exists; dangling symlinks count as existing
func (l *Local) PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileContainsLine reports whether the file holds line; a missing file holds nothing
func (l *Local) FileContainsLine(path, line string) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- paths come from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return fsutil.HasLine(data, line), nil
}

// LookupUser resolves a local account by name
func (l *Local) LookupUser(username string) (User, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return User{}, fmt.Errorf("user %q not found: %w", username, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return User{}, fmt.Errorf("invalid uid %q for %s: %w", u.Uid, username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return User{}, fmt.Errorf("invalid gid %q for %s: %w", u.Gid, username, err)
	}

	return User{Username: u.Username, UID: uid, GID: gid, HomeDir: u.HomeDir}, nil
}

// UserInGroup reports whether the user is a member of the group
func (l *Local) UserInGroup(username, group string) (bool, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return false, fmt.Errorf("user %q not found: %w", username, err)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return false, fmt.Errorf("group %q not found: %w", group, err)
	}

	gids, err := u.GroupIds()
	if err != nil {
		return false, fmt.Errorf("failed to list groups of %s: %w", username, err)
	}
	for _, gid := range gids {
		if gid == g.Gid {
			return true, nil
		}
	}
	return false, nil
}

// Run executes a command to completion
func (l *Local) Run(ctx context.Context, c Command) error {
	l.logger.Debug("host.command.start", "Running command", map[string]interface{}{
		"command": c.String(),
	})

	// #nosec G204 -- commands are assembled from fixed programs and configured package names
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{Command: c.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return cmdErr
	}
	return nil
}

// ReadFile returns the file contents
func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path)) // #nosec G304 -- paths come from configuration
}

// WriteFile replaces the file contents atomically
func (l *Local) WriteFile(path string, data []byte, perm os.FileMode) error {
	return fsutil.AtomicWriteFile(path, data, perm, l.logger)
}

// AppendLine appends a line to a text file
func (l *Local) AppendLine(path, line string) (bool, error) {
	return fsutil.AppendLine(path, line, profilePermissions)
}

// CopyFile copies src to dst
func (l *Local) CopyFile(src, dst string) error {
	return fsutil.CopyFile(src, dst, l.logger)
}

// Symlink creates link pointing at target
func (l *Local) Symlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", link, target, err)
	}
	return nil
}

// Chown hands path over to the named user
func (l *Local) Chown(path, username string) error {
	u, err := l.LookupUser(username)
	if err != nil {
		return err
	}
	if err := os.Chown(path, u.UID, u.GID); err != nil {
		return fmt.Errorf("failed to chown %s to %s: %w", path, username, err)
	}
	return nil
}

// Remove deletes a file; a missing file is not an error
func (l *Local) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Download fetches url into dst, never leaving a partial file behind
func (l *Local) Download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s failed: %w", url, err)
	}
	defer fsutil.CloseWithError(resp.Body.Close, l.logger, "download body")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s failed: unexpected status %s", url, resp.Status)
	}

	tmpPath := dst + ".part"
	out, err := os.OpenFile(filepath.Clean(tmpPath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", dst, errors.Join(copyErr, closeErr))
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	l.logger.Info("host.download.complete", "Artifact downloaded", map[string]interface{}{
		"url":   url,
		"path":  dst,
		"bytes": written,
	})
	return nil
}
