package host

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Command describes one external program invocation
type Command struct {
	Name string
	Args []string
	// Env entries are appended to the inherited environment
	Env []string
}

// NewCommand builds a Command from a program name and its arguments
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// WithEnv returns a copy of the command with extra environment entries
func (c Command) WithEnv(env ...string) Command {
	c.Env = append(append([]string(nil), c.Env...), env...)
	return c
}

// String renders the command line for logs and error messages
func (c Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args)+1)
	parts = append(parts, c.Env...)
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// CommandError reports an external command that exited unsuccessfully
type CommandError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// User is a local account as seen by the probe
type User struct {
	Username string
	UID      int
	GID      int
	HomeDir  string
}

// Probe inspects current system state without changing it
type Probe interface {
	// EffectiveUID returns the effective user ID of this process
	EffectiveUID() int
	// KernelRelease returns the running kernel release (uname -r)
	KernelRelease() (string, error)
	// PackageInstalled reports whether the package is fully installed
	PackageInstalled(ctx context.Context, name string) (bool, error)
	// CommandOnPath reports whether a program is reachable on the search path
	CommandOnPath(name string) bool
	// PathExists reports whether path exists without following a final symlink
	PathExists(path string) bool
	// FileContainsLine reports whether the file holds line as a complete line
	FileContainsLine(path, line string) (bool, error)
	// LookupUser resolves a local account by name
	LookupUser(username string) (User, error)
	// UserInGroup reports whether the user is a member of the group
	UserInGroup(username, group string) (bool, error)
	// ReadFile returns the file contents
	ReadFile(path string) ([]byte, error)
}

// Mutator changes system state
type Mutator interface {
	// Run executes a command to completion, streaming its output
	Run(ctx context.Context, cmd Command) error
	// WriteFile replaces the file contents atomically
	WriteFile(path string, data []byte, perm os.FileMode) error
	// AppendLine appends a line, creating the file when absent, and reports creation
	AppendLine(path, line string) (bool, error)
	// CopyFile copies src to dst
	CopyFile(src, dst string) error
	// Symlink creates link pointing at target
	Symlink(target, link string) error
	// Chown hands path over to the named user and their primary group
	Chown(path, username string) error
	// Remove deletes a file
	Remove(path string) error
	// Download fetches url into dst
	Download(ctx context.Context, url, dst string) error
}

// System is the full host surface the provisioning steps work against
type System interface {
	Probe
	Mutator
}
