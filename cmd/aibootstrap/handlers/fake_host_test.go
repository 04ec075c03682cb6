package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/host"
	"aibootstrap/internal/logging"
)

// fakeHost answers probes from maps and records every mutation attempt
type fakeHost struct {
	euid   int
	kernel string
	pkgs   map[string]bool
	files  map[string][]byte
	onPath map[string]bool
	users  map[string]host.User
	groups map[string]map[string]bool

	mutations []string
}

func newFakeHost(euid int) *fakeHost {
	return &fakeHost{
		euid:   euid,
		kernel: "6.1.0-18-amd64",
		pkgs:   make(map[string]bool),
		files: map[string][]byte{
			"/etc/apt/sources.list": []byte("deb http://deb.debian.org/debian bookworm main\n"),
		},
		onPath: make(map[string]bool),
		users: map[string]host.User{
			"alice": {Username: "alice", UID: 1000, GID: 1000, HomeDir: "/home/alice"},
		},
		groups: map[string]map[string]bool{"sudo": {}},
	}
}

func (h *fakeHost) EffectiveUID() int { return h.euid }

func (h *fakeHost) KernelRelease() (string, error) { return h.kernel, nil }

func (h *fakeHost) PackageInstalled(_ context.Context, name string) (bool, error) {
	return h.pkgs[name], nil
}

func (h *fakeHost) CommandOnPath(name string) bool { return h.onPath[name] }

func (h *fakeHost) PathExists(path string) bool {
	_, ok := h.files[path]
	return ok
}

func (h *fakeHost) FileContainsLine(path, line string) (bool, error) {
	data, ok := h.files[path]
	if !ok {
		return false, nil
	}
	return fsutil.HasLine(data, line), nil
}

func (h *fakeHost) LookupUser(username string) (host.User, error) {
	u, ok := h.users[username]
	if !ok {
		return host.User{}, fmt.Errorf("user %q not found", username)
	}
	return u, nil
}

func (h *fakeHost) UserInGroup(username, group string) (bool, error) {
	return h.groups[group][username], nil
}

func (h *fakeHost) ReadFile(path string) ([]byte, error) {
	data, ok := h.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (h *fakeHost) mutate(format string, args ...interface{}) error {
	h.mutations = append(h.mutations, fmt.Sprintf(format, args...))
	return nil
}

func (h *fakeHost) Run(_ context.Context, cmd host.Command) error {
	return h.mutate("run %s", cmd)
}

func (h *fakeHost) WriteFile(path string, _ []byte, _ os.FileMode) error {
	return h.mutate("write %s", path)
}

func (h *fakeHost) AppendLine(path, line string) (bool, error) {
	return false, h.mutate("append %s %q", path, line)
}

func (h *fakeHost) CopyFile(src, dst string) error {
	return h.mutate("copy %s %s", src, dst)
}

func (h *fakeHost) Symlink(target, link string) error {
	return h.mutate("symlink %s %s", link, target)
}

func (h *fakeHost) Chown(path, username string) error {
	return h.mutate("chown %s %s", path, username)
}

func (h *fakeHost) Remove(path string) error {
	return h.mutate("remove %s", path)
}

func (h *fakeHost) Download(_ context.Context, url, dst string) error {
	return h.mutate("download %s %s", url, dst)
}

// useHost routes newSystem to sys for the rest of the test
func useHost(t *testing.T, sys host.System) {
	t.Helper()
	orig := newSystem
	newSystem = func(*logging.Logger) host.System { return sys }
	t.Cleanup(func() { newSystem = orig })
}
