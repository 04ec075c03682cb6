package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aibootstrap/internal/fsutil"
	"aibootstrap/internal/host"
)

// fakeSystem simulates the package database, files, accounts and the
// observable effects of the commands the steps run
type fakeSystem struct {
	euid    int
	kernel  string
	pkgs    map[string]bool
	files   map[string][]byte
	links   map[string]string
	onPath  map[string]bool
	users   map[string]host.User
	groups  map[string]map[string]bool
	owners  map[string]string
	failCmd string

	commands  []host.Command
	downloads []string
	mutations int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		euid:   0,
		kernel: "6.1.0-18-amd64",
		pkgs:   make(map[string]bool),
		files:  make(map[string][]byte),
		links:  make(map[string]string),
		onPath: make(map[string]bool),
		users: map[string]host.User{
			"alice": {Username: "alice", UID: 1000, GID: 1000, HomeDir: "/home/alice"},
		},
		groups: map[string]map[string]bool{"sudo": {}},
		owners: make(map[string]string),
	}
}

// freshDebian is a newly installed system with only the main component enabled
func freshDebian() *fakeSystem {
	sys := newFakeSystem()
	sys.files["/etc/apt/sources.list"] = []byte("deb http://deb.debian.org/debian bookworm main\n" +
		"deb http://security.debian.org/debian-security bookworm-security main\n")
	sys.files["/etc/profile"] = []byte("# /etc/profile\n")
	return sys
}

// installCalls counts commands that install packages or run installers
func (s *fakeSystem) installCalls() int {
	n := 0
	for _, c := range s.commands {
		switch {
		case c.Name == "apt-get" && contains(c.Args, "install"):
			n++
		case c.Name == "dpkg", c.Name == "sudo", c.Name == "usermod":
			n++
		}
	}
	return n
}

func (s *fakeSystem) commandLines() []string {
	lines := make([]string, len(s.commands))
	for i, c := range s.commands {
		lines[i] = c.String()
	}
	return lines
}

// snapshot renders the persistent state for before/after comparisons
func (s *fakeSystem) snapshot() string {
	var b strings.Builder
	for _, k := range sortedKeys(s.pkgs) {
		fmt.Fprintf(&b, "pkg %s\n", k)
	}
	for _, k := range sortedKeys(s.files) {
		fmt.Fprintf(&b, "file %s\n%s\n", k, s.files[k])
	}
	for _, k := range sortedKeys(s.links) {
		fmt.Fprintf(&b, "link %s -> %s\n", k, s.links[k])
	}
	for _, g := range sortedKeys(s.groups) {
		fmt.Fprintf(&b, "group %s %v\n", g, sortedKeys(s.groups[g]))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *fakeSystem) EffectiveUID() int { return s.euid }

func (s *fakeSystem) KernelRelease() (string, error) { return s.kernel, nil }

func (s *fakeSystem) PackageInstalled(_ context.Context, name string) (bool, error) {
	return s.pkgs[name], nil
}

func (s *fakeSystem) CommandOnPath(name string) bool { return s.onPath[name] }

func (s *fakeSystem) PathExists(path string) bool {
	if _, ok := s.files[path]; ok {
		return true
	}
	_, ok := s.links[path]
	return ok
}

func (s *fakeSystem) FileContainsLine(path, line string) (bool, error) {
	data, ok := s.files[path]
	if !ok {
		return false, nil
	}
	return fsutil.HasLine(data, line), nil
}

func (s *fakeSystem) LookupUser(username string) (host.User, error) {
	u, ok := s.users[username]
	if !ok {
		return host.User{}, fmt.Errorf("user %q not found", username)
	}
	return u, nil
}

func (s *fakeSystem) UserInGroup(username, group string) (bool, error) {
	members, ok := s.groups[group]
	if !ok {
		return false, fmt.Errorf("group %q not found", group)
	}
	return members[username], nil
}

func (s *fakeSystem) Run(_ context.Context, cmd host.Command) error {
	s.mutations++
	s.commands = append(s.commands, cmd)

	if s.failCmd != "" && strings.Contains(cmd.String(), s.failCmd) {
		return &host.CommandError{Command: cmd.String(), ExitCode: 100}
	}

	switch cmd.Name {
	case "apt-get":
		if len(cmd.Args) > 0 && contains(cmd.Args, "install") {
			for _, pkg := range cmd.Args[3:] {
				s.installPackage(pkg)
			}
		}
	case "dpkg":
		deb := cmd.Args[len(cmd.Args)-1]
		if _, ok := s.files[deb]; !ok {
			return &host.CommandError{Command: cmd.String(), ExitCode: 1}
		}
		s.pkgs["cuda-keyring"] = true
		s.files["/usr/share/keyrings/cuda-archive-keyring.gpg"] = []byte("keyring")
	case "usermod":
		group, user := cmd.Args[1], cmd.Args[2]
		s.groups[group][user] = true
	case "sudo":
		user := s.users[cmd.Args[1]]
		s.files[filepath.Join(user.HomeDir, ".local/bin/uv")] = []byte("uv")
	}
	return nil
}

func (s *fakeSystem) installPackage(pkg string) {
	s.pkgs[pkg] = true
	if version, ok := strings.CutPrefix(pkg, "cuda-compiler-"); ok {
		dir := "/usr/local/cuda-" + strings.ReplaceAll(version, "-", ".")
		s.files[dir+"/bin/nvcc"] = []byte("nvcc")
	}
}

func (s *fakeSystem) ReadFile(path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (s *fakeSystem) WriteFile(path string, data []byte, _ os.FileMode) error {
	s.mutations++
	s.files[path] = append([]byte(nil), data...)
	return nil
}

func (s *fakeSystem) AppendLine(path, line string) (bool, error) {
	s.mutations++
	data, exists := s.files[path]
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	s.files[path] = append(data, []byte(line+"\n")...)
	return !exists, nil
}

func (s *fakeSystem) CopyFile(src, dst string) error {
	s.mutations++
	data, ok := s.files[src]
	if !ok {
		return os.ErrNotExist
	}
	s.files[dst] = append([]byte(nil), data...)
	return nil
}

func (s *fakeSystem) Symlink(target, link string) error {
	s.mutations++
	if s.PathExists(link) {
		return os.ErrExist
	}
	s.links[link] = target
	return nil
}

func (s *fakeSystem) Chown(path, username string) error {
	s.mutations++
	if _, ok := s.users[username]; !ok {
		return errors.New("unknown user " + username)
	}
	s.owners[path] = username
	return nil
}

func (s *fakeSystem) Remove(path string) error {
	s.mutations++
	delete(s.files, path)
	return nil
}

func (s *fakeSystem) Download(_ context.Context, url, dst string) error {
	s.mutations++
	s.downloads = append(s.downloads, url)
	s.files[dst] = []byte("downloaded from " + url)
	return nil
}

// scriptedPrompter answers prompts from fixed values and records the questions
type scriptedPrompter struct {
	confirm   bool
	answers   []string
	questions []string
}

func (p *scriptedPrompter) Confirm(_ context.Context, question string) (bool, error) {
	p.questions = append(p.questions, question)
	return p.confirm, nil
}

func (p *scriptedPrompter) Ask(_ context.Context, question string, validate func(string) error) (string, error) {
	p.questions = append(p.questions, question)
	if len(p.answers) == 0 {
		return "", errors.New("no more answers")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

type capturingReporter struct {
	reports []Report
}

func (r *capturingReporter) Summarize(report Report) error {
	r.reports = append(r.reports, report)
	return nil
}
