package shell

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Shell describes a login shell whose startup file can hold the managed block.
type Shell interface {
	// Name returns the shell's name (e.g., "zsh", "bash")
	Name() string
	// ProfileFile returns the startup file for the given home directory
	ProfileFile(home string) string
}

// DefaultShell is used when $SHELL is unset or names an unknown shell.
const DefaultShell = "sh"

// registry stores all registered shells
var registry = make(map[string]Shell)

// Register registers a new shell
func Register(shell Shell) {
	registry[shell.Name()] = shell
}

// Get returns a shell by name
func Get(name string) (Shell, bool) {
	s, ok := registry[name]
	return s, ok
}

// List returns the registered shell names, sorted
func List() []string {
	var list []string
	for name := range registry {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// Detect picks the shell named by a $SHELL-style value. The base name is
// matched first, then any registered name contained in it (so "zsh-5.9"
// resolves to zsh). Anything else falls back to the generic profile shell.
func Detect(shellEnv string) Shell {
	base := filepath.Base(strings.TrimSpace(shellEnv))
	if s, ok := registry[base]; ok {
		return s
	}
	for _, name := range []string{"zsh", "bash"} {
		if strings.Contains(base, name) {
			return registry[name]
		}
	}
	return registry[DefaultShell]
}

// ProfilePath returns the startup file for the current user's shell.
func ProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return Detect(os.Getenv("SHELL")).ProfileFile(home), nil
}

// Candidate is a known startup file and whether it exists on disk.
type Candidate struct {
	Shell  string
	Path   string
	Exists bool
}

// Candidates lists the startup files of every registered shell under home,
// de-duplicated by path.
func Candidates(home string) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate
	names := append([]string{"zsh", "bash", DefaultShell}, List()...)
	for _, name := range names {
		if _, ok := registry[name]; !ok {
			continue
		}
		p := registry[name].ProfileFile(home)
		if seen[p] {
			continue
		}
		seen[p] = true
		_, err := os.Stat(p)
		out = append(out, Candidate{Shell: name, Path: p, Exists: err == nil})
	}
	return out
}

// rcShell is a shell that reads a single dotfile from the home directory.
type rcShell struct {
	name string
	file string
}

func (s rcShell) Name() string {
	return s.name
}

func (s rcShell) ProfileFile(home string) string {
	return filepath.Join(home, s.file)
}

// 内置 shell
func init() {
	Register(rcShell{name: "zsh", file: ".zshrc"})
	Register(rcShell{name: "bash", file: ".bashrc"})
	Register(rcShell{name: "ksh", file: ".profile"})
	Register(rcShell{name: "dash", file: ".profile"})
	Register(rcShell{name: DefaultShell, file: ".profile"})
}
