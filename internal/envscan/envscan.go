package envscan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Status of a detected environment. An environment is active when a process
// marker names it, available when only its directory is present.
const (
	StatusActive    = "active"
	StatusAvailable = "available"
)

// Environment is one detected development environment.
type Environment struct {
	Type   string `json:"type"`   // conda, venv, pyenv
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ID is the stable "type:name" identifier used by the diff engine.
func (e Environment) ID() string { return e.Type + ":" + e.Name }

// Baseline is the last-known environment inventory. It is always replaced
// wholesale after a scan cycle, never partially updated.
type Baseline struct {
	Timestamp    time.Time     `json:"timestamp"`
	Environments []Environment `json:"environments"`
}

// IDs returns the sorted identifier set of the baseline.
func (b Baseline) IDs() []string {
	out := make([]string, 0, len(b.Environments))
	for _, e := range b.Environments {
		out = append(out, e.ID())
	}
	sort.Strings(out)
	return out
}

// Scanner detects environments under a set of root directories plus
// active-environment markers from the given KEY=VALUE environment. Pass
// os.Environ() for the real process environment.
type Scanner struct {
	roots   []string
	environ []string
}

func NewScanner(roots []string, environ []string) *Scanner {
	return &Scanner{roots: roots, environ: environ}
}

// Scan walks the configured roots and merges in active-environment markers.
// The result is sorted by identifier so two scans of an unchanged system
// compare equal.
func (s *Scanner) Scan() []Environment {
	seen := make(map[string]Environment)
	for _, root := range s.roots {
		for _, env := range scanRoot(root) {
			seen[env.ID()] = env
		}
	}
	for _, env := range detectActive(s.environ) {
		// active markers override availability detected from disk
		seen[env.ID()] = env
	}
	out := make([]Environment, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// scanRoot interprets one directory as an environment-manager namespace:
// an envs/ subdirectory yields conda-family environments, a versions/
// subdirectory yields pyenv-family versions, and directories carrying a
// pyvenv.cfg are venvs.
func scanRoot(root string) []Environment {
	var out []Environment
	base := strings.ToLower(filepath.Base(root))

	envType := "conda"
	listDir := root
	switch {
	case base == "envs":
		envType = "conda"
	case base == "versions":
		envType = "pyenv"
	case dirExists(filepath.Join(root, "envs")):
		envType = "conda"
		listDir = filepath.Join(root, "envs")
	case dirExists(filepath.Join(root, "versions")):
		envType = "pyenv"
		listDir = filepath.Join(root, "versions")
	default:
		envType = "venv"
	}

	entries, err := os.ReadDir(listDir)
	if err != nil {
		return nil
	}
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		if envType == "venv" && !fileExists(filepath.Join(listDir, ent.Name(), "pyvenv.cfg")) {
			continue
		}
		out = append(out, Environment{Type: envType, Name: ent.Name(), Status: StatusAvailable})
	}
	return out
}

// detectActive extracts active-environment markers from KEY=VALUE pairs.
func detectActive(environ []string) []Environment {
	var out []Environment
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			vars[kv[:i]] = kv[i+1:]
		}
	}
	if name := vars["CONDA_DEFAULT_ENV"]; name != "" {
		out = append(out, Environment{Type: "conda", Name: name, Status: StatusActive})
	}
	if path := vars["VIRTUAL_ENV"]; path != "" {
		out = append(out, Environment{Type: "venv", Name: filepath.Base(path), Status: StatusActive})
	}
	if name := vars["PYENV_VERSION"]; name != "" {
		out = append(out, Environment{Type: "pyenv", Name: name, Status: StatusActive})
	}
	return out
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
