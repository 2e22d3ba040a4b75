package classify

import (
	"path/filepath"
	"strings"
	"time"
)

// RawKind is the raw filesystem event kind as reported by a watcher.
type RawKind string

const (
	RawCreate RawKind = "create"
	RawDelete RawKind = "delete"
	RawModify RawKind = "modify"
	RawMove   RawKind = "move"
)

// ChangeType is the semantic classification of a raw event.
type ChangeType string

const (
	EnvironmentCreated        ChangeType = "environment_created"
	EnvironmentDeleted        ChangeType = "environment_deleted"
	DependencyFileModified    ChangeType = "dependency_file_modified"
	EnvironmentBinaryModified ChangeType = "environment_binary_modified"
	FileCreated               ChangeType = "file_created"
	FileDeleted               ChangeType = "file_deleted"
	FileModified              ChangeType = "file_modified"
	Unknown                   ChangeType = "unknown"
)

// Event is one raw filesystem change. Ephemeral; consumed immediately.
type Event struct {
	Path string
	Kind RawKind
	Time time.Time
}

// Change is a classified event with its impact score.
type Change struct {
	Event Event
	Type  ChangeType
	Score int
}

// dependencyManifests are filenames whose modification signals a dependency
// change for a development environment.
var dependencyManifests = map[string]struct{}{
	"environment.yml":   {},
	"environment.yaml":  {},
	"requirements.txt":  {},
	"pyproject.toml":    {},
	"poetry.lock":       {},
	"pipfile":           {},
	"pipfile.lock":      {},
	"package.json":      {},
	"package-lock.json": {},
	"conda-meta":        {},
}

// environmentRootSegments mark a path as being an environment root inside an
// environment-manager namespace.
var environmentRootSegments = []string{"envs", "versions"}

// managerNamespaces are recognized environment-manager directory names; a
// path under one of these earns the scoring modifier.
var managerNamespaces = []string{"conda", "miniconda", "miniconda3", "anaconda3", "mamba", "micromamba", ".pyenv", "pyenv", ".virtualenvs", "virtualenvs", ".venv", "venv", ".nvm", ".rbenv"}

// binaryDirSegments mark interpreter/script directories inside an environment.
var binaryDirSegments = []string{"bin", "scripts", "condabin"}

// Classify maps a raw filesystem event onto a semantic change type. It is a
// pure function of (path, kind): rule precedence is environment root, then
// dependency manifest, then binary directory, then the generic file types.
func Classify(path string, kind RawKind) ChangeType {
	segs := pathSegments(path)

	if underEnvironmentRoot(segs) {
		switch kind {
		case RawCreate:
			return EnvironmentCreated
		case RawDelete:
			return EnvironmentDeleted
		}
	}

	base := strings.ToLower(filepath.Base(path))
	if _, ok := dependencyManifests[base]; ok {
		return DependencyFileModified
	}

	if kind == RawModify && underBinaryDir(segs) {
		return EnvironmentBinaryModified
	}

	switch kind {
	case RawCreate:
		return FileCreated
	case RawDelete:
		return FileDeleted
	case RawModify:
		return FileModified
	default:
		return Unknown
	}
}

func pathSegments(path string) []string {
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(clean, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// underEnvironmentRoot reports whether the path names an entry directly
// inside an envs/ or versions/ directory (the environment itself, not a file
// buried within one).
func underEnvironmentRoot(segs []string) bool {
	for i, s := range segs {
		for _, root := range environmentRootSegments {
			if s == root && i == len(segs)-2 {
				return true
			}
		}
	}
	return false
}

func underBinaryDir(segs []string) bool {
	// the file's parent must be a binary directory
	if len(segs) < 2 {
		return false
	}
	parent := segs[len(segs)-2]
	for _, b := range binaryDirSegments {
		if parent == b {
			return true
		}
	}
	return false
}

// InManagerNamespace reports whether any path segment names a recognized
// environment-manager directory.
func InManagerNamespace(path string) bool {
	for _, s := range pathSegments(path) {
		for _, ns := range managerNamespaces {
			if s == ns {
				return true
			}
		}
	}
	return false
}
