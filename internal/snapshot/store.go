package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Facet filenames inside the snapshot directory. One structured document per
// captured facet, plus a manifest carrying per-facet checksums.
const (
	facetMonitors     = "monitors.json"
	facetWorkspaces   = "workspaces.json"
	facetWindows      = "windows.json"
	facetActive       = "active.json"
	facetApplications = "applications.json"
	manifestFile      = "manifest.json"

	// appsDir holds one subdirectory per application class for hook-owned
	// opaque state blobs. The store never touches their contents.
	appsDir = "apps"

	stagePrefix = ".stage-"
	oldSuffix   = ".old"
)

// Manifest records the snapshot timestamp and a sha256 per facet document.
type Manifest struct {
	Timestamp time.Time         `json:"timestamp"`
	Checksums map[string]string `json:"checksums"`
}

// Store persists snapshots as a directory of facet documents. A save stages
// the complete set in a sibling directory and installs it with a single
// directory rename, so readers only ever see the previous set or the new
// one, never a mix.
type Store struct {
	dir        string
	backupDir  string
	maxBackups int
}

func NewStore(dir, backupDir string, maxBackups int) *Store {
	if maxBackups <= 0 {
		maxBackups = 10
	}
	return &Store{dir: dir, backupDir: backupDir, maxBackups: maxBackups}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// AppStateDir returns the hook-owned state directory for an application
// class, creating it on first use.
func (s *Store) AppStateDir(class string) (string, error) {
	p := filepath.Join(s.dir, appsDir, class)
	if err := os.MkdirAll(p, 0o750); err != nil {
		return "", err
	}
	return p, nil
}

// Exists reports whether a stored snapshot is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.dir, manifestFile))
	return err == nil
}

// Save writes the snapshot. The complete facet set is staged in a sibling
// directory; only after every write succeeds is the previous snapshot backed
// up, retired, and the staged set installed with one directory rename.
func (s *Store) Save(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	parent := filepath.Dir(s.dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return err
	}

	facets := map[string]any{
		facetMonitors:     snap.Monitors,
		facetWorkspaces:   snap.Workspaces,
		facetWindows:      snap.Windows,
		facetActive:       snap.ActiveWorkspace,
		facetApplications: snap.Applications,
	}

	stage, err := os.MkdirTemp(parent, stagePrefix)
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(stage) }()
	if err := os.Chmod(stage, 0o750); err != nil {
		return err
	}

	manifest := Manifest{Timestamp: snap.Timestamp, Checksums: make(map[string]string, len(facets))}
	for name, v := range facets {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(stage, name), data, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		manifest.Checksums[name] = checksum(data)
	}
	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(stage, manifestFile), mdata, 0o644); err != nil {
		return err
	}

	// Everything staged; the previous snapshot can now be superseded.
	if s.Exists() {
		if err := s.backupCurrent(); err != nil {
			return fmt.Errorf("backup previous snapshot: %w", err)
		}
	}
	// Hook-owned app state rides along into the new set.
	if _, err := os.Stat(filepath.Join(s.dir, appsDir)); err == nil {
		if err := os.Rename(filepath.Join(s.dir, appsDir), filepath.Join(stage, appsDir)); err != nil {
			return fmt.Errorf("carry app state: %w", err)
		}
	}

	old := s.dir + oldSuffix
	_ = os.RemoveAll(old)
	if _, err := os.Stat(s.dir); err == nil {
		if err := os.Rename(s.dir, old); err != nil {
			return fmt.Errorf("retire previous snapshot: %w", err)
		}
	}
	if err := os.Rename(stage, s.dir); err != nil {
		_ = os.Rename(old, s.dir)
		return fmt.Errorf("install snapshot: %w", err)
	}
	_ = os.RemoveAll(old)
	return s.pruneBackups()
}

// Load reads the stored snapshot. The returned bool reports whether every
// facet checksum matched the manifest; a mismatch is a warning condition,
// not an error.
func (s *Store) Load() (*Snapshot, bool, error) {
	mdata, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if err != nil {
		return nil, false, fmt.Errorf("no stored snapshot: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(mdata, &manifest); err != nil {
		return nil, false, fmt.Errorf("decode manifest: %w", err)
	}

	snap := &Snapshot{Timestamp: manifest.Timestamp}
	verified := true
	read := func(name string, v any) error {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if want, ok := manifest.Checksums[name]; !ok || want != checksum(data) {
			verified = false
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}
	if err := read(facetMonitors, &snap.Monitors); err != nil {
		return nil, false, err
	}
	if err := read(facetWorkspaces, &snap.Workspaces); err != nil {
		return nil, false, err
	}
	if err := read(facetWindows, &snap.Windows); err != nil {
		return nil, false, err
	}
	if err := read(facetActive, &snap.ActiveWorkspace); err != nil {
		return nil, false, err
	}
	if err := read(facetApplications, &snap.Applications); err != nil {
		return nil, false, err
	}
	return snap, verified, nil
}

// Clean removes abandoned staging and retired snapshot directories and
// prunes backups beyond the configured limit.
func (s *Store) Clean() error {
	parent := filepath.Dir(s.dir)
	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, ent := range entries {
		if ent.IsDir() && strings.HasPrefix(ent.Name(), stagePrefix) {
			_ = os.RemoveAll(filepath.Join(parent, ent.Name()))
		}
	}
	_ = os.RemoveAll(s.dir + oldSuffix)
	return s.pruneBackups()
}

// backupCurrent copies the current facet set into backups/<unix-nano>/.
func (s *Store) backupCurrent() error {
	dst := filepath.Join(s.backupDir, strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return err
	}
	names := []string{facetMonitors, facetWorkspaces, facetWindows, facetActive, facetApplications, manifestFile}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) pruneBackups() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var dirs []string
	for _, ent := range entries {
		if ent.IsDir() {
			dirs = append(dirs, ent.Name())
		}
	}
	if len(dirs) <= s.maxBackups {
		return nil
	}
	// names are nanosecond timestamps; lexical sort is chronological for
	// equal-length names, so compare numerically to be safe
	sort.Slice(dirs, func(i, j int) bool {
		a, _ := strconv.ParseInt(dirs[i], 10, 64)
		b, _ := strconv.ParseInt(dirs[j], 10, 64)
		return a < b
	})
	for _, d := range dirs[:len(dirs)-s.maxBackups] {
		if err := os.RemoveAll(filepath.Join(s.backupDir, d)); err != nil {
			return err
		}
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
