package envscan

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hyprsave/hyprsave/internal/classify"
)

// Tracker owns the persisted baseline and produces classified changes from
// the difference between the baseline and the current inventory. Each cycle
// runs capture -> compare -> emit -> replace; the baseline is replaced at the
// end of every cycle regardless of whether anything changed, so consecutive
// cycles with no real change both yield an empty diff.
type Tracker struct {
	scanner *Scanner
	path    string
	log     *slog.Logger

	baseline Baseline
	loaded   bool
}

func NewTracker(scanner *Scanner, baselinePath string, log *slog.Logger) *Tracker {
	return &Tracker{scanner: scanner, path: baselinePath, log: log}
}

// Baseline returns the in-memory baseline, loading it from disk on first use.
// A missing or corrupt baseline file starts the tracker from an empty
// inventory; the first cycle then reports every environment as created.
func (t *Tracker) Baseline() Baseline {
	if !t.loaded {
		b, err := loadBaseline(t.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("baseline unreadable, starting empty", "path", t.path, "err", err)
		}
		t.baseline = b
		t.loaded = true
	}
	return t.baseline
}

// Cycle performs one full scan cycle and returns the scored changes. The
// baseline file is rewritten atomically even when the diff is empty so the
// on-disk timestamp always reflects the last scan.
func (t *Tracker) Cycle() ([]classify.Change, error) {
	prev := t.Baseline()
	current := Baseline{Timestamp: time.Now().UTC(), Environments: t.scanner.Scan()}

	added, removed := Diff(prev.IDs(), current.IDs())
	now := time.Now()
	changes := make([]classify.Change, 0, len(added)+len(removed))
	for _, id := range added {
		ev := classify.Event{Path: id, Kind: classify.RawCreate, Time: now}
		changes = append(changes, classify.Change{
			Event: ev,
			Type:  classify.EnvironmentCreated,
			Score: scoreIdentifier(classify.EnvironmentCreated, id),
		})
	}
	for _, id := range removed {
		ev := classify.Event{Path: id, Kind: classify.RawDelete, Time: now}
		changes = append(changes, classify.Change{
			Event: ev,
			Type:  classify.EnvironmentDeleted,
			Score: scoreIdentifier(classify.EnvironmentDeleted, id),
		})
	}

	if err := saveBaseline(t.path, current); err != nil {
		return changes, fmt.Errorf("replace baseline: %w", err)
	}
	t.baseline = current
	return changes, nil
}

// scoreIdentifier scores a "type:name" identifier: base score for the change
// type, +1 when the type names a recognized environment manager.
func scoreIdentifier(ct classify.ChangeType, id string) int {
	s := classify.Score(ct, "")
	switch {
	case len(id) >= 6 && id[:6] == "conda:":
		s++
	case len(id) >= 6 && id[:6] == "pyenv:":
		s++
	}
	return s
}

// Diff computes added and removed identifiers between two sorted sets.
func Diff(previous, current []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(previous) && j < len(current) {
		switch {
		case previous[i] == current[j]:
			i++
			j++
		case previous[i] < current[j]:
			removed = append(removed, previous[i])
			i++
		default:
			added = append(added, current[j])
			j++
		}
	}
	removed = append(removed, previous[i:]...)
	added = append(added, current[j:]...)
	return added, removed
}

func loadBaseline(path string) (Baseline, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Baseline{}, err
	}
	var out Baseline
	if err := json.Unmarshal(b, &out); err != nil {
		return Baseline{}, fmt.Errorf("decode baseline: %w", err)
	}
	return out, nil
}

// saveBaseline writes the baseline atomically (write-temp-then-rename).
func saveBaseline(path string, b Baseline) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
