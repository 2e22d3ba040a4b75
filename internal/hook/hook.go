package hook

import (
	"fmt"
	"strings"
	"time"
)

// Phase of the hook pipeline. Hooks receive the phase name as their sole
// argument.
type Phase string

const (
	PhasePreSave     Phase = "pre-save"
	PhasePostRestore Phase = "post-restore"
)

// Descriptor is one registered hook: an external executable bound to a phase
// at a fixed position in the pipeline order.
type Descriptor struct {
	Name     string
	Path     string
	Phase    Phase
	Position int
}

// Registry holds the ordered hook descriptors per phase. It is populated
// once at startup; adding a hook is a configuration change, not a code
// change.
type Registry struct {
	hooks map[Phase][]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Phase][]Descriptor)}
}

// Register appends a hook to its phase, assigning the next position.
// Duplicate names within a phase are rejected.
func (r *Registry) Register(name, path string, phase Phase) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("hook requires a name")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("hook %q requires a path", name)
	}
	switch phase {
	case PhasePreSave, PhasePostRestore:
	default:
		return fmt.Errorf("hook %q: unknown phase %q", name, phase)
	}
	for _, d := range r.hooks[phase] {
		if d.Name == name {
			return fmt.Errorf("duplicate hook name %q in phase %s", name, phase)
		}
	}
	d := Descriptor{Name: name, Path: path, Phase: phase, Position: len(r.hooks[phase])}
	r.hooks[phase] = append(r.hooks[phase], d)
	return nil
}

// ForPhase returns the hooks of a phase in registration order.
func (r *Registry) ForPhase(phase Phase) []Descriptor {
	out := make([]Descriptor, len(r.hooks[phase]))
	copy(out, r.hooks[phase])
	return out
}

// Result records one hook invocation.
type Result struct {
	Hook     Descriptor
	Err      error
	ExitCode int
	Duration time.Duration
}

// Summary aggregates a pipeline run.
type Summary struct {
	Phase     Phase
	Succeeded int
	Failed    int
	Total     int
	Results   []Result
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d/%d succeeded", s.Phase, s.Succeeded, s.Total)
}
