package daemon

// Trigger decides whether a classified change warrants an automatic save.
// A change fires when auto-save is enabled and its score reaches the
// threshold; a score exactly at the threshold fires.
type Trigger struct {
	enabled   bool
	threshold int
}

func NewTrigger(enabled bool, threshold int) *Trigger {
	return &Trigger{enabled: enabled, threshold: threshold}
}

func (t *Trigger) ShouldSave(score int) bool {
	return t.enabled && score >= t.threshold
}
