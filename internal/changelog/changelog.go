package changelog

import (
	"context"
	"fmt"
	"time"
)

// Entry is one recorded environment change. Triggered marks entries whose
// score reached the auto-save threshold.
type Entry struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	Score      int       `json:"score"`
	Triggered  bool      `json:"triggered"`
}

// Store persists the change audit trail.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Builder creates a store from its location string (path or DSN).
type Builder func(location string) (Store, error)

var builders = map[string]Builder{}

// RegisterBackend makes a backend available to Open. Backends register
// themselves from init so importing a backend package is enough.
func RegisterBackend(name string, b Builder) {
	builders[name] = b
}

// Open creates the store for the named backend.
func Open(backend, location string) (Store, error) {
	b, ok := builders[backend]
	if !ok {
		return nil, fmt.Errorf("unsupported changelog backend: %s", backend)
	}
	return b(location)
}
