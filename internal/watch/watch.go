package watch

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hyprsave/hyprsave/internal/classify"
)

// State of the watch manager lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateWatching
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

const eventBuffer = 256

// Manager watches a bounded set of directories and forwards raw filesystem
// events into a single channel. Directories beyond the monitor limit are
// skipped and logged, never silently dropped.
type Manager struct {
	dirs        []string
	maxMonitors int
	log         *slog.Logger

	mu       sync.Mutex
	state    State
	watchers map[string]*dirWatch
	skipped  []string
	events   chan classify.Event
	wg       sync.WaitGroup
	restarts atomic.Int64
}

type dirWatch struct {
	dir     string
	watcher *fsnotify.Watcher
	dead    atomic.Bool
}

func NewManager(dirs []string, maxMonitors int, log *slog.Logger) *Manager {
	if maxMonitors <= 0 {
		maxMonitors = 8
	}
	return &Manager{
		dirs:        dirs,
		maxMonitors: maxMonitors,
		log:         log,
		watchers:    make(map[string]*dirWatch),
		events:      make(chan classify.Event, eventBuffer),
	}
}

// Events is the merged event stream of all watched directories.
func (m *Manager) Events() <-chan classify.Event { return m.events }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Skipped lists directories left unwatched because the monitor limit was
// reached or the directory does not exist.
func (m *Manager) Skipped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.skipped))
	copy(out, m.skipped)
	return out
}

// Watching lists the directories currently under watch.
func (m *Manager) Watching() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.watchers))
	for d := range m.watchers {
		out = append(out, d)
	}
	return out
}

// Restarts reports how many dead watchers health checks have revived.
func (m *Manager) Restarts() int64 { return m.restarts.Load() }

// Start brings up one watcher per directory, up to the monitor limit.
// Missing directories and directories beyond the limit are skipped with a
// log line. Start with zero eligible directories is not an error; the
// manager simply watches nothing.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateStopped {
		return fmt.Errorf("watch manager already %s", m.state)
	}
	m.state = StateStarting
	m.skipped = nil

	for _, dir := range m.dirs {
		if len(m.watchers) >= m.maxMonitors {
			m.skipped = append(m.skipped, dir)
			m.log.Warn("monitor limit reached, skipping directory", "dir", dir, "limit", m.maxMonitors)
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			m.skipped = append(m.skipped, dir)
			m.log.Warn("watch directory unavailable, skipping", "dir", dir)
			continue
		}
		dw, err := m.openWatch(dir)
		if err != nil {
			m.skipped = append(m.skipped, dir)
			m.log.Warn("watch setup failed, skipping", "dir", dir, "err", err)
			continue
		}
		m.watchers[dir] = dw
	}
	m.state = StateWatching
	m.log.Info("watch manager started", "watching", len(m.watchers), "skipped", len(m.skipped))
	return nil
}

// Stop tears down all watchers and waits for their workers to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state != StateWatching {
		m.mu.Unlock()
		return
	}
	m.state = StateStopping
	for _, dw := range m.watchers {
		_ = dw.watcher.Close()
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.watchers = make(map[string]*dirWatch)
	m.state = StateStopped
	m.mu.Unlock()
	m.log.Info("watch manager stopped")
}

// HealthCheck restarts watchers whose workers have died. Called periodically
// from the daemon loop.
func (m *Manager) HealthCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateWatching {
		return
	}
	for dir, dw := range m.watchers {
		if !dw.dead.Load() {
			continue
		}
		_ = dw.watcher.Close()
		fresh, err := m.openWatch(dir)
		if err != nil {
			m.log.Warn("watch restart failed", "dir", dir, "err", err)
			continue
		}
		m.watchers[dir] = fresh
		m.restarts.Add(1)
		m.log.Info("watcher restarted", "dir", dir)
	}
}

// openWatch creates the fsnotify watcher and its forwarding worker.
// Caller holds m.mu.
func (m *Manager) openWatch(dir string) (*dirWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	dw := &dirWatch{dir: dir, watcher: w}
	m.wg.Add(1)
	go m.forward(dw)
	return dw, nil
}

// forward translates fsnotify events into raw events on the shared channel.
// A full channel drops the event with a warning instead of blocking the
// watcher.
func (m *Manager) forward(dw *dirWatch) {
	defer m.wg.Done()
	defer dw.dead.Store(true)
	for {
		select {
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			kind, ok := rawKind(ev.Op)
			if !ok {
				continue
			}
			e := classify.Event{Path: ev.Name, Kind: kind, Time: time.Now()}
			select {
			case m.events <- e:
			default:
				m.log.Warn("event buffer full, dropping event", "path", ev.Name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("watcher error", "dir", dw.dir, "err", err)
		}
	}
}

func rawKind(op fsnotify.Op) (classify.RawKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return classify.RawCreate, true
	case op.Has(fsnotify.Remove):
		return classify.RawDelete, true
	case op.Has(fsnotify.Write):
		return classify.RawModify, true
	case op.Has(fsnotify.Rename):
		return classify.RawMove, true
	}
	return "", false
}
