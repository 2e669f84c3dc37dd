// Package engine orchestrates sync passes: discover transcripts under the
// source root, parse whatever appeared past each watermark, and append the
// rendered Markdown under the destination root.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jayjongcheolpark/chat2md/internal/discover"
	"github.com/jayjongcheolpark/chat2md/internal/logger"
	"github.com/jayjongcheolpark/chat2md/internal/markdown"
	"github.com/jayjongcheolpark/chat2md/internal/project"
	"github.com/jayjongcheolpark/chat2md/internal/state"
	"github.com/jayjongcheolpark/chat2md/internal/transcript"
)

var (
	// ErrInvalidPath reports a configured root that is not absolute or
	// contains traversal segments.
	ErrInvalidPath = errors.New("invalid path")

	// ErrSourceRootNotFound reports a transcript root that does not exist.
	ErrSourceRootNotFound = errors.New("transcript root not found")

	// ErrSyncInFlight reports a trigger that arrived while a pass was
	// already running. The trigger is dropped, not queued.
	ErrSyncInFlight = errors.New("sync already in progress")
)

// State is the engine's coarse lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Options configure an Engine. Both roots must be absolute paths without
// traversal segments; they are validated at the start of every pass.
type Options struct {
	SourceRoot   string
	DestRoot     string
	MinSizeBytes int64
	MaxAge       time.Duration
}

// Engine runs sync passes over one source/destination pair. All triggers,
// periodic and manual alike, route through a single-flight gate so at most
// one pass mutates the store at a time.
type Engine struct {
	sourceRoot string
	destRoot   string
	minSize    int64
	maxAge     time.Duration

	store    *state.Store
	history  *state.History
	resolver *project.Resolver

	mu           sync.Mutex
	syncing      bool
	state        State
	lastSync     time.Time
	lastError    string
	stopPeriodic chan struct{}
}

// Status is a point-in-time snapshot for status surfaces.
type Status struct {
	State        State
	LastSync     time.Time
	LastError    string
	TrackedFiles int
	History      []state.SyncHistoryEntry
}

// New builds an engine over store and history, which the engine owns for
// the lifetime of the process.
func New(opts Options, store *state.Store, history *state.History) *Engine {
	return &Engine{
		sourceRoot: opts.SourceRoot,
		destRoot:   opts.DestRoot,
		minSize:    opts.MinSizeBytes,
		maxAge:     opts.MaxAge,
		store:      store,
		history:    history,
		resolver:   project.NewResolver(),
		state:      StateIdle,
	}
}

// SyncNow runs one pass, or returns ErrSyncInFlight if one is already
// running.
func (e *Engine) SyncNow() error {
	if !e.acquire() {
		return ErrSyncInFlight
	}
	return e.runGuarded()
}

// ResetState clears every persisted offset, the run history and the
// resolver's index cache, then runs one fresh pass.
func (e *Engine) ResetState() error {
	if !e.acquire() {
		return ErrSyncInFlight
	}
	e.resolver.ClearCache()
	if err := e.store.Reset(); err != nil {
		e.release(err)
		return err
	}
	if err := e.history.Reset(); err != nil {
		e.release(err)
		return err
	}
	return e.runGuarded()
}

// StartPeriodicSync launches a background ticker that triggers a pass at
// the given interval. A second call while running is a no-op.
func (e *Engine) StartPeriodicSync(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopPeriodic != nil {
		return
	}
	stop := make(chan struct{})
	e.stopPeriodic = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := e.SyncNow(); err != nil && !errors.Is(err, ErrSyncInFlight) {
					logger.Warnf("periodic sync: %v", err)
				}
			}
		}
	}()
}

// StopPeriodicSync stops the background ticker. A pass already in flight
// finishes on its own.
func (e *Engine) StopPeriodicSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopPeriodic != nil {
		close(e.stopPeriodic)
		e.stopPeriodic = nil
	}
}

// Status reports the engine's current state, most recent outcome and the
// rolling run history.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{State: e.state, LastSync: e.lastSync, LastError: e.lastError}
	e.mu.Unlock()
	st.TrackedFiles = e.store.Count()
	st.History = e.history.Recent(0)
	return st
}

// acquire takes the single-flight gate, reporting false when a pass is
// already running.
func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return false
	}
	e.syncing = true
	e.state = StateSyncing
	return true
}

// release drops the gate and records the outcome. Callers must hold the
// gate.
func (e *Engine) release(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncing = false
	e.lastSync = time.Now()
	if err != nil {
		e.state = StateError
		e.lastError = err.Error()
	} else {
		e.state = StateIdle
		e.lastError = ""
	}
}

// runGuarded executes one pass, appends the matching history entry and
// releases the gate. Callers must hold the gate.
func (e *Engine) runGuarded() error {
	start := time.Now()
	synced, err := e.pass()

	switch {
	case err != nil:
		e.history.Append(state.StatusFailure, 0, err.Error())
	case synced > 0:
		e.history.Append(state.StatusSuccess, synced, "")
	default:
		e.history.Append(state.StatusSkipped, 0, "")
	}
	if herr := e.history.Save(); herr != nil {
		logger.Warnf("saving sync history: %v", herr)
	}

	e.release(err)

	if err != nil {
		logger.Errorf("sync pass failed: %v", err)
	} else {
		logger.Debugf("sync pass finished: %d file(s) in %s", synced, time.Since(start).Round(time.Millisecond))
	}
	return err
}

// pass performs one sync over every candidate transcript. Per-file errors
// skip that file; root validation, discovery and the trailing save abort
// the pass. Offsets advanced in memory before an abort are kept but not
// persisted, so the next pass retries the same files.
func (e *Engine) pass() (int, error) {
	if err := validatePath(e.sourceRoot); err != nil {
		return 0, err
	}
	if err := validatePath(e.destRoot); err != nil {
		return 0, err
	}
	info, err := os.Stat(e.sourceRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrSourceRootNotFound, e.sourceRoot)
		}
		return 0, fmt.Errorf("checking transcript root: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: %s is not a directory", ErrSourceRootNotFound, e.sourceRoot)
	}
	if err := os.MkdirAll(e.destRoot, 0o755); err != nil {
		return 0, fmt.Errorf("creating destination root: %w", err)
	}

	files, err := discover.FindSessionFiles(e.sourceRoot, e.maxAge)
	if err != nil {
		return 0, err
	}

	since := startOfDay(time.Now())
	synced := 0
	for _, f := range files {
		if f.Size < e.minSize {
			continue
		}
		if last, ok := e.store.LastSyncedAt(f.Path); ok && !f.ModTime.After(last) {
			continue
		}

		res := transcript.ParseNewLines(f.Path, e.store.LastLine(f.Path), since)
		if len(res.Messages) == 0 {
			// Advance past seen-but-filtered lines so they are not
			// re-scanned on every pass.
			if res.TotalLines > e.store.LastLine(f.Path) {
				e.store.UpdateSession(f.Path, res.TotalLines)
			}
			continue
		}

		name := e.resolver.Resolve(f.Path)
		dest := filepath.Join(e.destRoot, markdown.Filename(name, time.Now()))
		if err := appendToFile(dest, markdown.ConvertForAppend(res.Messages)); err != nil {
			// The offset stays put so these messages are retried.
			logger.Warnf("appending to %s: %v", dest, err)
			continue
		}
		e.store.UpdateSession(f.Path, res.TotalLines)
		synced++
		logger.Debugf("synced %d message(s) from %s to %s", len(res.Messages), f.Path, dest)
	}

	e.store.CleanupOrphans()
	if err := e.store.Save(); err != nil {
		return synced, err
	}
	return synced, nil
}

// validatePath enforces the absolute, traversal-free path rule for
// configured roots.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q contains a traversal segment", ErrInvalidPath, path)
		}
	}
	return nil
}

// appendToFile opens path in append-or-create mode, writes content and
// closes it. No destination file is held open across passes.
func appendToFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
