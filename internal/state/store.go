// Package state persists per-transcript sync watermarks and the rolling
// run history under the XDG data directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionState is the watermark for one transcript file.
type SessionState struct {
	LastSyncedLine      int       `json:"lastSyncedLine"`
	LastSyncedTimestamp time.Time `json:"lastSyncedTimestamp"`
}

// document is the on-disk shape of the state file.
type document struct {
	SessionStates map[string]SessionState `json:"sessionStates"`
}

// Store holds the persisted watermark for every tracked transcript.
// Loading is forgiving: a missing or corrupt file yields an empty store,
// so the worst outcome of state loss is a full re-export on the next pass.
type Store struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]SessionState
}

// NewStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/chat2md/state.json or ~/.local/share/chat2md/state.json
func NewStore() (*Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{
		path:     filepath.Join(dir, "state.json"),
		sessions: make(map[string]SessionState),
	}, nil
}

// dataDir returns the chat2md-specific XDG data directory.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "chat2md"), nil
}

// Load replaces the in-memory state with the persisted document. Missing
// and undecodable files both leave the store empty.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]SessionState)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}
	if doc.SessionStates != nil {
		s.sessions = doc.SessionStates
	}
}

// Save marshals the state to JSON and writes it atomically via a temp
// file + os.Rename.
func (s *Store) Save() error {
	s.mu.RLock()
	doc := document{SessionStates: s.sessions}
	data, err := json.Marshal(doc)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to persist sync state: %w", err)
	}
	if err := writeAtomic(s.path, "state-*.json.tmp", data); err != nil {
		return fmt.Errorf("failed to persist sync state: %w", err)
	}
	return nil
}

// LastLine returns the recorded offset for path, 0 when unknown.
func (s *Store) LastLine(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[path].LastSyncedLine
}

// LastSyncedAt returns the last synced timestamp for path, reporting
// whether one is recorded.
func (s *Store) LastSyncedAt(path string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[path]
	return st.LastSyncedTimestamp, ok
}

// UpdateSession records lastLine for path and stamps the current time.
// Offsets are monotonic: an update below the recorded offset keeps the
// recorded one.
func (s *Store) UpdateSession(path string, lastLine int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.sessions[path].LastSyncedLine; lastLine < cur {
		lastLine = cur
	}
	s.sessions[path] = SessionState{
		LastSyncedLine:      lastLine,
		LastSyncedTimestamp: time.Now(),
	}
}

// CleanupOrphans drops entries whose transcript no longer exists on disk.
func (s *Store) CleanupOrphans() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.sessions {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			delete(s.sessions, path)
		}
	}
}

// Reset clears every watermark and persists the empty state.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.sessions = make(map[string]SessionState)
	s.mu.Unlock()
	return s.Save()
}

// Count returns the number of tracked transcripts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sessions returns a copy of the tracked watermarks keyed by path.
func (s *Store) Sessions() map[string]SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]SessionState, len(s.sessions))
	for path, st := range s.sessions {
		out[path] = st
	}
	return out
}

// writeAtomic writes data to path via a temp file in the same directory so
// os.Rename is atomic.
func writeAtomic(path, tmpPattern string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), tmpPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
