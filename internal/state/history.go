package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// historyLimit caps the rolling window of remembered sync runs.
const historyLimit = 48

// SyncStatus classifies the outcome of one sync pass.
type SyncStatus string

const (
	StatusSuccess SyncStatus = "success"
	StatusSkipped SyncStatus = "skipped"
	StatusFailure SyncStatus = "failure"
)

// SyncHistoryEntry records one completed sync pass.
type SyncHistoryEntry struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Status     SyncStatus `json:"status"`
	FilesCount int        `json:"filesCount"`
	Message    string     `json:"message,omitempty"`
}

// historyDocument is the on-disk shape of the history file.
type historyDocument struct {
	Entries []SyncHistoryEntry `json:"entries"`
}

// History is a persisted ring of the most recent sync runs, oldest first.
// It shares the store's forgiving load semantics.
type History struct {
	mu      sync.RWMutex
	path    string
	entries []SyncHistoryEntry
}

// NewHistory returns a History backed by the XDG data directory, stored
// next to the sync state.
func NewHistory() (*History, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &History{path: filepath.Join(dir, "history.json")}, nil
}

// Load replaces the in-memory entries with the persisted document.
func (h *History) Load() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	data, err := os.ReadFile(h.path)
	if err != nil {
		return
	}
	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}
	h.entries = doc.Entries
	if len(h.entries) > historyLimit {
		h.entries = h.entries[len(h.entries)-historyLimit:]
	}
}

// Save writes the history atomically.
func (h *History) Save() error {
	h.mu.RLock()
	doc := historyDocument{Entries: h.entries}
	data, err := json.Marshal(doc)
	h.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to persist sync history: %w", err)
	}
	if err := writeAtomic(h.path, "history-*.json.tmp", data); err != nil {
		return fmt.Errorf("failed to persist sync history: %w", err)
	}
	return nil
}

// Append records a new entry stamped with the current time, evicting the
// oldest entries beyond the rolling limit.
func (h *History) Append(status SyncStatus, filesCount int, message string) SyncHistoryEntry {
	entry := SyncHistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Status:     status,
		FilesCount: filesCount,
		Message:    message,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > historyLimit {
		h.entries = h.entries[len(h.entries)-historyLimit:]
	}
	return entry
}

// Recent returns up to n entries, newest first. n <= 0 returns everything.
func (h *History) Recent(n int) []SyncHistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]SyncHistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Last returns the most recent entry, if any.
func (h *History) Last() (SyncHistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return SyncHistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of remembered runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Reset clears the history and persists the empty document.
func (h *History) Reset() error {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	return h.Save()
}
