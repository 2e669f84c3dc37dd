package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jayjongcheolpark/chat2md/internal/state"
)

// makeLine builds one transcript record stamped with the current time so
// it survives the start-of-day filter.
func makeLine(t *testing.T, typ, text string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":      typ,
		"timestamp": time.Now().Format(time.RFC3339),
		"cwd":       "/work/alpha",
		"message":   map[string]any{"role": typ, "content": text},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newTestEngine wires an engine over temp roots and a temp XDG data dir.
func newTestEngine(t *testing.T) (*Engine, string, string) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := state.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Load()
	history, err := state.NewHistory()
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	history.Load()

	source := t.TempDir()
	dest := filepath.Join(t.TempDir(), "exports")
	e := New(Options{SourceRoot: source, DestRoot: dest, MinSizeBytes: 1}, store, history)
	return e, source, dest
}

// exportFor returns the single export file for a project, failing the test
// unless exactly one exists.
func exportFor(t *testing.T, dest, project string) string {
	t.Helper()
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}
	var match string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "-"+project+".md") {
			if match != "" {
				t.Fatalf("multiple exports for %s: %s and %s", project, match, entry.Name())
			}
			match = filepath.Join(dest, entry.Name())
		}
	}
	if match == "" {
		t.Fatalf("no export for %s in %s", project, dest)
	}
	return match
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSyncPassEndToEnd(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath,
		makeLine(t, "user", "Hi"),
		makeLine(t, "assistant", "Hello"),
	)

	if err := e.SyncNow(); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}

	got := readFile(t, exportFor(t, dest, "alpha"))
	want := "**User**:\nHi\n\n\n**Claude**:\nHello\n\n\n"
	if got != want {
		t.Errorf("export content:\ngot  %q\nwant %q", got, want)
	}
	if line := e.store.LastLine(transcriptPath); line != 2 {
		t.Errorf("LastLine: got %d, want 2", line)
	}
	last, ok := e.history.Last()
	if !ok || last.Status != state.StatusSuccess || last.FilesCount != 1 {
		t.Errorf("history entry: got %+v, want success with 1 file", last)
	}
	if st := e.Status(); st.State != StateIdle || st.TrackedFiles != 1 {
		t.Errorf("Status: got %+v, want idle with 1 tracked file", st)
	}
}

func TestSecondPassIsIdempotent(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath, makeLine(t, "user", "Hi"), makeLine(t, "assistant", "Hello"))

	if err := e.SyncNow(); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}
	first := readFile(t, exportFor(t, dest, "alpha"))

	if err := e.SyncNow(); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if got := readFile(t, exportFor(t, dest, "alpha")); got != first {
		t.Errorf("second pass appended content:\ngot  %q\nwant %q", got, first)
	}
	if line := e.store.LastLine(transcriptPath); line != 2 {
		t.Errorf("LastLine: got %d, want 2", line)
	}
	last, ok := e.history.Last()
	if !ok || last.Status != state.StatusSkipped {
		t.Errorf("history entry: got %+v, want skipped", last)
	}
}

func TestNewLinesAppendIncrementally(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	l1 := makeLine(t, "user", "Hi")
	l2 := makeLine(t, "assistant", "Hello")
	writeLines(t, transcriptPath, l1, l2)

	if err := e.SyncNow(); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}

	writeLines(t, transcriptPath, l1, l2, makeLine(t, "user", "Bye"))
	// Push the mtime clearly past the recorded sync timestamp.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(transcriptPath, future, future); err != nil {
		t.Fatal(err)
	}

	if err := e.SyncNow(); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}

	got := readFile(t, exportFor(t, dest, "alpha"))
	want := "**User**:\nHi\n\n\n**Claude**:\nHello\n\n\n**User**:\nBye\n\n\n"
	if got != want {
		t.Errorf("export content:\ngot  %q\nwant %q", got, want)
	}
	if line := e.store.LastLine(transcriptPath); line != 3 {
		t.Errorf("LastLine: got %d, want 3", line)
	}
}

func TestStaleMtimeSkipsFileUntilTouched(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	l1 := makeLine(t, "user", "Hi")
	writeLines(t, transcriptPath, l1)

	if err := e.SyncNow(); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}

	// New content, but the mtime sits behind the recorded sync time, so the
	// pass must not even look at it.
	writeLines(t, transcriptPath, l1, makeLine(t, "user", "hidden for now"))
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(transcriptPath, past, past); err != nil {
		t.Fatal(err)
	}
	if err := e.SyncNow(); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if line := e.store.LastLine(transcriptPath); line != 1 {
		t.Errorf("LastLine after stale pass: got %d, want 1", line)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(transcriptPath, future, future); err != nil {
		t.Fatal(err)
	}
	if err := e.SyncNow(); err != nil {
		t.Fatalf("third SyncNow: %v", err)
	}
	if line := e.store.LastLine(transcriptPath); line != 2 {
		t.Errorf("LastLine after touch: got %d, want 2", line)
	}
	if got := readFile(t, exportFor(t, dest, "alpha")); !strings.Contains(got, "hidden for now") {
		t.Errorf("expected the touched content to be exported, got %q", got)
	}
}

func TestFilteredContentStillAdvancesOffset(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath,
		makeLine(t, "user", "<system-reminder>injected context</system-reminder>"),
	)

	if err := e.SyncNow(); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}

	if line := e.store.LastLine(transcriptPath); line != 1 {
		t.Errorf("LastLine: got %d, want 1", line)
	}
	if entries, err := os.ReadDir(dest); err == nil && len(entries) != 0 {
		t.Errorf("expected no exports, found %d", len(entries))
	}
	last, ok := e.history.Last()
	if !ok || last.Status != state.StatusSkipped {
		t.Errorf("history entry: got %+v, want skipped", last)
	}
}

func TestTinyFilesAreSkipped(t *testing.T) {
	e, source, _ := newTestEngine(t)
	e.minSize = 1 << 20
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath, makeLine(t, "user", "Hi"))

	if err := e.SyncNow(); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if line := e.store.LastLine(transcriptPath); line != 0 {
		t.Errorf("LastLine: got %d, want 0", line)
	}
}

func TestInvalidPathsFailThePass(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(e *Engine)
	}{
		{"relative source", func(e *Engine) { e.sourceRoot = "relative/path" }},
		{"traversal in destination", func(e *Engine) { e.destRoot = "/tmp/../etc/exports" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _, _ := newTestEngine(t)
			tc.mutate(e)

			err := e.SyncNow()
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("SyncNow: got %v, want ErrInvalidPath", err)
			}
			st := e.Status()
			if st.State != StateError || st.LastError == "" {
				t.Errorf("Status: got %+v, want error state with message", st)
			}
			last, ok := e.history.Last()
			if !ok || last.Status != state.StatusFailure {
				t.Errorf("history entry: got %+v, want failure", last)
			}
		})
	}
}

func TestMissingSourceRootFailsThePass(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.sourceRoot = filepath.Join(e.sourceRoot, "does-not-exist")

	if err := e.SyncNow(); !errors.Is(err, ErrSourceRootNotFound) {
		t.Fatalf("SyncNow: got %v, want ErrSourceRootNotFound", err)
	}
}

func TestOrphanedStateIsDropped(t *testing.T) {
	e, source, _ := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath, makeLine(t, "user", "Hi"))

	if err := e.SyncNow(); err != nil {
		t.Fatalf("first SyncNow: %v", err)
	}
	if e.store.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", e.store.Count())
	}

	if err := os.Remove(transcriptPath); err != nil {
		t.Fatal(err)
	}
	if err := e.SyncNow(); err != nil {
		t.Fatalf("second SyncNow: %v", err)
	}
	if e.store.Count() != 0 {
		t.Errorf("Count after orphan cleanup: got %d, want 0", e.store.Count())
	}
}

func TestResetStateReExportsFromScratch(t *testing.T) {
	e, source, dest := newTestEngine(t)
	transcriptPath := filepath.Join(source, "projA", "s1.jsonl")
	writeLines(t, transcriptPath, makeLine(t, "user", "Hi"), makeLine(t, "assistant", "Hello"))

	if err := e.SyncNow(); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if err := e.ResetState(); err != nil {
		t.Fatalf("ResetState: %v", err)
	}

	// Offsets were cleared, so the fresh pass appends the same block again.
	got := readFile(t, exportFor(t, dest, "alpha"))
	block := "**User**:\nHi\n\n\n**Claude**:\nHello\n\n\n"
	if got != block+block {
		t.Errorf("export after reset:\ngot  %q\nwant %q", got, block+block)
	}
	if line := e.store.LastLine(transcriptPath); line != 2 {
		t.Errorf("LastLine: got %d, want 2", line)
	}
	if e.history.Len() != 1 {
		t.Errorf("history length after reset: got %d, want 1", e.history.Len())
	}
}

func TestTriggerWhileSyncingIsDropped(t *testing.T) {
	e, source, _ := newTestEngine(t)
	writeLines(t, filepath.Join(source, "projA", "s1.jsonl"), makeLine(t, "user", "Hi"))

	if !e.acquire() {
		t.Fatal("acquire: gate unexpectedly held")
	}
	if err := e.SyncNow(); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("SyncNow while gated: got %v, want ErrSyncInFlight", err)
	}
	if err := e.ResetState(); !errors.Is(err, ErrSyncInFlight) {
		t.Fatalf("ResetState while gated: got %v, want ErrSyncInFlight", err)
	}
	// A dropped trigger leaves no trace in the history.
	if e.history.Len() != 0 {
		t.Errorf("history length: got %d, want 0", e.history.Len())
	}

	e.release(nil)
	if err := e.SyncNow(); err != nil {
		t.Fatalf("SyncNow after release: %v", err)
	}
}

func TestPeriodicSyncStartStop(t *testing.T) {
	e, source, dest := newTestEngine(t)
	writeLines(t, filepath.Join(source, "projA", "s1.jsonl"), makeLine(t, "user", "Hi"))

	e.StartPeriodicSync(20 * time.Millisecond)
	defer e.StopPeriodicSync()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := e.history.Last(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("periodic sync never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := readFile(t, exportFor(t, dest, "alpha")); !strings.Contains(got, "Hi") {
		t.Errorf("expected periodic pass to export content, got %q", got)
	}

	e.StopPeriodicSync()
	// Stopping twice is a no-op.
	e.StopPeriodicSync()
}
