package cmd

import (
	"strings"
	"testing"

	"github.com/jayjongcheolpark/chat2md/internal/state"
)

func TestSessionsCommandEmpty(t *testing.T) {
	setupEnv(t)

	out, err := executeCommand(rootCmd, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no tracked transcripts") {
		t.Errorf("output: got %q, want empty notice", out)
	}
}

func TestSessionsCommandListsTracked(t *testing.T) {
	source, _ := setupEnv(t)
	transcriptPath := writeTranscript(t, source)

	if out, err := executeCommand(rootCmd, "sync"); err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	out, err := executeCommand(rootCmd, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v\n%s", err, out)
	}
	if !strings.Contains(out, transcriptPath) {
		t.Errorf("output missing transcript path:\n%s", out)
	}
	if !strings.Contains(out, "line 2") {
		t.Errorf("output missing offset:\n%s", out)
	}
	// The records carry cwd /work/alpha, so that name wins.
	if !strings.Contains(out, "alpha") {
		t.Errorf("output missing resolved project name:\n%s", out)
	}
}

func TestSessionsCommandDropsStaleEntries(t *testing.T) {
	setupEnv(t)

	store, err := state.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.UpdateSession("/gone/forever.jsonl", 9)
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The listing itself never prunes; it shows whatever is persisted.
	out, err := executeCommand(rootCmd, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v\n%s", err, out)
	}
	if !strings.Contains(out, "/gone/forever.jsonl") {
		t.Errorf("output missing persisted entry:\n%s", out)
	}

	// A sync pass prunes the orphan, and the listing reflects that.
	if out, err := executeCommand(rootCmd, "sync"); err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	out, err = executeCommand(rootCmd, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no tracked transcripts") {
		t.Errorf("expected orphan to be pruned:\n%s", out)
	}
}
