// Package discover locates candidate transcript files under a source root.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// subagentDirName is excluded from traversal: files under it belong to
// nested agent runs, not top-level conversations.
const subagentDirName = "subagents"

// transcriptExt is the file extension of newline-delimited transcript logs.
const transcriptExt = ".jsonl"

// SessionFile describes one candidate transcript found on disk.
type SessionFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// FindSessionFiles walks basePath and returns every transcript file whose
// modification time is within maxAge of now. A maxAge of zero disables the
// recency filter. Directories named "subagents" are skipped entirely.
// The result order is unspecified.
func FindSessionFiles(basePath string, maxAge time.Duration) ([]SessionFile, error) {
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("listing transcript root %s: %w", basePath, err)
	}

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = time.Now().Add(-maxAge)
	}

	var files []SessionFile
	_ = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == subagentDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), transcriptExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !cutoff.IsZero() && info.ModTime().Before(cutoff) {
			return nil
		}
		files = append(files, SessionFile{
			Path:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	return files, nil
}
