// Package project resolves human-readable project names for transcript
// files. Resolution is best effort and never fails: an index file beats a
// cwd recorded inside the transcript, which beats decoding the containing
// folder's name.
package project

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	indexFileName = "sessions-index.json"

	// cwdProbeLines bounds how far into a transcript the resolver looks
	// for a cwd field before giving up.
	cwdProbeLines = 200

	probeBufferCap = 1024 * 1024
)

type indexFile struct {
	Entries []indexEntry `json:"entries"`
}

type indexEntry struct {
	SessionID   string `json:"sessionId"`
	ProjectPath string `json:"projectPath"`
}

// Resolver maps transcript paths to short project names. Index files are
// parsed once per directory and cached for the resolver's lifetime,
// including the absent and unparseable outcomes; ClearCache drops the
// cache, which a full state reset does before its next pass.
type Resolver struct {
	mu    sync.Mutex
	index map[string]*indexFile

	// fsRoot prefixes every directory-existence probe made while decoding
	// folder names. Empty means the real filesystem root; tests point it
	// at a synthetic tree.
	fsRoot string
}

func NewResolver() *Resolver {
	return &Resolver{index: make(map[string]*indexFile)}
}

// Resolve returns the project name for sessionPath.
func (r *Resolver) Resolve(sessionPath string) string {
	dir := filepath.Dir(sessionPath)
	if name := r.fromIndex(dir, sessionPath); name != "" {
		return name
	}
	if name := cwdFromTranscript(sessionPath); name != "" {
		return name
	}
	return r.decodeDirName(filepath.Base(dir))
}

// ClearCache forgets every cached index file.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[string]*indexFile)
}

func (r *Resolver) fromIndex(dir, sessionPath string) string {
	idx := r.loadIndex(dir)
	if idx == nil {
		return ""
	}
	base := filepath.Base(sessionPath)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	for _, entry := range idx.Entries {
		if entry.SessionID == id && entry.ProjectPath != "" {
			return filepath.Base(entry.ProjectPath)
		}
	}
	return ""
}

func (r *Resolver) loadIndex(dir string) *indexFile {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[abs]; ok {
		return idx
	}

	var idx *indexFile
	if data, err := os.ReadFile(filepath.Join(abs, indexFileName)); err == nil {
		var parsed indexFile
		if json.Unmarshal(data, &parsed) == nil {
			idx = &parsed
		}
	}
	r.index[abs] = idx
	return idx
}

// cwdFromTranscript scans the first non-blank lines of the transcript for
// a record carrying a non-empty cwd field.
func cwdFromTranscript(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), probeBufferCap)
	seen := 0
	for scanner.Scan() && seen < cwdProbeLines {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seen++
		var rec struct {
			Cwd string `json:"cwd"`
		}
		if json.Unmarshal([]byte(line), &rec) != nil {
			continue
		}
		if rec.Cwd != "" {
			return filepath.Base(rec.Cwd)
		}
	}
	return ""
}

// decodeDirName recovers a project name from a transcript folder whose
// name encodes an absolute path with dashes ("-Users-alice-dev-blog").
// Path segments may themselves contain dashes, which makes the encoding
// ambiguous, so each candidate split is validated against the filesystem:
// the leading segments must form an existing directory that contains the
// trailing segments as a subdirectory. The longest valid trailing project
// name wins; if nothing validates, the final segment is returned alone.
func (r *Resolver) decodeDirName(name string) string {
	if len(name) < 2 || !strings.HasPrefix(name, "-") {
		return name
	}
	segs := strings.Split(name[1:], "-")
	for take := len(segs); take >= 1; take-- {
		project := strings.Join(segs[len(segs)-take:], "-")
		if project == "" {
			continue
		}
		parent := r.fsRoot + "/" + filepath.Join(segs[:len(segs)-take]...)
		if isDir(parent) && isDir(filepath.Join(parent, project)) {
			return project
		}
	}
	return segs[len(segs)-1]
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
