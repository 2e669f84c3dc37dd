package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configurable chat2md settings.
type Config struct {
	SourceRoot      string `toml:"source_root"`      // transcript tree, e.g. ~/.claude/projects
	DestRoot        string `toml:"dest_root"`        // Markdown output directory
	IntervalSeconds int    `toml:"interval_seconds"` // periodic sync interval
	MaxAgeHours     int    `toml:"max_age_hours"`    // skip transcripts older than this
	MinSizeBytes    int64  `toml:"min_size_bytes"`   // skip transcripts smaller than this
	Enabled         *bool  `toml:"enabled"`          // nil means enabled
}

// Defaults returns sensible default configuration values.
// Leading ~/ in paths is resolved by ExpandPaths after merging.
func Defaults() Config {
	return Config{
		SourceRoot:      "~/.claude/projects",
		DestRoot:        "~/Documents/claude-chats",
		IntervalSeconds: 300,
		MaxAgeHours:     24,
		MinSizeBytes:    100,
	}
}

// LoadGlobal reads config.toml from the chat2md config directory
// ($XDG_CONFIG_HOME/chat2md or ~/.config/chat2md). An absent file is not
// an error and yields the defaults.
func LoadGlobal() (*Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	cfg, found, err := loadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		return nil, err
	}
	if !found {
		d := Defaults()
		return &d, nil
	}
	return cfg, nil
}

// LoadLocal reads .chat2md.toml in the current working directory. An
// absent file yields nil with no error.
func LoadLocal() (*Config, error) {
	cfg, _, err := loadFile(".chat2md.toml")
	return cfg, err
}

// configDir returns the chat2md-specific XDG config directory.
func configDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "chat2md"), nil
}

// loadFile reads and parses a TOML config file at path. The second return
// reports whether the file existed; an absent file is never an error.
func loadFile(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, &ParseError{Path: path, Err: err}
	}
	return &cfg, true, nil
}

// Merge combines global and local configs, with local taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, local *Config) Config {
	result := Defaults()

	// Apply global values over defaults.
	if global != nil {
		if global.SourceRoot != "" {
			result.SourceRoot = global.SourceRoot
		}
		if global.DestRoot != "" {
			result.DestRoot = global.DestRoot
		}
		if global.IntervalSeconds > 0 {
			result.IntervalSeconds = global.IntervalSeconds
		}
		if global.MaxAgeHours > 0 {
			result.MaxAgeHours = global.MaxAgeHours
		}
		if global.MinSizeBytes > 0 {
			result.MinSizeBytes = global.MinSizeBytes
		}
		if global.Enabled != nil {
			result.Enabled = global.Enabled
		}
	}

	// Apply local values over global.
	if local != nil {
		if local.SourceRoot != "" {
			result.SourceRoot = local.SourceRoot
		}
		if local.DestRoot != "" {
			result.DestRoot = local.DestRoot
		}
		if local.IntervalSeconds > 0 {
			result.IntervalSeconds = local.IntervalSeconds
		}
		if local.MaxAgeHours > 0 {
			result.MaxAgeHours = local.MaxAgeHours
		}
		if local.MinSizeBytes > 0 {
			result.MinSizeBytes = local.MinSizeBytes
		}
		if local.Enabled != nil {
			result.Enabled = local.Enabled
		}
	}

	return result
}

// ExpandPaths resolves a leading ~/ in SourceRoot and DestRoot.
func (c *Config) ExpandPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.SourceRoot = expandHome(c.SourceRoot, home)
	c.DestRoot = expandHome(c.DestRoot, home)
	return nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

// SyncEnabled reports whether syncing is enabled. The flag defaults to on.
func (c Config) SyncEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Interval returns the periodic sync interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MaxAge returns the transcript recency cutoff as a duration.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
