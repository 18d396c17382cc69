package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// ServerURL is the base URL of the note store API (no trailing slash).
	ServerURL string `json:"server_url"`

	// TitleDebounceMS is the quiet period before a title or tag edit is committed.
	TitleDebounceMS int `json:"title_debounce_ms"`

	// ContentDebounceMS is the quiet period before a text body edit is committed.
	ContentDebounceMS int `json:"content_debounce_ms"`

	// SceneDebounceMS is the quiet period before a canvas edit is committed.
	// Longer than the text delay so continuous drawing does not flood the store.
	SceneDebounceMS int `json:"scene_debounce_ms"`

	// RequestTimeoutMS bounds each call to the note store. 0 means no timeout.
	RequestTimeoutMS int `json:"request_timeout_ms,omitempty"`

	// ThemeFile is where the light/dark appearance flag lives.
	// Empty means <baseDir>/theme.
	ThemeFile string `json:"theme_file,omitempty"`

	// NotificationLimit caps how many user-visible notifications are retained.
	NotificationLimit int `json:"notification_limit,omitempty"`

	// DisableSnapshot turns off the local SQLite snapshot of the last refreshed list.
	DisableSnapshot bool `json:"disable_snapshot,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:         "http://localhost:5000/api",
		TitleDebounceMS:   1000,
		ContentDebounceMS: 1000,
		SceneDebounceMS:   1500,
		NotificationLimit: 50,
	}
}

// TitleDebounce returns TitleDebounceMS as a duration.
func (c *Config) TitleDebounce() time.Duration {
	return time.Duration(c.TitleDebounceMS) * time.Millisecond
}

// ContentDebounce returns ContentDebounceMS as a duration.
func (c *Config) ContentDebounce() time.Duration {
	return time.Duration(c.ContentDebounceMS) * time.Millisecond
}

// SceneDebounce returns SceneDebounceMS as a duration.
func (c *Config) SceneDebounce() time.Duration {
	return time.Duration(c.SceneDebounceMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// ThemePath resolves the appearance flag file relative to baseDir.
func (c *Config) ThemePath(baseDir string) string {
	if c.ThemeFile != "" {
		return c.ThemeFile
	}
	return filepath.Join(baseDir, "theme")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.fastnote.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.fastnote) and project (.fastnote) directories.
// Project config is found by walking upward from startDir to find the nearest .fastnote/config.json.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .fastnote/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".fastnote", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays FASTNOTE_* environment variables onto cfg.
// Durations use Go syntax ("750ms", "2s"); unparsable values are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) *Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("FASTNOTE_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	cfg.TitleDebounceMS = durationMSOr(getenv("FASTNOTE_TITLE_DEBOUNCE"), cfg.TitleDebounceMS)
	cfg.ContentDebounceMS = durationMSOr(getenv("FASTNOTE_CONTENT_DEBOUNCE"), cfg.ContentDebounceMS)
	cfg.SceneDebounceMS = durationMSOr(getenv("FASTNOTE_SCENE_DEBOUNCE"), cfg.SceneDebounceMS)
	return cfg
}

func durationMSOr(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return int(d / time.Millisecond)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ServerURL = strings.TrimRight(firstNonEmpty(overlay.ServerURL, base.ServerURL), "/")
	result.ThemeFile = firstNonEmpty(overlay.ThemeFile, base.ThemeFile)

	// Scalars: overlay wins if non-zero, else base
	result.TitleDebounceMS = firstNonZero(overlay.TitleDebounceMS, base.TitleDebounceMS)
	result.ContentDebounceMS = firstNonZero(overlay.ContentDebounceMS, base.ContentDebounceMS)
	result.SceneDebounceMS = firstNonZero(overlay.SceneDebounceMS, base.SceneDebounceMS)
	result.RequestTimeoutMS = firstNonZero(overlay.RequestTimeoutMS, base.RequestTimeoutMS)
	result.NotificationLimit = firstNonZero(overlay.NotificationLimit, base.NotificationLimit)

	// Booleans: overlay wins if true, else base
	result.DisableSnapshot = base.DisableSnapshot || overlay.DisableSnapshot

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
