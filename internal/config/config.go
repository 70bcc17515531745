// Package config loads scribeindex configuration from defaults, the user
// config file, the project .scribeindex.yaml, and SCRIBEINDEX_* environment
// variables, in increasing order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

// DefaultTools are the writing-tool content categories indexed by default.
var DefaultTools = []string{"hierarchy", "codex", "notes", "research", "plot", "analysis"}

// Config represents the complete scribeindex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Builder BuilderConfig `yaml:"builder" json:"builder"`
	Tools   []string      `yaml:"tools" json:"tools"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	History HistoryConfig `yaml:"history" json:"history"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BuilderConfig configures index builds.
type BuilderConfig struct {
	// BatchSize is the number of files processed per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// MaxConcurrentFiles bounds parallel file processing within a batch.
	MaxConcurrentFiles int `yaml:"max_concurrent_files" json:"max_concurrent_files"`

	// EnableCompression toggles the compression hook. The hook is a no-op.
	EnableCompression bool `yaml:"enable_compression" json:"enable_compression"`

	// EnableIncrementalUpdates lets watch mode apply change sets instead of
	// rebuilding.
	EnableIncrementalUpdates bool `yaml:"enable_incremental_updates" json:"enable_incremental_updates"`

	// RebuildThreshold is the changed/total document ratio at which watch
	// mode prefers a full rebuild (0.0-1.0).
	RebuildThreshold float64 `yaml:"rebuild_threshold" json:"rebuild_threshold"`

	// CleanupOldIndexes enables retention cleanup of old index files.
	CleanupOldIndexes bool `yaml:"cleanup_old_indexes" json:"cleanup_old_indexes"`

	// ValidateIndexIntegrity runs the validator before finalizing a build.
	ValidateIndexIntegrity bool `yaml:"validate_index_integrity" json:"validate_index_integrity"`

	// ParallelProcessing processes files of a batch concurrently.
	ParallelProcessing bool `yaml:"parallel_processing" json:"parallel_processing"`

	// MemoryLimitMB is advisory; exceeding it records a warning.
	MemoryLimitMB int `yaml:"memory_limit_mb" json:"memory_limit_mb"`

	// EnableStemming toggles the stemming hook. The hook is a no-op.
	EnableStemming bool `yaml:"enable_stemming" json:"enable_stemming"`

	// ContentCacheSize is the number of processed files kept in memory
	// between builds. Zero disables the cache.
	ContentCacheSize int `yaml:"content_cache_size" json:"content_cache_size"`

	// MaxBackups is the number of index backups kept per tool.
	MaxBackups int `yaml:"max_backups" json:"max_backups"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the coalescing window for file events (e.g. "300ms").
	Debounce string `yaml:"debounce" json:"debounce"`
}

// HistoryConfig configures the build history ledger.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Path is relative to the index directory unless absolute.
	Path string `yaml:"path" json:"path"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	Transport   string `yaml:"transport" json:"transport"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// LoggingConfig configures the log file. Level lives in Server.LogLevel.
type LoggingConfig struct {
	// File is the log file path. Empty means ~/.scribeindex/logs/scribeindex.log.
	File string `yaml:"file" json:"file"`

	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Builder: BuilderConfig{
			BatchSize:                100,
			MaxConcurrentFiles:       10,
			EnableCompression:        true,
			EnableIncrementalUpdates: true,
			RebuildThreshold:         0.3,
			CleanupOldIndexes:        true,
			ValidateIndexIntegrity:   true,
			ParallelProcessing:       true,
			MemoryLimitMB:            512,
			EnableStemming:           false,
			ContentCacheSize:         1024,
			MaxBackups:               3,
		},
		Tools: append([]string(nil), DefaultTools...),
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "history.db",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Logging: LoggingConfig{
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the user configuration file path:
// $XDG_CONFIG_HOME/scribeindex/config.yaml, else ~/.config/scribeindex/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribeindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "scribeindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "scribeindex", "config.yaml")
}

// Load loads configuration for the project in dir:
//  1. Defaults
//  2. User config
//  3. Project config (.scribeindex.yaml / .scribeindex.yml)
//  4. SCRIBEINDEX_* environment variables
//
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".scribeindex.yaml", ".scribeindex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML overlays the file onto c. Only keys present in the file change.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Decoding into the populated struct keeps defaults for absent keys,
	// and lets an explicit false override a true default.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies SCRIBEINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCRIBEINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Builder.BatchSize = n
		}
	}
	if v := os.Getenv("SCRIBEINDEX_MAX_CONCURRENT_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Builder.MaxConcurrentFiles = n
		}
	}
	if v := os.Getenv("SCRIBEINDEX_MEMORY_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Builder.MemoryLimitMB = n
		}
	}
	if v := os.Getenv("SCRIBEINDEX_PARALLEL_PROCESSING"); v != "" {
		c.Builder.ParallelProcessing = parseBool(v)
	}
	if v := os.Getenv("SCRIBEINDEX_VALIDATE_INDEX"); v != "" {
		c.Builder.ValidateIndexIntegrity = parseBool(v)
	}
	if v := os.Getenv("SCRIBEINDEX_HISTORY_ENABLED"); v != "" {
		c.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("SCRIBEINDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SCRIBEINDEX_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("SCRIBEINDEX_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("SCRIBEINDEX_TOOLS"); v != "" {
		var tools []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		c.Tools = tools
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// Validate returns an InvalidConfiguration error describing the first
// invalid setting.
func (c *Config) Validate() error {
	b := c.Builder
	if b.BatchSize <= 0 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.batch_size must be positive, got %d", b.BatchSize))
	}
	if b.MaxConcurrentFiles <= 0 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.max_concurrent_files must be positive, got %d", b.MaxConcurrentFiles))
	}
	if b.RebuildThreshold < 0 || b.RebuildThreshold > 1 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.rebuild_threshold must be between 0 and 1, got %.2f", b.RebuildThreshold))
	}
	if b.MemoryLimitMB < 0 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.memory_limit_mb must be non-negative, got %d", b.MemoryLimitMB))
	}
	if b.ContentCacheSize < 0 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.content_cache_size must be non-negative, got %d", b.ContentCacheSize))
	}
	if b.MaxBackups < 0 {
		return ierrors.InvalidConfig(fmt.Sprintf("builder.max_backups must be non-negative, got %d", b.MaxBackups))
	}

	if len(c.Tools) == 0 {
		return ierrors.InvalidConfig("tools must name at least one tool type")
	}
	for _, t := range c.Tools {
		if err := ValidateToolName(t); err != nil {
			return err
		}
	}

	if _, err := c.Watch.DebounceDuration(); err != nil {
		return ierrors.InvalidConfig(fmt.Sprintf("watch.debounce is not a duration: %q", c.Watch.Debounce))
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return ierrors.InvalidConfig(fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport))
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return ierrors.InvalidConfig("logging.max_size_mb and logging.max_files must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return ierrors.InvalidConfig(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel))
	}

	return nil
}

// ValidateToolName rejects empty names and names that would escape the
// content or index directories.
func ValidateToolName(tool string) error {
	if strings.TrimSpace(tool) == "" {
		return ierrors.InvalidConfig("tool type must not be empty")
	}
	if strings.ContainsAny(tool, `/\`) || tool == "." || tool == ".." {
		return ierrors.InvalidConfig(fmt.Sprintf("invalid tool type %q", tool))
	}
	return nil
}

// DebounceDuration parses Debounce. An empty value means 300ms.
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	if w.Debounce == "" {
		return 300 * time.Millisecond, nil
	}
	return time.ParseDuration(w.Debounce)
}

// HistoryPath resolves the history database path against indexDir.
func (c *Config) HistoryPath(indexDir string) string {
	p := c.History.Path
	if p == "" {
		p = "history.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(indexDir, p)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// JSON returns the configuration as indented JSON.
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
