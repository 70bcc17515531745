package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 100, cfg.Builder.BatchSize)
	assert.Equal(t, 10, cfg.Builder.MaxConcurrentFiles)
	assert.True(t, cfg.Builder.EnableCompression)
	assert.True(t, cfg.Builder.EnableIncrementalUpdates)
	assert.InDelta(t, 0.3, cfg.Builder.RebuildThreshold, 1e-9)
	assert.True(t, cfg.Builder.CleanupOldIndexes)
	assert.True(t, cfg.Builder.ValidateIndexIntegrity)
	assert.True(t, cfg.Builder.ParallelProcessing)
	assert.Equal(t, 512, cfg.Builder.MemoryLimitMB)
	assert.False(t, cfg.Builder.EnableStemming)
	assert.Equal(t, DefaultTools, cfg.Tools)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logging.MaxFiles)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles_UsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	// Given: a project config changing a few keys
	content := `
builder:
  batch_size: 25
  parallel_processing: false
tools: [notes, plot]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribeindex.yaml"), []byte(content), 0o644))

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: present keys win, absent keys keep defaults
	assert.Equal(t, 25, cfg.Builder.BatchSize)
	assert.False(t, cfg.Builder.ParallelProcessing)
	assert.Equal(t, 10, cfg.Builder.MaxConcurrentFiles)
	assert.Equal(t, []string{"notes", "plot"}, cfg.Tools)
}

func TestLoad_UserConfigThenProjectConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "scribeindex"), 0o755))
	require.NoError(t, os.WriteFile(GetUserConfigPath(), []byte("builder:\n  batch_size: 7\n  max_concurrent_files: 3\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribeindex.yml"), []byte("builder:\n  batch_size: 9\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Builder.BatchSize)
	assert.Equal(t, 3, cfg.Builder.MaxConcurrentFiles)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribeindex.yaml"), []byte("builder:\n  batch_size: 25\n"), 0o644))

	t.Setenv("SCRIBEINDEX_BATCH_SIZE", "50")
	t.Setenv("SCRIBEINDEX_PARALLEL_PROCESSING", "0")
	t.Setenv("SCRIBEINDEX_TOOLS", " notes , codex ,")
	t.Setenv("SCRIBEINDEX_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Builder.BatchSize)
	assert.False(t, cfg.Builder.ParallelProcessing)
	assert.Equal(t, []string{"notes", "codex"}, cfg.Tools)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribeindex.yaml"), []byte("builder: [oops"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero batch size", func(c *Config) { c.Builder.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Builder.MaxConcurrentFiles = 0 }},
		{"threshold above one", func(c *Config) { c.Builder.RebuildThreshold = 1.5 }},
		{"negative memory", func(c *Config) { c.Builder.MemoryLimitMB = -1 }},
		{"negative cache", func(c *Config) { c.Builder.ContentCacheSize = -1 }},
		{"no tools", func(c *Config) { c.Tools = nil }},
		{"tool with separator", func(c *Config) { c.Tools = []string{"../etc"} }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
		{"bad transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"negative log files", func(c *Config) { c.Logging.MaxFiles = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, ierrors.IsKind(err, ierrors.KindInvalidConfiguration))
		})
	}
}

func TestLoad_InvalidEnvSurfacesConfigError(t *testing.T) {
	isolate(t)
	t.Setenv("SCRIBEINDEX_BATCH_SIZE", "-4")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, ierrors.IsKind(err, ierrors.KindInvalidConfiguration))
}

func TestWatchConfig_DebounceDuration(t *testing.T) {
	d, err := WatchConfig{}.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, d)

	d, err = WatchConfig{Debounce: "1s"}.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestHistoryPath(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, filepath.Join("/p/index", "history.db"), cfg.HistoryPath("/p/index"))

	cfg.History.Path = "/var/lib/h.db"
	assert.Equal(t, "/var/lib/h.db", cfg.HistoryPath("/p/index"))
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Builder.BatchSize = 42
	cfg.Tools = []string{"codex"}
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".scribeindex.yaml")))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
