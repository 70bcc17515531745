package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogsCmd_TailsAndFilters(t *testing.T) {
	project := newProject(t)
	logPath := filepath.Join(t.TempDir(), "scribeindex.log")
	content := `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"build_completed","tool":"notes"}
{"time":"2026-01-02T10:00:01Z","level":"ERROR","msg":"build_failed","tool":"codex"}
`
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	out, err := run(t, project, "logs", "--file", logPath, "--level", "error")

	require.NoError(t, err)
	assert.Contains(t, out, "build_failed")
	assert.NotContains(t, out, "build_completed")
}

func TestLogsCmd_InvalidFilter(t *testing.T) {
	project := newProject(t)

	_, err := run(t, project, "logs", "--file", "x.log", "--filter", "([")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
