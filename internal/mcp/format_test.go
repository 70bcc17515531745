package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBuildOutput_Success(t *testing.T) {
	out := BuildOutput{
		BuildID:    "b-1",
		Operation:  "build_tool_index",
		Tool:       "notes",
		Success:    true,
		Statistics: StatisticsOutput{FilesProcessed: 3, ItemsIndexed: 3},
		OutputPath: "/p/index/notes.json",
		DurationMs: 12,
	}

	text := FormatBuildOutput(out)

	assert.Contains(t, text, "## build_tool_index succeeded for `notes`")
	assert.Contains(t, text, "**Files:** 3 processed, 3 indexed")
	assert.Contains(t, text, "`/p/index/notes.json`")
	assert.NotContains(t, text, "### Errors")
}

func TestFormatBuildOutput_ListsErrorsAndWarnings(t *testing.T) {
	out := BuildOutput{
		Operation: "build_tool_index",
		Tool:      "notes",
		Errors: []BuildErrorOutput{
			{Phase: "processing_content", FilePath: "bad.json", Message: "invalid JSON"},
			{Phase: "scanning_files", Message: "tool directory not found"},
		},
		Warnings: []string{"no documents indexed for notes"},
	}

	text := FormatBuildOutput(out)

	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "### Errors (2)")
	assert.Contains(t, text, "- [processing_content] `bad.json`: invalid JSON")
	assert.Contains(t, text, "- [scanning_files] tool directory not found")
	assert.Contains(t, text, "### Warnings (1)")
}

func TestFormatBuildAllOutput(t *testing.T) {
	out := BuildAllOutput{
		Results: []BuildOutput{
			{Operation: "build_all_indexes", Tool: "notes", Success: true},
			{Operation: "build_all_indexes", Tool: "codex"},
		},
		Succeeded: 1,
		Failed:    1,
	}

	text := FormatBuildAllOutput(out)

	assert.Contains(t, text, "# Built 2 tools: 1 succeeded, 1 failed")
	assert.Contains(t, text, "for `notes`")
	assert.Contains(t, text, "for `codex`")
}
