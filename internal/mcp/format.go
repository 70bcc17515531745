package mcp

import (
	"fmt"
	"strings"
)

// FormatBuildOutput renders a build result as markdown.
func FormatBuildOutput(out BuildOutput) string {
	var sb strings.Builder

	status := "succeeded"
	if !out.Success {
		status = "failed"
	}
	sb.WriteString(fmt.Sprintf("## %s %s for `%s`\n\n", out.Operation, status, out.Tool))
	sb.WriteString(fmt.Sprintf("**Build:** %s\n", out.BuildID))
	sb.WriteString(fmt.Sprintf("**Files:** %d processed, %d indexed\n", out.Statistics.FilesProcessed, out.Statistics.ItemsIndexed))
	sb.WriteString(fmt.Sprintf("**Duration:** %dms\n", out.DurationMs))
	if out.OutputPath != "" {
		sb.WriteString(fmt.Sprintf("**Output:** `%s`\n", out.OutputPath))
	}

	if len(out.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\n### Errors (%d)\n\n", len(out.Errors)))
		for _, e := range out.Errors {
			if e.FilePath != "" {
				sb.WriteString(fmt.Sprintf("- [%s] `%s`: %s\n", e.Phase, e.FilePath, e.Message))
			} else {
				sb.WriteString(fmt.Sprintf("- [%s] %s\n", e.Phase, e.Message))
			}
		}
	}
	if len(out.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\n### Warnings (%d)\n\n", len(out.Warnings)))
		for _, w := range out.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}
	return sb.String()
}

// FormatBuildAllOutput renders every result of build_all.
func FormatBuildAllOutput(out BuildAllOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Built %d tools: %d succeeded, %d failed\n\n", len(out.Results), out.Succeeded, out.Failed))
	for _, r := range out.Results {
		sb.WriteString(FormatBuildOutput(r))
		sb.WriteString("\n")
	}
	return sb.String()
}
