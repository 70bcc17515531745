package mcp

import (
	"time"

	"github.com/Aman-CERP/scribeindex/internal/builder"
	"github.com/Aman-CERP/scribeindex/internal/history"
)

// ToolInput selects one tool's index.
type ToolInput struct {
	Tool string `json:"tool" jsonschema:"tool name, e.g. notes or codex"`
}

// BuildAllInput is the empty input of build_all.
type BuildAllInput struct{}

// ActiveBuildsInput is the empty input of active_builds.
type ActiveBuildsInput struct{}

// CancelBuildInput identifies a running build.
type CancelBuildInput struct {
	BuildID string `json:"build_id" jsonschema:"id of the build to cancel, as reported by active_builds"`
}

// CleanupInput configures cleanup_indexes.
type CleanupInput struct {
	MaxAgeDays int `json:"max_age_days" jsonschema:"remove index files older than this many days, default 30"`
}

// BuildErrorOutput is one failure recorded during a build.
type BuildErrorOutput struct {
	Phase       string `json:"phase" jsonschema:"build phase in which the error occurred"`
	FilePath    string `json:"file_path,omitempty" jsonschema:"file being processed, if any"`
	Message     string `json:"message" jsonschema:"error message"`
	Recoverable bool   `json:"recoverable" jsonschema:"true if the build continued past this error"`
}

// StatisticsOutput mirrors builder.BuildStatistics with durations in
// milliseconds.
type StatisticsOutput struct {
	TotalBuildTimeMs        int64   `json:"total_build_time_ms"`
	FilesProcessed          int     `json:"files_processed"`
	ItemsIndexed            int     `json:"items_indexed"`
	IndexSizeBytes          int64   `json:"index_size_bytes"`
	CompressionRatio        float64 `json:"compression_ratio"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
	PeakMemoryUsageMB       float64 `json:"peak_memory_usage_mb"`
	ErrorsCount             int     `json:"errors_count"`
	WarningsCount           int     `json:"warnings_count"`
}

// BuildOutput mirrors builder.BuildResult.
type BuildOutput struct {
	BuildID    string             `json:"build_id"`
	Operation  string             `json:"operation"`
	Tool       string             `json:"tool"`
	Success    bool               `json:"success"`
	Statistics StatisticsOutput   `json:"statistics"`
	OutputPath string             `json:"output_path,omitempty"`
	CreatedAt  string             `json:"created_at" jsonschema:"RFC3339 timestamp"`
	DurationMs int64              `json:"duration_ms"`
	Warnings   []string           `json:"warnings"`
	Errors     []BuildErrorOutput `json:"errors"`
}

// BuildAllOutput holds one result per configured tool.
type BuildAllOutput struct {
	Results   []BuildOutput `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// ValidateOutput reports index health.
type ValidateOutput struct {
	Tool        string `json:"tool"`
	Valid       bool   `json:"valid"`
	Documents   int    `json:"documents"`
	Terms       int    `json:"terms"`
	Postings    int    `json:"postings"`
	LastUpdated string `json:"last_updated,omitempty"`
	Problem     string `json:"problem,omitempty" jsonschema:"why the index is invalid"`
}

// StatsOutput is the last known build statistics of a tool.
type StatsOutput struct {
	Tool        string            `json:"tool"`
	Source      string            `json:"source" jsonschema:"memory, history, or none"`
	Statistics  *StatisticsOutput `json:"statistics,omitempty"`
	IndexExists bool              `json:"index_exists"`
	Documents   int               `json:"documents"`
	Terms       int               `json:"terms"`
	LastBuildAt string            `json:"last_build_at,omitempty"`
}

// ProgressOutput mirrors builder.BuildProgress.
type ProgressOutput struct {
	BuildID        string  `json:"build_id"`
	Operation      string  `json:"operation"`
	Phase          string  `json:"phase"`
	Tool           string  `json:"tool"`
	CurrentFile    string  `json:"current_file,omitempty"`
	TotalFiles     int     `json:"total_files"`
	ProcessedItems int     `json:"processed_items"`
	TotalItems     int     `json:"total_items"`
	Percentage     float64 `json:"percentage"`
	StartedAt      string  `json:"started_at"`
	EstimatedEnd   string  `json:"estimated_completion,omitempty"`
	Errors         int     `json:"errors"`
	Warnings       int     `json:"warnings"`
}

// ActiveBuildsOutput lists running builds.
type ActiveBuildsOutput struct {
	Builds []ProgressOutput `json:"builds"`
}

// CancelBuildOutput confirms a cancellation.
type CancelBuildOutput struct {
	BuildID   string `json:"build_id"`
	Cancelled bool   `json:"cancelled"`
}

// CleanupOutput lists removed files.
type CleanupOutput struct {
	Removed []string `json:"removed"`
}

// ToBuildOutput converts a build result.
func ToBuildOutput(r *builder.BuildResult) BuildOutput {
	if r == nil {
		return BuildOutput{Warnings: []string{}, Errors: []BuildErrorOutput{}}
	}
	out := BuildOutput{
		BuildID:    r.BuildID,
		Operation:  string(r.Operation),
		Tool:       r.ToolType,
		Success:    r.Success,
		Statistics: toStatisticsOutput(r.Statistics),
		OutputPath: r.OutputPath,
		CreatedAt:  formatTimestamp(r.CreatedAt),
		DurationMs: r.Duration.Milliseconds(),
		Warnings:   append([]string{}, r.Warnings...),
		Errors:     make([]BuildErrorOutput, 0, len(r.Errors)),
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, BuildErrorOutput{
			Phase:       e.Phase.String(),
			FilePath:    e.FilePath,
			Message:     e.Message,
			Recoverable: e.Recoverable,
		})
	}
	return out
}

func toStatisticsOutput(s builder.BuildStatistics) StatisticsOutput {
	return StatisticsOutput{
		TotalBuildTimeMs:        s.TotalBuildTime.Milliseconds(),
		FilesProcessed:          s.FilesProcessed,
		ItemsIndexed:            s.ItemsIndexed,
		IndexSizeBytes:          s.IndexSizeBytes,
		CompressionRatio:        s.CompressionRatio,
		AverageProcessingTimeMs: float64(s.AverageProcessingTime) / float64(time.Millisecond),
		PeakMemoryUsageMB:       s.PeakMemoryUsageMB,
		ErrorsCount:             s.ErrorsCount,
		WarningsCount:           s.WarningsCount,
	}
}

// statisticsFromRecord rebuilds what a history record keeps of a build's
// statistics.
func statisticsFromRecord(r *history.Record) StatisticsOutput {
	avg := 0.0
	if r.FilesProcessed > 0 {
		avg = float64(r.Duration) / float64(time.Millisecond) / float64(r.FilesProcessed)
	}
	return StatisticsOutput{
		TotalBuildTimeMs:        r.Duration.Milliseconds(),
		FilesProcessed:          r.FilesProcessed,
		ItemsIndexed:            r.ItemsIndexed,
		IndexSizeBytes:          r.IndexSizeBytes,
		CompressionRatio:        1.0,
		AverageProcessingTimeMs: avg,
		ErrorsCount:             r.ErrorsCount,
		WarningsCount:           r.WarningsCount,
	}
}

func toProgressOutput(p builder.BuildProgress) ProgressOutput {
	out := ProgressOutput{
		BuildID:        p.BuildID,
		Operation:      string(p.Operation),
		Phase:          p.Phase.String(),
		Tool:           p.ToolType,
		CurrentFile:    p.CurrentFile,
		TotalFiles:     p.TotalFiles,
		ProcessedItems: p.ProcessedItems,
		TotalItems:     p.TotalItems,
		Percentage:     p.Percentage,
		StartedAt:      formatTimestamp(p.StartTime),
		Errors:         len(p.Errors),
		Warnings:       len(p.Warnings),
	}
	if p.EstimatedCompletion != nil {
		out.EstimatedEnd = formatTimestamp(*p.EstimatedCompletion)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
