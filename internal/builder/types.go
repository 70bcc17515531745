package builder

import (
	"time"
)

// Phase is a step of the build state machine.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseScanningFiles
	PhaseProcessingContent
	PhaseBuildingIndexes
	PhaseOptimizing
	PhaseValidating
	PhaseFinalizing
	PhaseCompleted
	PhaseFailed
)

// Phases lists the non-terminal phases in execution order.
var Phases = []Phase{
	PhaseInitializing,
	PhaseScanningFiles,
	PhaseProcessingContent,
	PhaseBuildingIndexes,
	PhaseOptimizing,
	PhaseValidating,
	PhaseFinalizing,
}

// String returns the snake_case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseScanningFiles:
		return "scanning_files"
	case PhaseProcessingContent:
		return "processing_content"
	case PhaseBuildingIndexes:
		return "building_indexes"
	case PhaseOptimizing:
		return "optimizing"
	case PhaseValidating:
		return "validating"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Label returns the short tag used by plain progress output.
func (p Phase) Label() string {
	switch p {
	case PhaseInitializing:
		return "INIT"
	case PhaseScanningFiles:
		return "SCAN"
	case PhaseProcessingContent:
		return "PROCESS"
	case PhaseBuildingIndexes:
		return "INDEX"
	case PhaseOptimizing:
		return "OPTIMIZE"
	case PhaseValidating:
		return "VALIDATE"
	case PhaseFinalizing:
		return "FINALIZE"
	case PhaseCompleted:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	default:
		return "???"
	}
}

// Terminal reports whether p ends a build.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// milestone is the fixed percentage reported on entering p.
func (p Phase) milestone() float64 {
	switch p {
	case PhaseScanningFiles:
		return 5
	case PhaseBuildingIndexes:
		return 80
	case PhaseOptimizing:
		return 88
	case PhaseValidating:
		return 94
	case PhaseFinalizing:
		return 97
	case PhaseCompleted:
		return 100
	default:
		return 0
	}
}

// Operation names the kind of work a build performs.
type Operation string

const (
	OpBuildToolIndex    Operation = "build_tool_index"
	OpBuildAllIndexes   Operation = "build_all_indexes"
	OpIncrementalUpdate Operation = "incremental_update"
	OpRebuildIndex      Operation = "rebuild_index"
	OpMergeIndexes      Operation = "merge_indexes"
	OpValidateIndex     Operation = "validate_index"
)

// BuildError is a per-file or per-build failure record.
type BuildError struct {
	Phase       Phase  `json:"phase"`
	FilePath    string `json:"file_path,omitempty"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// BuildProgress is the live state of one build.
type BuildProgress struct {
	BuildID             string       `json:"build_id"`
	Operation           Operation    `json:"operation"`
	Phase               Phase        `json:"phase"`
	ToolType            string       `json:"tool_type"`
	CurrentFile         string       `json:"current_file,omitempty"`
	TotalFiles          int          `json:"total_files"`
	ProcessedItems      int          `json:"processed_items"`
	TotalItems          int          `json:"total_items"`
	Percentage          float64      `json:"percentage"`
	StartTime           time.Time    `json:"start_time"`
	EstimatedCompletion *time.Time   `json:"estimated_completion,omitempty"`
	Errors              []BuildError `json:"errors"`
	Warnings            []string     `json:"warnings"`
}

func (p BuildProgress) clone() BuildProgress {
	c := p
	c.Errors = append([]BuildError(nil), p.Errors...)
	c.Warnings = append([]string(nil), p.Warnings...)
	if p.EstimatedCompletion != nil {
		t := *p.EstimatedCompletion
		c.EstimatedCompletion = &t
	}
	return c
}

// BuildStatistics summarizes the last successful build of a tool.
type BuildStatistics struct {
	TotalBuildTime        time.Duration `json:"total_build_time"`
	FilesProcessed        int           `json:"files_processed"`
	ItemsIndexed          int           `json:"items_indexed"`
	IndexSizeBytes        int64         `json:"index_size_bytes"`
	CompressionRatio      float64       `json:"compression_ratio"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	PeakMemoryUsageMB     float64       `json:"peak_memory_usage_mb"`
	ErrorsCount           int           `json:"errors_count"`
	WarningsCount         int           `json:"warnings_count"`
}

// BuildResult is the outcome of one build.
type BuildResult struct {
	BuildID    string          `json:"build_id"`
	Operation  Operation       `json:"operation"`
	ToolType   string          `json:"tool_type"`
	Success    bool            `json:"success"`
	Statistics BuildStatistics `json:"statistics"`
	OutputPath string          `json:"output_path,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Duration   time.Duration   `json:"duration"`
	Warnings   []string        `json:"warnings"`
	Errors     []BuildError    `json:"errors"`
}

// ProgressReporter receives a copy of a build's progress after every
// change. It is called synchronously and must not block.
type ProgressReporter func(BuildProgress)

// ValidationReport describes a structurally valid index.
type ValidationReport struct {
	ToolType    string    `json:"tool_type"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Postings    int       `json:"postings"`
	LastUpdated time.Time `json:"last_updated"`
}
