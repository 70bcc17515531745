// Package errors provides structured error handling for scribeindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (source files, index files)
//   - 3XX: Resource errors
//   - 4XX: Build lifecycle errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and index I/O errors.
	CategoryIO Category = "IO"
	// CategoryResource indicates resource budget errors.
	CategoryResource Category = "RESOURCE"
	// CategoryBuild indicates build lifecycle errors.
	CategoryBuild Category = "BUILD"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the current operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the caller can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning means degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "INFO"
)

// Kind is the failure taxonomy surfaced to build callers.
type Kind string

const (
	KindFileProcessing       Kind = "file_processing"
	KindIndexCorruption      Kind = "index_corruption"
	KindMemoryLimitExceeded  Kind = "memory_limit_exceeded"
	KindPermissionDenied     Kind = "permission_denied"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindBuildCancelled       Kind = "build_cancelled"
	KindStorage              Kind = "storage"
	KindInternal             Kind = "internal"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileProcessing   = "ERR_201_FILE_PROCESSING"
	ErrCodePermissionDenied = "ERR_202_PERMISSION_DENIED"
	ErrCodeIndexCorruption  = "ERR_203_INDEX_CORRUPTION"
	ErrCodeIndexNotFound    = "ERR_204_INDEX_NOT_FOUND"
	ErrCodeStorage          = "ERR_205_STORAGE"

	// Resource errors (300-399)
	ErrCodeMemoryLimit = "ERR_301_MEMORY_LIMIT"

	// Build errors (400-499)
	ErrCodeBuildCancelled = "ERR_401_BUILD_CANCELLED"
	ErrCodeBuildNotFound  = "ERR_402_BUILD_NOT_FOUND"
	ErrCodeInvalidInput   = "ERR_403_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryResource
	case '4':
		return CategoryBuild
	default:
		return CategoryInternal
	}
}

// kindFromCode maps a code onto the build failure taxonomy.
func kindFromCode(code string) Kind {
	switch code {
	case ErrCodeConfigInvalid:
		return KindInvalidConfiguration
	case ErrCodeFileProcessing:
		return KindFileProcessing
	case ErrCodePermissionDenied:
		return KindPermissionDenied
	case ErrCodeIndexCorruption:
		return KindIndexCorruption
	case ErrCodeIndexNotFound, ErrCodeStorage:
		return KindStorage
	case ErrCodeMemoryLimit:
		return KindMemoryLimitExceeded
	case ErrCodeBuildCancelled:
		return KindBuildCancelled
	default:
		return KindInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorruption, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeMemoryLimit:
		return SeverityWarning
	case ErrCodeBuildCancelled:
		return SeverityInfo
	}
	return SeverityError
}

// isRecoverableCode reports whether a build can continue past this error.
func isRecoverableCode(code string) bool {
	switch code {
	case ErrCodeFileProcessing, ErrCodeMemoryLimit:
		return true
	default:
		return false
	}
}
