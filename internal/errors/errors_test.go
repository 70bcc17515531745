package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk gone")

	// When: wrapping it
	ie := New(ErrCodeStorage, "write index", originalErr)

	// Then: the chain is preserved
	require.NotNil(t, ie)
	assert.Equal(t, originalErr, errors.Unwrap(ie))
	assert.True(t, errors.Is(ie, originalErr))
}

func TestIndexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigInvalid, "batch_size must be positive", "[ERR_101_CONFIG_INVALID] batch_size must be positive"},
		{"file", ErrCodeFileProcessing, "bad json", "[ERR_201_FILE_PROCESSING] bad json"},
		{"corruption", ErrCodeIndexCorruption, "empty index", "[ERR_203_INDEX_CORRUPTION] empty index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestNew_DerivesKindCategorySeverity(t *testing.T) {
	tests := []struct {
		code        string
		kind        Kind
		category    Category
		severity    Severity
		recoverable bool
	}{
		{ErrCodeConfigInvalid, KindInvalidConfiguration, CategoryConfig, SeverityFatal, false},
		{ErrCodeFileProcessing, KindFileProcessing, CategoryIO, SeverityError, true},
		{ErrCodePermissionDenied, KindPermissionDenied, CategoryIO, SeverityError, false},
		{ErrCodeIndexCorruption, KindIndexCorruption, CategoryIO, SeverityFatal, false},
		{ErrCodeStorage, KindStorage, CategoryIO, SeverityError, false},
		{ErrCodeMemoryLimit, KindMemoryLimitExceeded, CategoryResource, SeverityWarning, true},
		{ErrCodeBuildCancelled, KindBuildCancelled, CategoryBuild, SeverityInfo, false},
		{ErrCodeInternal, KindInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ie := New(tt.code, "msg", nil)
			assert.Equal(t, tt.kind, ie.Kind)
			assert.Equal(t, tt.category, ie.Category)
			assert.Equal(t, tt.severity, ie.Severity)
			assert.Equal(t, tt.recoverable, ie.Recoverable)
		})
	}
}

func TestIndexError_Is_MatchesByCode(t *testing.T) {
	a := Corruption("dangling posting", nil)
	b := New(ErrCodeIndexCorruption, "other message", nil)
	c := New(ErrCodeStorage, "other", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestKindOf_WalksWrappedChain(t *testing.T) {
	// Given: an IndexError wrapped by fmt.Errorf
	inner := FileProcessing("/tmp/a.json", "parse failed", nil)
	outer := fmt.Errorf("build notes: %w", inner)

	// Then: helpers see through the wrapper
	assert.Equal(t, KindFileProcessing, KindOf(outer))
	assert.True(t, IsKind(outer, KindFileProcessing))
	assert.True(t, IsRecoverable(outer))
	assert.Equal(t, ErrCodeFileProcessing, GetCode(outer))
}

func TestKindOf_ForeignError(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.False(t, IsKind(nil, KindInternal))
	assert.False(t, IsFatal(err))
	assert.Empty(t, GetCode(err))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_SetDetails(t *testing.T) {
	assert.Equal(t, "/a.md", FileProcessing("/a.md", "x", nil).Details["path"])
	assert.Equal(t, "/b", Permission("/b", nil).Details["path"])
	assert.Equal(t, "abc", Cancelled("abc").Details["build_id"])
	assert.NotEmpty(t, Corruption("x", nil).Suggestion)
	assert.True(t, IsFatal(InvalidConfig("bad")))
}

func TestFormatForCLI(t *testing.T) {
	out := FormatForCLI(FileProcessing("/notes/a.md", "cannot read", nil))

	assert.Contains(t, out, "Error: cannot read")
	assert.Contains(t, out, "File: /notes/a.md")
	assert.Contains(t, out, "Code: ERR_201_FILE_PROCESSING")

	assert.Contains(t, FormatForCLI(errors.New("boom")), "ERR_501_INTERNAL")
	assert.Empty(t, FormatForCLI(nil))
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(Storage("rename failed", errors.New("EXDEV")).WithDetail("tool", "notes"))

	keys := make(map[string]string)
	for _, a := range attrs {
		keys[a.Key] = a.Value.String()
	}
	assert.Equal(t, ErrCodeStorage, keys["error_code"])
	assert.Equal(t, "EXDEV", keys["cause"])
	assert.Equal(t, "notes", keys["detail_tool"])

	plain := LogAttrs(errors.New("x"))
	require.Len(t, plain, 1)
	assert.Equal(t, "error", plain[0].Key)
	assert.Equal(t, slog.KindString, plain[0].Value.Kind())
	assert.Equal(t, "x", plain[0].Value.String())
	assert.Nil(t, LogAttrs(nil))
}
