package ui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/scribeindex/internal/builder"
)

func TestProgressTracker_ApplySwitchesPhase(t *testing.T) {
	// Given: a tracker mid-processing
	tr := NewProgressTracker()
	tr.Apply(ProgressEvent{Tool: "notes", Phase: builder.PhaseProcessingContent, Current: 5, Total: 10, CurrentFile: "a.md"})

	s := tr.Stats()
	assert.Equal(t, "notes", s.Tool)
	assert.Equal(t, 5, s.Current)
	assert.InDelta(t, 0.5, s.Progress, 1e-9)
	assert.Equal(t, "a.md", s.CurrentFile)

	// When: the next phase arrives
	tr.Apply(ProgressEvent{Tool: "notes", Phase: builder.PhaseOptimizing})

	// Then: per-phase counters reset
	s = tr.Stats()
	assert.Equal(t, builder.PhaseOptimizing, s.Phase)
	assert.Equal(t, 0, s.Current)
	assert.Equal(t, 0, s.Total)
	assert.Empty(t, s.CurrentFile)
}

func TestProgressTracker_ProgressCapsAtOne(t *testing.T) {
	tr := NewProgressTracker()
	tr.SetPhase("notes", builder.PhaseProcessingContent, 2)

	tr.Update(5, 0, "")

	assert.InDelta(t, 1.0, tr.Stats().Progress, 1e-9)
	assert.Zero(t, tr.Stats().ETA)
}

func TestProgressTracker_ErrorsAndWarnings(t *testing.T) {
	tr := NewProgressTracker()

	tr.AddError(ErrorEvent{File: "a"})
	tr.AddError(ErrorEvent{File: "b", IsWarn: true})
	tr.AddError(ErrorEvent{File: "c", IsWarn: true})

	s := tr.Stats()
	assert.Equal(t, 1, s.ErrorCount)
	assert.Equal(t, 2, s.WarnCount)
	assert.Len(t, tr.Errors(), 1)
	assert.Len(t, tr.Warnings(), 2)
}

func TestProgressTracker_ETAPositiveMidPhase(t *testing.T) {
	tr := NewProgressTracker()
	tr.SetPhase("notes", builder.PhaseProcessingContent, 100)
	time.Sleep(20 * time.Millisecond)

	tr.Update(10, 0, "")

	assert.Positive(t, tr.Stats().ETA)
}

func TestSparkline_Render(t *testing.T) {
	s := NewSparkline(5)
	assert.Equal(t, strings.Repeat("▁", 5), s.Render())

	s.Add(1)
	s.Add(8)
	out := s.Render()

	assert.Equal(t, 5, utf8.RuneCountInString(out))
	assert.True(t, strings.HasPrefix(out, "▁█"))
	assert.True(t, strings.HasSuffix(out, "   "))
}

func TestSparkline_WrapsAndNarrows(t *testing.T) {
	s := NewSparkline(3)
	for _, v := range []float64{1, 2, 3, 4} {
		s.Add(v)
	}

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, 2, utf8.RuneCountInString(s.RenderWithWidth(2)))
	assert.True(t, strings.HasSuffix(s.RenderWithWidth(2), "█"))

	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0.0, s.Max())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestTruncateFilePath(t *testing.T) {
	assert.Equal(t, "short.md", truncateFilePath("short.md", 20))
	got := truncateFilePath("chapter/one/two/three/note.md", 20)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasSuffix(got, "/note.md"))
	assert.True(t, strings.HasPrefix(got, "..."))
}
