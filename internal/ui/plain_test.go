package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/scribeindex/internal/builder"
)

func TestPlainRenderer_UpdateProgress(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{
			name:  "with total",
			event: ProgressEvent{Tool: "notes", Phase: builder.PhaseProcessingContent, Current: 3, Total: 10, CurrentFile: "chapter/one.md"},
			want:  "[PROCESS] notes 3/10 - chapter/one.md\n",
		},
		{
			name:  "message wins over file",
			event: ProgressEvent{Tool: "notes", Phase: builder.PhaseScanningFiles, Message: "scanning_files", CurrentFile: "x"},
			want:  "[SCAN] notes scanning_files\n",
		},
		{
			name:  "nothing to say",
			event: ProgressEvent{Tool: "notes", Phase: builder.PhaseScanningFiles},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewPlainRenderer(NewConfig(&buf))

			r.UpdateProgress(tt.event)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_AddError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.AddError(ErrorEvent{Tool: "notes", File: "bad.json", Err: errors.New("unexpected end")})
	r.AddError(ErrorEvent{Tool: "notes", Err: errors.New("no documents"), IsWarn: true})

	assert.Equal(t, "ERROR: notes: bad.json: unexpected end\nWARN: notes: no documents\n", buf.String())
}

func TestPlainRenderer_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	require.NoError(t, r.Start(context.Background()))
	r.Complete(CompletionStats{Tools: 2, Failed: 1, Files: 5, Documents: 4, Duration: 1500 * time.Millisecond, Errors: 1, Warnings: 2})
	require.NoError(t, r.Stop())

	assert.Equal(t, "Complete: 4 documents from 5 files across 2 tools in 2s, 1 failed (1 errors, 2 warnings)\n", buf.String())
}
