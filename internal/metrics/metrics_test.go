package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFinished_Success(t *testing.T) {
	// Given a recorder with one build running
	r := New()
	r.BuildStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActiveBuilds))

	// When it finishes successfully
	r.BuildFinished(BuildOutcome{
		Tool: "notes", Operation: "build_tool_index", Success: true,
		Duration: 200 * time.Millisecond, Files: 4, Errors: 1, Documents: 3, SizeBytes: 1024,
	})

	// Then counters and gauges reflect it
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveBuilds))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BuildsTotal.WithLabelValues("notes", "build_tool_index", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.FilesProcessed.WithLabelValues("notes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FileErrors.WithLabelValues("notes")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.DocumentsIndexed.WithLabelValues("notes")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(r.IndexSizeBytes.WithLabelValues("notes")))
}

func TestBuildFinished_FailureKeepsGauges(t *testing.T) {
	r := New()
	r.BuildStarted()
	r.BuildFinished(BuildOutcome{Tool: "plot", Operation: "build_tool_index", Success: true, Documents: 5})
	r.BuildStarted()

	r.BuildFinished(BuildOutcome{Tool: "plot", Operation: "rebuild_index", Success: false, Documents: 0})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.BuildsTotal.WithLabelValues("plot", "rebuild_index", "failure")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.DocumentsIndexed.WithLabelValues("plot")))
}

func TestCacheLookup(t *testing.T) {
	r := New()

	r.CacheLookup(true)
	r.CacheLookup(true)
	r.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ContentCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ContentCache.WithLabelValues("miss")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	r := New()
	r.BuildStarted()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scribeindex_active_builds 1")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.BuildStarted()
		r.BuildFinished(BuildOutcome{Tool: "notes"})
		r.CacheLookup(true)
	})
	assert.Nil(t, r.Registry())
	assert.NotNil(t, r.Handler())
}

func TestNew_Independent(t *testing.T) {
	a := New()
	b := New()

	a.BuildStarted()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ActiveBuilds))
}
