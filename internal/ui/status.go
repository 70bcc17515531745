package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// LastBuild summarizes the most recent recorded build of a tool.
type LastBuild struct {
	BuildID   string        `json:"build_id"`
	Operation string        `json:"operation"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Errors    int           `json:"errors"`
	Warnings  int           `json:"warnings"`
	CreatedAt time.Time     `json:"created_at"`
}

// StatusInfo describes the persisted index of one tool.
type StatusInfo struct {
	Tool        string     `json:"tool"`
	Exists      bool       `json:"exists"`
	Documents   int        `json:"documents"`
	Terms       int        `json:"terms"`
	Postings    int        `json:"postings"`
	SizeBytes   int64      `json:"size_bytes"`
	LastUpdated time.Time  `json:"last_updated"`
	Backups     int        `json:"backups"`
	LastBuild   *LastBuild `json:"last_build,omitempty"`
}

// StatusRenderer prints index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render prints info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index: "+info.Tool))

	if !info.Exists {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Warning.Render("not built"))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Documents:    %d\n", info.Documents)
		_, _ = fmt.Fprintf(r.out, "  Terms:        %d\n", info.Terms)
		_, _ = fmt.Fprintf(r.out, "  Postings:     %d\n", info.Postings)
		_, _ = fmt.Fprintf(r.out, "  Size:         %s\n", FormatBytes(info.SizeBytes))
		if !info.LastUpdated.IsZero() {
			_, _ = fmt.Fprintf(r.out, "  Last updated: %s\n", formatTime(info.LastUpdated))
		}
		_, _ = fmt.Fprintf(r.out, "  Backups:      %d\n", info.Backups)
	}

	if b := info.LastBuild; b != nil {
		status := r.styles.Success.Render("success")
		if !b.Success {
			status = r.styles.Error.Render("failed")
		}
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "  Last build:")
		_, _ = fmt.Fprintf(r.out, "    Operation: %s (%s)\n", b.Operation, status)
		_, _ = fmt.Fprintf(r.out, "    Duration:  %s\n", formatDuration(b.Duration))
		_, _ = fmt.Fprintf(r.out, "    When:      %s\n", formatTime(b.CreatedAt))
		if b.Errors > 0 || b.Warnings > 0 {
			_, _ = fmt.Fprintf(r.out, "    Issues:    %d errors, %d warnings\n", b.Errors, b.Warnings)
		}
	}
	return nil
}

// RenderJSON prints info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// formatTime formats t relative to now, falling back to a date after a week.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats a byte count using binary units.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
