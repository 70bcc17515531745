package ui

import (
	"errors"
	"sync"

	"github.com/Aman-CERP/scribeindex/internal/builder"
)

// Bridge adapts a Renderer to the orchestrator's progress callback.
// Errors and warnings are forwarded once each as they accumulate on a
// build's progress record.
func Bridge(r Renderer) builder.ProgressReporter {
	var (
		mu   sync.Mutex
		seen = make(map[string][2]int)
	)

	return func(p builder.BuildProgress) {
		mu.Lock()
		counts := seen[p.BuildID]
		newErrs := p.Errors[min(counts[0], len(p.Errors)):]
		newWarns := p.Warnings[min(counts[1], len(p.Warnings)):]
		if p.Phase.Terminal() {
			delete(seen, p.BuildID)
		} else {
			seen[p.BuildID] = [2]int{len(p.Errors), len(p.Warnings)}
		}
		mu.Unlock()

		for _, e := range newErrs {
			r.AddError(ErrorEvent{Tool: p.ToolType, File: e.FilePath, Err: errors.New(e.Message)})
		}
		for _, w := range newWarns {
			r.AddError(ErrorEvent{Tool: p.ToolType, Err: errors.New(w), IsWarn: true})
		}

		ev := ProgressEvent{
			Tool:        p.ToolType,
			Phase:       p.Phase,
			Current:     p.ProcessedItems,
			Total:       p.TotalItems,
			CurrentFile: p.CurrentFile,
		}
		if p.Phase != builder.PhaseProcessingContent {
			ev.Current, ev.Total = 0, 0
			ev.Message = p.Phase.String()
		}
		r.UpdateProgress(ev)
	}
}
