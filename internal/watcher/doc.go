// Package watcher watches a project's content directory and emits
// debounced batches of content file events tagged with their tool type.
//
// fsnotify is used when available; a polling watcher is the fallback for
// filesystems where it fails (network mounts, some container volumes).
//
// Usage:
//
//	w, err := watcher.NewContentWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, filepath.Join(project, "content")) }()
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Tool, ev.Operation, ev.Path
//	    }
//	}
package watcher
