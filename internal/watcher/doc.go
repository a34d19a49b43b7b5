// Package watcher provides real-time file system watching with automatic
// debouncing. Not yet wired into the indexing pipeline (index_project
// rejects watch=true with a typed error); kept as a ready-to-use building
// block for a future auto-reindex feature.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	w, err := watcher.NewFsWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	// Start blocks until ctx is cancelled or Stop is called.
//	go func() { _ = w.Start(ctx, "/path/to/project") }()
//
//	for event := range w.Events() {
//	    switch event.Operation {
//	    case watcher.OpCreate:
//	        // Handle file creation
//	    case watcher.OpModify:
//	        // Handle file modification
//	    case watcher.OpDelete:
//	        // Handle file deletion
//	    }
//	}
package watcher
