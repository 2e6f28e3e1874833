// Package watcher reports changes to a fixed set of files.
//
// fsnotify is used when available, watching each file's parent directory so
// that editors that replace files by rename are still observed. When fsnotify
// cannot be initialised the watcher falls back to polling file size and
// modification time. Events are debounced and delivered in batches.
//
//	w, err := watcher.New(watcher.DefaultOptions(), "fixture.yaml")
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Run(ctx) }()
//	for batch := range w.Events() {
//	    // reload
//	}
package watcher
