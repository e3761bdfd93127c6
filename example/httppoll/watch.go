package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ngicks/varpoll"
)

// watchConfig calls onChange after path is written, created or renamed over,
// once the events have been quiet for debounce. It returns when ctx is done.
func watchConfig(ctx context.Context, path string, debounce time.Duration, logger varpoll.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, onChange)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(err, "path", path)
		}
	}
}
