package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/photo-tidy/internal/util"
)

// watchSettleDelay is how long the tree must stay quiet before a rescan.
// Cameras and sync clients write media in bursts; rescanning per event would
// fingerprint half-written files.
const watchSettleDelay = 5 * time.Second

// Watch monitors the source tree and calls onChange after each burst of
// filesystem activity settles. It blocks until ctx is cancelled. Directories
// created while watching are added to the watch set.
func Watch(ctx context.Context, sourcePath string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch every directory in the tree; fsnotify is not recursive
	err = filepath.WalkDir(sourcePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", sourcePath, err)
	}

	util.InfoLog("Watching %s for changes", sourcePath)

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						util.WarnLog("Failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if _, ok := KindForPath(event.Name); !ok {
				continue
			}

			util.DebugLog("Change detected: %s %s", event.Op, event.Name)
			if settle == nil {
				settle = time.NewTimer(watchSettleDelay)
				settleC = settle.C
			} else {
				settle.Reset(watchSettleDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.WarnLog("Watcher error: %v", err)

		case <-settleC:
			settle = nil
			settleC = nil
			onChange()
		}
	}
}
