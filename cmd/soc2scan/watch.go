package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long to wait after the last filesystem event
// before triggering a re-scan, collapsing a save-everything editor
// operation into a single run instead of one per touched file.
const watchDebounce = 500 * time.Millisecond

// projectWatcher re-triggers onChange whenever a file changes under
// root, debounced. Grounded on
// processor/source-ingester/watcher.go's DocWatcher: recursive
// fsnotify.Add over every directory, excluding the same names the
// scanner's own walker already skips, with a timer-based debounce
// collecting bursts of events into one trigger.
type projectWatcher struct {
	root     string
	fsw      *fsnotify.Watcher
	onChange func()
}

func newProjectWatcher(root string, onChange func()) (*projectWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	pw := &projectWatcher{root: root, fsw: fsw, onChange: onChange}
	if err := pw.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return pw, nil
}

func (pw *projectWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && (watchSkipDirs[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}
		return pw.fsw.Add(path)
	})
}

// watchSkipDirs mirrors walker's fixed skip set for the directories a
// watch loop should never descend into either.
var watchSkipDirs = map[string]bool{
	"node_modules": true, "venv": true, ".venv": true, "__pycache__": true,
	"dist": true, "build": true, "target": true, "vendor": true,
	"out": true, "coverage": true,
}

// Run blocks, triggering onChange (debounced) on every filesystem
// event, until ctx is canceled.
func (pw *projectWatcher) Run(ctx context.Context) error {
	defer pw.fsw.Close()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-pw.fsw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case _, ok := <-pw.fsw.Events:
			if !ok {
				return nil
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, pw.onChange)
		}
	}
}
