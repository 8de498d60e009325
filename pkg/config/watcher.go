package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault coalesces bursts of write events into a single reload.
const debounceDefault = 200 * time.Millisecond

// Watcher reloads the configuration file on change and hands each valid new
// Config to the registered callback. Invalid intermediate states (editors
// often write files in multiple steps) are skipped silently.
type Watcher struct {
	path     string
	onChange func(Config)
	debounce time.Duration
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine for every successfully parsed reload.
func NewWatcher(path string, onChange func(Config)) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config: watch path is empty")
	}
	if onChange == nil {
		return nil, fmt.Errorf("config: onChange callback is nil")
	}
	return &Watcher{path: path, onChange: onChange, debounce: debounceDefault}, nil
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("config: watch %q: %w", w.path, err)
	}

	var debounce *time.Timer
	var fired <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Stop()
				debounce.Reset(w.debounce)
			}
			fired = debounce.C

		case <-fired:
			fired = nil
			cfg, err := Load(w.path)
			if err != nil {
				continue
			}
			w.onChange(cfg)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
