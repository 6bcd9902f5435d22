// Package watcher watches manifest directories and reports, after a debounce
// window, which manifest files were created or written.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/fsutil"
)

// DefaultDebounce is used when Config.Debounce is not set.
const DefaultDebounce = 500 * time.Millisecond

// Config holds watcher configuration options.
type Config struct {
	// Paths are directories (watched recursively) or single files.
	Paths      []string
	Extensions []string
	Debounce   time.Duration
}

// Watcher monitors manifest paths for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	changes   chan []string
	done      chan struct{}
}

// New creates a new manifest watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		changes:   make(chan []string),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel receives the sorted paths of
// changed manifests once no further change arrived for the debounce window.
// It is closed when the watcher stops.
func (w *Watcher) Start(ctx context.Context) (<-chan []string, error) {
	for _, p := range w.cfg.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
		if !info.IsDir() {
			p = filepath.Dir(p)
		}
		if err := w.addRecursive(p); err != nil {
			return nil, err
		}
	}

	go w.loop(ctx)
	return w.changes, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

// loop processes file system events with debouncing.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.changes)
	logger := ctxlog.FromContext(ctx)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			logger.Debug("Manifest change detected.", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})

			select {
			case w.changes <- batch:
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)

		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// isRelevantEvent reports whether the event is a write or create of a
// manifest file.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return fsutil.HasExtension(event.Name, w.cfg.Extensions...)
}
