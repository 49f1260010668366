package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/sso-session/pkg/logger"
)

type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	stopped  bool
	closed   bool
	stopChan chan struct{}

	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	failureCount int
}

// New creates a file system watcher.
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.Extension == "" {
		cfg.Extension = ".json"
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	log.Debug("file watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"extension", cfg.Extension)

	return &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		events:         make(chan Event, 100),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}, nil
}

func (w *watcher) Start(ctx context.Context, paths []string) error {
	w.mu.Lock()
	switch {
	case w.closed || w.stopped:
		w.mu.Unlock()
		return ErrWatcherClosed
	case w.running:
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	var dirs []string
	for _, path := range paths {
		expanded := expandHome(path)

		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("watch path does not exist, skipping", "path", expanded)
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", expanded, err)
		}
		if !info.IsDir() {
			w.logger.Warn("watch path is not a directory, skipping", "path", expanded)
			continue
		}

		dirs = append(dirs, expanded)
	}

	if len(dirs) == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return ErrInvalidPath
	}

	for _, dir := range dirs {
		if err := w.addDir(dir); err != nil {
			return fmt.Errorf("failed to add path %s: %w", dir, err)
		}
	}

	w.logger.Info("watcher started", "paths", dirs)

	go w.processEvents(ctx)

	return nil
}

func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false
	w.stopped = true

	w.logger.Info("watcher stopped")
	return nil
}

func (w *watcher) Events() <-chan Event { return w.events }

func (w *watcher) Errors() <-chan error { return w.errors }

func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	close(w.events)
	close(w.errors)

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

func (w *watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), w.config.Extension) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debounce(Event{Path: event.Name, Op: op, Timestamp: time.Now()})
}

// debounce delivers only the last event seen for a path within the
// debounce interval.
func (w *watcher) debounce(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}
	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.debounceMu.Lock()
		if w.debounceTimers != nil {
			delete(w.debounceTimers, event.Path)
		}
		w.debounceMu.Unlock()

		w.mu.RLock()
		defer w.mu.RUnlock()
		if w.closed {
			return
		}
		select {
		case w.events <- event:
		default:
			w.logger.Warn("event channel full, dropping event", "path", event.Path)
		}
	})
}

func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.failureCount++
	if w.failureCount > w.config.CircuitBreakerThreshold {
		return
	}

	w.logger.Error("fsnotify error", "error", err, "failure_count", w.failureCount)

	report := err
	if w.failureCount == w.config.CircuitBreakerThreshold {
		w.logger.Error("circuit breaker opened", "threshold", w.config.CircuitBreakerThreshold)
		report = ErrCircuitBreakerOpen
	}

	select {
	case w.errors <- report:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

func (w *watcher) addDir(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	if !w.config.Recursive {
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() || path == dir {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to add subdirectory", "path", path, "error", addErr)
		}
		return nil
	})
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}
