// Package watcher follows a directory of session config files.
//
// It uses fsnotify to watch for changes, coalesces bursts of writes per file
// and stops reporting fsnotify errors once a circuit breaker opens. Importer
// turns the resulting events into session registry entries.
//
//	w, err := watcher.New(watcher.Config{}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{"~/.config/sso-session/sessions"}); err != nil {
//	    log.Fatal(err)
//	}
//	for event := range w.Events() {
//	    fmt.Println(event.Op, event.Path)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event represents a change to a session config file.
type Event struct {
	// Path is the file that changed.
	Path string

	Op Op

	Timestamp time.Time
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start begins watching the given directories and returns once the
	// watches are installed. Missing directories are skipped; if none
	// remain Start returns ErrInvalidPath.
	Start(ctx context.Context, paths []string) error

	// Stop ends event processing. The watcher cannot be restarted.
	Stop() error

	// Events returns debounced file events. Closed by Close.
	Events() <-chan Event

	// Errors returns non-fatal watcher errors. Closed by Close.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval coalesces events for the same file (default: 100ms).
	DebounceInterval time.Duration

	// Extension selects which files are reported (default: ".json").
	Extension string

	// Recursive also watches subdirectories present at Start.
	Recursive bool

	// CircuitBreakerThreshold is the number of fsnotify errors after
	// which only ErrCircuitBreakerOpen is reported (default: 5).
	CircuitBreakerThreshold int
}
