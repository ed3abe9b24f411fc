// Package watch re-applies the remembered selection whenever one of the
// configuration documents changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events an editor produces on save
const DefaultDebounce = 250 * time.Millisecond

// ApplyFunc rebuilds and applies the environment
type ApplyFunc func() error

// Options configures a Watcher
type Options struct {
	// Dir is the directory holding the watched files
	Dir string
	// Files are base names inside Dir; events for other files are ignored
	Files []string
	// Apply runs after a change settles
	Apply ApplyFunc
	// Debounce defaults to DefaultDebounce
	Debounce time.Duration
	// OnApply, when set, receives the outcome of every apply
	OnApply func(error)
	Logger  *zerolog.Logger
}

// Watcher watches a directory and serializes applies
type Watcher struct {
	opts   Options
	files  map[string]bool
	logger zerolog.Logger

	applyMu    sync.Mutex
	debounceMu sync.Mutex
	debouncer  *time.Timer
	// timers counts debounce timers that are scheduled or running
	timers  sync.WaitGroup
	stopped atomic.Bool
}

// New creates a Watcher
func New(opts Options) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if opts.Apply == nil {
		return nil, errors.New("apply function is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	files := make(map[string]bool, len(opts.Files))
	for _, f := range opts.Files {
		files[f] = true
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Watcher{
		opts:   opts,
		files:  files,
		logger: logger.With().Str("component", "watch").Logger(),
	}, nil
}

// Run blocks until ctx is cancelled. Apply errors are logged and reported
// through OnApply; they never stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so the directory is watched rather
	// than the files themselves.
	if err := watcher.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.opts.Dir, err)
	}
	w.logger.Info().Str("dir", w.opts.Dir).Strs("files", w.opts.Files).Msg("watching configuration")

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
				w.schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		case <-hup:
			w.logger.Info().Msg("received SIGHUP, re-applying")
			w.Trigger()
		case <-ctx.Done():
			w.stopped.Store(true)
			w.cancelPending()
			w.timers.Wait()
			w.applyMu.Lock() // wait for an in-flight Trigger
			w.applyMu.Unlock()
			return nil
		}
	}
}

// Trigger applies immediately, bypassing the debounce
func (w *Watcher) Trigger() {
	w.cancelPending()
	w.apply()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if len(w.files) == 0 {
		return true
	}
	return w.files[filepath.Base(event.Name)]
}

func (w *Watcher) schedule() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	w.stopTimer()
	w.timers.Add(1)
	w.debouncer = time.AfterFunc(w.opts.Debounce, func() {
		defer w.timers.Done()
		w.applyMu.Lock()
		defer w.applyMu.Unlock()
		if w.stopped.Load() {
			return
		}
		w.runApply()
	})
}

func (w *Watcher) cancelPending() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	w.stopTimer()
	w.debouncer = nil
}

// stopTimer stops the pending timer; debounceMu must be held
func (w *Watcher) stopTimer() {
	if w.debouncer != nil && w.debouncer.Stop() {
		w.timers.Done()
	}
}

func (w *Watcher) apply() {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()
	w.runApply()
}

// runApply calls Apply and reports the outcome; applyMu must be held
func (w *Watcher) runApply() {
	err := w.opts.Apply()
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to apply configuration")
	} else {
		w.logger.Info().Msg("configuration applied")
	}
	if w.opts.OnApply != nil {
		w.opts.OnApply(err)
	}
}
