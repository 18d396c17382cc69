package appearance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Source is anything that reports the current mode and notifies on change.
// *Watcher implements it; tests may supply a fake.
type Source interface {
	Mode() Mode
	Subscribe(fn func(Mode)) (unsubscribe func())
}

// Watcher reports effective mode changes of a Preference.
type Watcher struct {
	pref   Preference
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	current Mode
	subs    map[int]func(Mode)
	nextID  int
}

// Watch starts observing pref. Stop the watcher with Close.
func Watch(ctx context.Context, pref Preference, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(pref.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched so write-then-rename replacements are seen.
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		pref:    pref,
		logger:  logger,
		fsw:     fsw,
		cancel:  cancel,
		done:    make(chan struct{}),
		current: pref.Read(),
		subs:    make(map[int]func(Mode)),
	}
	go w.run(runCtx)
	return w, nil
}

// Mode returns the last observed mode.
func (w *Watcher) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe calls fn after every effective change. The returned function
// releases the subscription and may be called more than once.
func (w *Watcher) Subscribe(fn func(Mode)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Refresh re-reads the preference and notifies subscribers if it changed.
func (w *Watcher) Refresh() {
	next := w.pref.Read()

	w.mu.Lock()
	if next == w.current {
		w.mu.Unlock()
		return
	}
	w.current = next
	fns := make([]func(Mode), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	w.logger.Debug("appearance changed", "mode", next)
	for _, fn := range fns {
		fn(next)
	}
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	name := filepath.Base(w.pref.Path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.Refresh()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}
