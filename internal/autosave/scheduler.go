// Package autosave provides a debounced commit primitive.
//
// A Scheduler tracks one mutable field. Each Schedule call replaces the
// pending value and restarts the quiet-period timer; when the timer fires,
// the commit function runs once with the latest value. Superseded timers
// never commit.
package autosave

import (
	"log/slog"
	"sync"
	"time"
)

// Scheduler debounces commits of a single field. The zero value is not
// usable; call New.
//
// Commits never overlap: the timer path and Flush share one commit lock.
// A commit function must not call Flush or Wait on its own scheduler.
type Scheduler[T any] struct {
	name   string
	logger *slog.Logger

	commitMu sync.Mutex // held while a commit runs

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // bumped on every Schedule, Cancel, and Flush
	pending bool
	value   T
	commit  func(T)
}

// New creates a scheduler. Name appears in log lines only.
func New[T any](name string, logger *slog.Logger) *Scheduler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler[T]{name: name, logger: logger}
}

// Schedule records value as the pending value and (re)starts the timer.
// Any previously pending timer is cancelled and will not commit.
func (s *Scheduler[T]) Schedule(value T, commit func(T), delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.value = value
	s.commit = commit
	s.pending = true
	s.timer = time.AfterFunc(delay, func() { s.fire(gen) })
}

// Cancel discards the pending value without committing it.
func (s *Scheduler[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.clearLocked()
}

// Flush commits the pending value immediately, bypassing the timer.
// It blocks until any in-flight commit and its own commit have finished.
// Returns false when nothing was pending.
func (s *Scheduler[T]) Flush() bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	value, commit := s.value, s.commit
	s.clearLocked()
	s.mu.Unlock()

	s.run(commit, value)
	return true
}

// Pending reports whether a value is waiting to be committed.
func (s *Scheduler[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until no commit is running. It does not wait for a pending
// timer to fire.
func (s *Scheduler[T]) Wait() {
	s.commitMu.Lock()
	s.commitMu.Unlock()
}

func (s *Scheduler[T]) fire(gen uint64) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || !s.pending {
		// Superseded while waiting for the commit lock.
		s.mu.Unlock()
		return
	}
	value, commit := s.value, s.commit
	s.timer = nil
	s.clearLocked()
	s.mu.Unlock()

	s.run(commit, value)
}

func (s *Scheduler[T]) clearLocked() {
	var zero T
	s.value = zero
	s.commit = nil
	s.pending = false
}

func (s *Scheduler[T]) run(commit func(T), value T) {
	if commit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("autosave commit panicked", "field", s.name, "panic", r)
		}
	}()
	commit(value)
}
