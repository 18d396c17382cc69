// Package editor binds one active note to its codec and autosave schedulers.
//
// A Session moves between Empty, Loading, Active, and Switching. Edits are
// accepted only while Active. Each tracked field (title, body, tags) has its
// own scheduler, created fresh for every opened note; switching notes
// flushes the previous note's pending edits before the next note loads.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/fastnote/internal/appearance"
	"github.com/hpungsan/fastnote/internal/autosave"
	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/notestore"
)

// State is the session's lifecycle state.
type State int

const (
	Empty State = iota
	Loading
	Active
	Switching
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Active:
		return "active"
	case Switching:
		return "switching"
	}
	return "unknown"
}

// Saver persists a field change. Implementations apply p to the cached note,
// send the resulting full record to the store, and return it.
type Saver interface {
	CommitPatch(ctx context.Context, id note.ID, p notestore.Patch) (note.Note, error)
}

// Options configures a Session.
type Options struct {
	Store *notestore.Store
	Saver Saver

	// Appearance, if set, is observed for light/dark changes.
	Appearance appearance.Source

	// OnThemeChange runs after each effective appearance change.
	OnThemeChange func(appearance.Mode)

	TitleDelay   time.Duration
	ContentDelay time.Duration
	SceneDelay   time.Duration

	// Context is used for commits. Defaults to context.Background().
	Context context.Context

	Logger *slog.Logger
}

// fields holds one scheduler per tracked field of the active note.
type fields struct {
	title *autosave.Scheduler[string]
	body  *autosave.Scheduler[codec.Document]
	tags  *autosave.Scheduler[string]
}

func newFields(logger *slog.Logger) *fields {
	return &fields{
		title: autosave.New[string]("title", logger),
		body:  autosave.New[codec.Document]("body", logger),
		tags:  autosave.New[string]("tags", logger),
	}
}

func (f *fields) flush() bool {
	t := f.title.Flush()
	b := f.body.Flush()
	g := f.tags.Flush()
	return t || b || g
}

func (f *fields) cancel() {
	f.title.Cancel()
	f.body.Cancel()
	f.tags.Cancel()
}

func (f *fields) pending() bool {
	return f.title.Pending() || f.body.Pending() || f.tags.Pending()
}

func (f *fields) wait() {
	f.title.Wait()
	f.body.Wait()
	f.tags.Wait()
}

// Session is the editor for one note at a time. It is safe for concurrent use.
type Session struct {
	opts   Options
	logger *slog.Logger

	lifecycle sync.Mutex // serializes Open, Close, Flush, Shutdown

	mu       sync.Mutex
	state    State
	activeID note.ID
	codec    codec.Codec
	title    string
	doc      codec.Document
	tags     string
	fields   *fields
	theme    appearance.Mode
	unwatch  func()
	shutdown bool
}

// New creates a session in the Empty state.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	s := &Session{opts: opts, logger: opts.Logger, theme: appearance.Light}

	if opts.Appearance != nil {
		s.theme = opts.Appearance.Mode()
		s.unwatch = opts.Appearance.Subscribe(s.onAppearance)
	}
	return s
}

// Open makes id the active note. Pending edits of the previously active
// note are committed first.
func (s *Session) Open(id note.ID) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return errors.NewNotActive("shutdown")
	}
	prev := s.fields
	prevID := s.activeID
	if s.state == Active {
		s.state = Switching
	} else {
		s.state = Loading
	}
	s.mu.Unlock()

	if prev != nil {
		if prev.flush() {
			s.logger.Debug("flushed pending edits before switch", "from", prevID, "to", id)
		}
	}

	n, ok := s.opts.Store.Get(id)
	if !ok {
		s.reset()
		return errors.NewNotFound(id.String())
	}
	c, err := codec.ForType(n.Type, s.logger)
	if err != nil {
		s.reset()
		return errors.NewInvalidRequest(err.Error())
	}
	doc := c.Decode(n.Content)

	s.mu.Lock()
	s.activeID = n.ID
	s.codec = c
	s.title = n.Title
	s.doc = doc
	s.tags = n.Tags
	s.fields = newFields(s.logger)
	s.state = Active
	s.mu.Unlock()

	s.logger.Debug("note opened", "id", n.ID, "type", n.Type)
	return nil
}

// Close clears the active note. Pending edits are discarded.
func (s *Session) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.reset()
}

// CloseIfActive closes the session when id is the active note, as after a
// delete. Reports whether it did.
func (s *Session) CloseIfActive(id note.ID) bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	active := s.activeID == id && s.state != Empty
	s.mu.Unlock()
	if active {
		s.reset()
	}
	return active
}

func (s *Session) reset() {
	s.mu.Lock()
	f := s.fields
	s.state = Empty
	s.activeID = ""
	s.codec = nil
	s.title = ""
	s.doc = codec.Document{}
	s.tags = ""
	s.fields = nil
	s.mu.Unlock()

	if f != nil {
		f.cancel()
	}
}

// Flush commits all pending edits now. Reports whether anything was pending.
func (s *Session) Flush() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	f := s.fields
	s.mu.Unlock()
	if f == nil {
		return false
	}
	return f.flush()
}

// Shutdown flushes pending edits, releases the appearance subscription, and
// leaves the session Empty. Further Opens fail.
func (s *Session) Shutdown() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	f := s.fields
	unwatch := s.unwatch
	s.unwatch = nil
	s.shutdown = true
	s.mu.Unlock()

	if f != nil {
		f.flush()
	}
	if unwatch != nil {
		unwatch()
	}
	s.reset()
}

// Wait blocks until no commit is running for the active note.
func (s *Session) Wait() {
	s.mu.Lock()
	f := s.fields
	s.mu.Unlock()
	if f != nil {
		f.wait()
	}
}

// EditTitle records a title edit.
func (s *Session) EditTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if title == s.title {
		return nil
	}
	s.title = title

	id := s.activeID
	s.fields.title.Schedule(title, func(v string) {
		s.commit(id, notestore.Patch{Title: &v})
	}, s.opts.TitleDelay)
	return nil
}

// EditText records a body edit of a text note.
func (s *Session) EditText(text string) error {
	return s.editBody(codec.TextDocument(text), s.opts.ContentDelay)
}

// EditScene records a canvas change of a scene note.
func (s *Session) EditScene(scene codec.SceneDocument) error {
	return s.editBody(codec.NewSceneDocument(scene.Clone()), s.opts.SceneDelay)
}

func (s *Session) editBody(doc codec.Document, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	if doc.Kind != s.doc.Kind {
		return errors.NewInvalidRequest("cannot apply a " + string(doc.Kind) + " edit to a " + string(s.doc.Kind) + " note")
	}
	if codec.Equal(doc, s.doc) {
		return nil
	}
	s.doc = doc

	id, c := s.activeID, s.codec
	s.fields.body.Schedule(doc, func(d codec.Document) {
		content, err := c.Encode(d)
		if err != nil {
			s.logger.Error("encode failed, edit dropped", "id", id, "error", err)
			return
		}
		s.commit(id, notestore.Patch{Content: &content})
	}, delay)
	return nil
}

// EditTags records a change of the tag set.
func (s *Session) EditTags(tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveLocked(); err != nil {
		return err
	}
	wire := note.JoinTags(tags)
	if wire == s.tags {
		return nil
	}
	s.tags = wire

	id := s.activeID
	s.fields.tags.Schedule(wire, func(v string) {
		s.commit(id, notestore.Patch{Tags: &v})
	}, s.opts.TitleDelay)
	return nil
}

// commit runs on a scheduler goroutine (or inside Flush). Failures are
// reported by the Saver; here they are only logged.
func (s *Session) commit(id note.ID, p notestore.Patch) {
	if _, err := s.opts.Saver.CommitPatch(s.opts.Context, id, p); err != nil {
		s.logger.Warn("autosave commit failed", "id", id, "code", errors.CodeOf(err), "error", err)
	}
}

func (s *Session) requireActiveLocked() error {
	if s.state != Active {
		return errors.NewNotActive(s.state.String())
	}
	return nil
}

func (s *Session) onAppearance(m appearance.Mode) {
	s.mu.Lock()
	changed := s.theme != m
	s.theme = m
	s.mu.Unlock()

	if changed && s.opts.OnThemeChange != nil {
		s.opts.OnThemeChange(m)
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveID returns the active note's id, or "".
func (s *Session) ActiveID() note.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Title returns the title as currently edited.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Tags returns the tags as currently edited.
func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return note.SplitTags(s.tags)
}

// Document returns the document as currently edited.
func (s *Session) Document() codec.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	if doc.Kind == note.TypeScene {
		doc.Scene = doc.Scene.Clone()
	}
	return doc
}

// Pending reports whether any field has an uncommitted edit.
func (s *Session) Pending() bool {
	s.mu.Lock()
	f := s.fields
	s.mu.Unlock()
	return f != nil && f.pending()
}

// Theme returns the current display mode.
func (s *Session) Theme() appearance.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}
