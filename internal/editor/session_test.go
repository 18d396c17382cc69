package editor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/appearance"
	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/notestore"
)

const delay = 30 * time.Millisecond

// recordingSaver applies patches to the store and records what would be sent.
type recordingSaver struct {
	store *notestore.Store

	mu     sync.Mutex
	sent   []note.Note
	events *[]string
	err    error
}

func (r *recordingSaver) CommitPatch(_ context.Context, id note.ID, p notestore.Patch) (note.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.store.Patch(id, p)
	if !ok {
		return note.Note{}, errors.NewNotFound(id.String())
	}
	r.sent = append(r.sent, n)
	if r.events != nil {
		*r.events = append(*r.events, "commit:"+n.ID.String()+":"+n.Title)
	}
	return n, r.err
}

func (r *recordingSaver) calls() []note.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]note.Note(nil), r.sent...)
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setup(t *testing.T) (*Session, *notestore.Store, *recordingSaver) {
	t.Helper()
	store := notestore.New()
	store.ReplaceAll([]note.Note{
		{ID: "2", Title: "Sketch", Type: note.TypeScene, Content: `{"elements":[{"id":"e1"}],"appState":{"collaborators":[{"id":"stale"}]}}`},
		{ID: "1", Title: "Draft", Type: note.TypeText, Content: "hello", Tags: "work"},
	})
	saver := &recordingSaver{store: store}
	s := New(Options{
		Store:        store,
		Saver:        saver,
		TitleDelay:   delay,
		ContentDelay: delay,
		SceneDelay:   2 * delay,
		Logger:       quiet(),
	})
	t.Cleanup(s.Shutdown)
	return s, store, saver
}

func TestOpen_LoadsFieldsThroughCodec(t *testing.T) {
	s, _, _ := setup(t)
	assert.Equal(t, Empty, s.State())

	require.NoError(t, s.Open("1"))
	assert.Equal(t, Active, s.State())
	assert.Equal(t, note.ID("1"), s.ActiveID())
	assert.Equal(t, "Draft", s.Title())
	assert.Equal(t, []string{"work"}, s.Tags())
	assert.Equal(t, codec.TextDocument("hello"), s.Document())

	require.NoError(t, s.Open("2"))
	doc := s.Document()
	assert.Equal(t, note.TypeScene, doc.Kind)
	assert.Len(t, doc.Scene.Elements, 1)
	assert.Equal(t, `[]`, string(doc.Scene.Collaborators()))
}

func TestOpen_UnknownNote(t *testing.T) {
	s, _, _ := setup(t)
	err := s.Open("404")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, Empty, s.State())
}

func TestOpen_UnknownType(t *testing.T) {
	s, store, _ := setup(t)
	store.Prepend(note.Note{ID: "9", Type: "mindmap"})
	err := s.Open("9")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Equal(t, Empty, s.State())
}

func TestEdits_RejectedUnlessActive(t *testing.T) {
	s, _, _ := setup(t)

	for name, edit := range map[string]func() error{
		"title": func() error { return s.EditTitle("x") },
		"text":  func() error { return s.EditText("x") },
		"scene": func() error { return s.EditScene(codec.SceneDocument{}) },
		"tags":  func() error { return s.EditTags([]string{"x"}) },
	} {
		err := edit()
		if !errors.Is(err, errors.ErrNotActive) {
			t.Errorf("%s edit on empty session: got %v, want NOT_ACTIVE", name, err)
		}
	}
}

func TestEditTitle_DebouncesToOneCommit(t *testing.T) {
	s, store, saver := setup(t)
	require.NoError(t, s.Open("1"))

	for _, v := range []string{"D", "Dr", "Dra", "Draf", "Drafted"} {
		require.NoError(t, s.EditTitle(v))
	}

	require.Eventually(t, func() bool { return len(saver.calls()) == 1 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return len(saver.calls()) > 1 }, 3*delay, 5*time.Millisecond)

	sent := saver.calls()[0]
	assert.Equal(t, "Drafted", sent.Title)
	assert.Equal(t, "hello", sent.Content, "unchanged fields are carried in the full record")

	got, _ := store.Get("1")
	assert.Equal(t, "Drafted", got.Title)
}

func TestEditTitle_UnchangedIsElided(t *testing.T) {
	s, _, saver := setup(t)
	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("Draft"))
	assert.False(t, s.Pending())
	require.Never(t, func() bool { return len(saver.calls()) > 0 }, 3*delay, 5*time.Millisecond)
}

func TestEditText_WrongKind(t *testing.T) {
	s, _, _ := setup(t)
	require.NoError(t, s.Open("2"))
	err := s.EditText("markdown into a canvas")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEditScene_SendsSanitizedContent(t *testing.T) {
	s, _, saver := setup(t)
	require.NoError(t, s.Open("2"))

	scene := s.Document().Scene
	scene.Elements = append(scene.Elements, json.RawMessage(`{"id":"e2","type":"ellipse"}`))
	scene.AppState["collaborators"] = json.RawMessage(`[{"id":"live-peer"}]`)
	require.NoError(t, s.EditScene(scene))

	require.Eventually(t, func() bool { return len(saver.calls()) == 1 }, time.Second, 5*time.Millisecond)

	var persisted struct {
		Elements []json.RawMessage         `json:"elements"`
		AppState map[string]json.RawMessage `json:"appState"`
	}
	require.NoError(t, json.Unmarshal([]byte(saver.calls()[0].Content), &persisted))
	assert.Len(t, persisted.Elements, 2)
	assert.Equal(t, `[]`, string(persisted.AppState["collaborators"]))
}

func TestEditScene_PresenceOnlyChangeIsElided(t *testing.T) {
	s, _, saver := setup(t)
	require.NoError(t, s.Open("2"))

	scene := s.Document().Scene
	scene.AppState["collaborators"] = json.RawMessage(`[{"id":"peer"}]`)
	require.NoError(t, s.EditScene(scene))

	assert.False(t, s.Pending())
	require.Never(t, func() bool { return len(saver.calls()) > 0 }, 4*delay, 5*time.Millisecond)
}

func TestEditTags(t *testing.T) {
	s, store, saver := setup(t)
	require.NoError(t, s.Open("1"))

	require.NoError(t, s.EditTags([]string{"work", " home ", "work"}))
	assert.Equal(t, []string{"work", "home"}, s.Tags())

	require.Eventually(t, func() bool { return len(saver.calls()) == 1 }, time.Second, 5*time.Millisecond)
	got, _ := store.Get("1")
	assert.Equal(t, "work,home", got.Tags)
}

func TestFieldsCommitIndependently(t *testing.T) {
	s, store, saver := setup(t)
	require.NoError(t, s.Open("1"))

	require.NoError(t, s.EditText("new body"))
	require.NoError(t, s.EditTitle("New title"))

	require.Eventually(t, func() bool { return len(saver.calls()) == 2 }, time.Second, 5*time.Millisecond)

	got, _ := store.Get("1")
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "new body", got.Content, "a later title commit must not clobber the body")

	last := saver.calls()[1]
	assert.Equal(t, "New title", last.Title)
	assert.Equal(t, "new body", last.Content)
}

func TestSwitch_FlushesPreviousNoteBeforeLoad(t *testing.T) {
	store := notestore.New()
	store.ReplaceAll([]note.Note{
		{ID: "2", Title: "Second", Type: note.TypeText, Content: "two"},
		{ID: "1", Title: "First", Type: note.TypeText, Content: "one"},
	})
	var events []string
	saver := &recordingSaver{store: store, events: &events}
	s := New(Options{Store: store, Saver: saver, TitleDelay: time.Hour, ContentDelay: time.Hour, Logger: quiet()})
	defer s.Shutdown()

	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("First (edited)"))
	require.True(t, s.Pending())

	require.NoError(t, s.Open("2"))
	events = append(events, "loaded:"+s.ActiveID().String()+":"+s.Document().Text)

	assert.Equal(t, []string{
		"commit:1:First (edited)",
		"loaded:2:two",
	}, events)
	assert.False(t, s.Pending())
}

func TestClose_DiscardsPending(t *testing.T) {
	s, _, saver := setup(t)
	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("doomed"))

	s.Close()
	assert.Equal(t, Empty, s.State())
	assert.Empty(t, s.ActiveID())
	require.Never(t, func() bool { return len(saver.calls()) > 0 }, 3*delay, 5*time.Millisecond)

	assert.True(t, errors.Is(s.EditTitle("x"), errors.ErrNotActive))
}

func TestCloseIfActive(t *testing.T) {
	s, _, _ := setup(t)
	require.NoError(t, s.Open("1"))

	assert.False(t, s.CloseIfActive("2"))
	assert.Equal(t, Active, s.State())
	assert.True(t, s.CloseIfActive("1"))
	assert.Equal(t, Empty, s.State())
}

func TestFlush(t *testing.T) {
	s, _, saver := setup(t)
	assert.False(t, s.Flush())

	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditText("flushed"))
	assert.True(t, s.Flush())
	require.Len(t, saver.calls(), 1)
	assert.Equal(t, "flushed", saver.calls()[0].Content)
	assert.False(t, s.Flush())
}

func TestCommitToRemovedNoteIsDropped(t *testing.T) {
	s, store, saver := setup(t)
	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("gone soon"))
	store.Remove("1")

	assert.True(t, s.Flush())
	assert.Empty(t, saver.calls())
}

func TestShutdown_FlushesAndRejectsOpen(t *testing.T) {
	s, _, saver := setup(t)
	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("last words"))

	s.Shutdown()
	require.Len(t, saver.calls(), 1)
	assert.Equal(t, "last words", saver.calls()[0].Title)
	assert.Equal(t, Empty, s.State())
	assert.True(t, errors.Is(s.Open("1"), errors.ErrNotActive))
}

// fakeAppearance is an in-memory appearance.Source.
type fakeAppearance struct {
	mu   sync.Mutex
	mode appearance.Mode
	subs map[int]func(appearance.Mode)
	next int
}

func newFakeAppearance(m appearance.Mode) *fakeAppearance {
	return &fakeAppearance{mode: m, subs: map[int]func(appearance.Mode){}}
}

func (f *fakeAppearance) Mode() appearance.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeAppearance) Subscribe(fn func(appearance.Mode)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeAppearance) set(m appearance.Mode) {
	f.mu.Lock()
	f.mode = m
	fns := make([]func(appearance.Mode), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (f *fakeAppearance) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func TestThemeSync(t *testing.T) {
	store := notestore.New()
	store.ReplaceAll([]note.Note{{ID: "1", Title: "T", Type: note.TypeText}})
	saver := &recordingSaver{store: store}
	src := newFakeAppearance(appearance.Dark)

	var changes []appearance.Mode
	s := New(Options{
		Store:         store,
		Saver:         saver,
		Appearance:    src,
		OnThemeChange: func(m appearance.Mode) { changes = append(changes, m) },
		TitleDelay:    delay,
		Logger:        quiet(),
	})
	assert.Equal(t, appearance.Dark, s.Theme())
	assert.Equal(t, 1, src.subscribers())

	require.NoError(t, s.Open("1"))
	require.NoError(t, s.EditTitle("typed before toggle"))

	src.set(appearance.Light)
	src.set(appearance.Light)
	assert.Equal(t, appearance.Light, s.Theme())
	assert.Equal(t, []appearance.Mode{appearance.Light}, changes, "repeat signals are idempotent")

	assert.True(t, s.Pending(), "theme change leaves timers alone")
	assert.Equal(t, "typed before toggle", s.Title())
	require.Eventually(t, func() bool { return len(saver.calls()) == 1 }, time.Second, 5*time.Millisecond)

	s.Shutdown()
	assert.Zero(t, src.subscribers(), "shutdown releases the subscription")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "switching", Switching.String())
	assert.Equal(t, "loading", Loading.String())
}
