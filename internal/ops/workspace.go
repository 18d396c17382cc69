// Package ops ties the local note cache, the editor, and the remote note
// store together. Each exported Workspace method is one user-level operation.
package ops

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/appearance"
	"github.com/hpungsan/fastnote/internal/config"
	"github.com/hpungsan/fastnote/internal/editor"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/notestore"
	"github.com/hpungsan/fastnote/internal/search"
	"github.com/hpungsan/fastnote/internal/session"
)

// NoteService is the remote note store. *api.Client implements it.
type NoteService interface {
	List(ctx context.Context, query string) ([]note.Note, error)
	Get(ctx context.Context, id note.ID) (note.Note, error)
	Create(ctx context.Context, req api.CreateRequest) (note.Note, error)
	Update(ctx context.Context, id note.ID, req api.UpdateRequest) (note.Note, error)
	Delete(ctx context.Context, id note.ID) error
	Tags(ctx context.Context) ([]string, error)
	Export(ctx context.Context) ([]api.Record, error)
	Import(ctx context.Context, records []api.Record) error
}

// Options configures a Workspace. API and Guard are required.
type Options struct {
	API   NoteService
	Guard *session.Guard

	// DB holds the offline snapshot. Nil disables snapshots.
	DB *sql.DB

	// Appearance and OnThemeChange are passed to the editor.
	Appearance    appearance.Source
	OnThemeChange func(appearance.Mode)

	// Config supplies debounce delays and limits. Nil means defaults.
	Config *config.Config

	// ExportsDir is the only directory ExportFile and ImportFile touch.
	ExportsDir string

	Now    func() time.Time
	Logger *slog.Logger
}

// Workspace is one signed-in user's view of their notes.
type Workspace struct {
	api        NoteService
	guard      *session.Guard
	db         *sql.DB
	cfg        *config.Config
	exportsDir string
	now        func() time.Time
	logger     *slog.Logger

	store  *notestore.Store
	editor *editor.Session
	notify *Notifications

	locksMu sync.Mutex
	locks   map[note.ID]*sync.Mutex
}

// New creates a workspace with an empty cache and an idle editor.
func New(opts Options) *Workspace {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if cfg.DisableSnapshot {
		opts.DB = nil
	}

	w := &Workspace{
		api:        opts.API,
		guard:      opts.Guard,
		db:         opts.DB,
		cfg:        cfg,
		exportsDir: opts.ExportsDir,
		now:        opts.Now,
		logger:     opts.Logger,
		store:      notestore.New(),
		notify:     NewNotifications(cfg.NotificationLimit),
		locks:      make(map[note.ID]*sync.Mutex),
	}
	w.editor = editor.New(editor.Options{
		Store:         w.store,
		Saver:         w,
		Appearance:    opts.Appearance,
		OnThemeChange: opts.OnThemeChange,
		TitleDelay:    cfg.TitleDebounce(),
		ContentDelay:  cfg.ContentDebounce(),
		SceneDelay:    cfg.SceneDebounce(),
		Logger:        opts.Logger.With("component", "editor"),
	})
	return w
}

// Store returns the local note cache.
func (w *Workspace) Store() *notestore.Store { return w.store }

// Editor returns the editor session.
func (w *Workspace) Editor() *editor.Session { return w.editor }

// Notifications returns the user-visible notification ring.
func (w *Workspace) Notifications() *Notifications { return w.notify }

// Close commits pending edits and releases the editor's subscriptions.
func (w *Workspace) Close() {
	w.editor.Shutdown()
}

// Visible is the note list filtered locally by a search input
// ("#tag", "OR(#a, #b)", and title text), in store order.
func (w *Workspace) Visible(input string) []note.Note {
	return search.Filter(w.store.List(), input)
}

// Unsynced returns notes whose last save did not reach the store.
func (w *Workspace) Unsynced() []notestore.Divergence {
	return w.store.Unsynced()
}

// admit refuses calls until the guard has a live session.
func (w *Workspace) admit() error {
	if w.guard == nil {
		return nil
	}
	switch w.guard.Admit() {
	case session.Allow:
		return nil
	case session.Wait:
		return errors.NewAuthInvalid("session check has not completed")
	}
	return errors.NewAuthInvalid("not logged in")
}

// fail reports err to the user. Auth failures also force a logout.
func (w *Workspace) fail(id note.ID, err error) error {
	if errors.Is(err, errors.ErrAuthInvalid) && w.guard != nil {
		w.guard.Invalidate(err.Error())
	}
	w.notify.PublishError(id, err)
	return err
}

// account keys the offline snapshot. Empty without a session.
func (w *Workspace) account() string {
	if w.guard == nil {
		return ""
	}
	if s := w.guard.Session(); s != nil {
		return s.Subject
	}
	return ""
}

func (w *Workspace) noteLock(id note.ID) *sync.Mutex {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()
	mu, ok := w.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		w.locks[id] = mu
	}
	return mu
}

func (w *Workspace) forgetLock(id note.ID) {
	w.locksMu.Lock()
	delete(w.locks, id)
	w.locksMu.Unlock()
}
