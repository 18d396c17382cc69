package ops

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/config"
	"github.com/hpungsan/fastnote/internal/db"
	"github.com/hpungsan/fastnote/internal/fakestore"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/session"
)

type harness struct {
	ws    *Workspace
	fake  *fakestore.Server
	guard *session.Guard
	token string
	base  string
}

type harnessOption func(*Options)

func newHarness(t *testing.T, notes []note.Note, opts ...harnessOption) *harness {
	t.Helper()
	token := fakestore.SignToken(t, time.Now().Add(time.Hour))
	fake := fakestore.New(token, notes...)
	baseURL := fake.Start(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := t.TempDir()

	guard := session.NewGuard(session.GuardOptions{Store: session.StaticToken(token), Logger: logger})
	guard.Load()

	database, err := db.Init(base)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.TitleDebounceMS = 20
	cfg.ContentDebounceMS = 20
	cfg.SceneDebounceMS = 30

	o := Options{
		API: api.New(api.Options{
			BaseURL: baseURL,
			Token:   guard.Token,
			Logger:  logger,
		}),
		Guard:      guard,
		DB:         database,
		Config:     cfg,
		ExportsDir: filepath.Join(base, "exports"),
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	ws := New(o)
	t.Cleanup(ws.Close)

	return &harness{ws: ws, fake: fake, guard: guard, token: token, base: base}
}

// withDelays overrides the debounce delays in milliseconds.
func withDelays(title, content, scene int) harnessOption {
	return func(o *Options) {
		o.Config.TitleDebounceMS = title
		o.Config.ContentDebounceMS = content
		o.Config.SceneDebounceMS = scene
	}
}

func seedNotes() []note.Note {
	return []note.Note{
		{ID: "2", Title: "Sketch", Type: note.TypeScene, Content: `{"elements":[{"id":"a"}],"appState":{"collaborators":[]}}`, Tags: "home"},
		{ID: "1", Title: "Meeting notes", Type: note.TypeText, Content: "agenda", Tags: "work,home"},
	}
}
