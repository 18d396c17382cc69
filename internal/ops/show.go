package ops

import (
	"context"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/render"
)

// ShowOutput contains the result of the Show operation.
type ShowOutput struct {
	Note     note.Note `json:"note"`
	Tags     []TagView `json:"tags"`
	HTML     string    `json:"html,omitempty"`
	Unsynced bool      `json:"unsynced,omitempty"`
}

// Show returns one note, fetching it when the cache does not hold it.
// Cached notes with unsaved local changes are returned as cached.
func (w *Workspace) Show(ctx context.Context, id note.ID, html bool) (*ShowOutput, error) {
	n, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ShowOutput{
		Note:     n,
		Tags:     TagViews(n.TagList()),
		Unsynced: w.isUnsynced(id),
	}
	if html {
		rendered, err := render.Preview(n)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		out.HTML = rendered
	}
	return out, nil
}

// Open makes id the editor's active note, fetching it first if needed.
func (w *Workspace) Open(ctx context.Context, id note.ID) error {
	if _, err := w.load(ctx, id); err != nil {
		return err
	}
	return w.editor.Open(id)
}

// load returns the cached note, fetching and caching it on a miss.
func (w *Workspace) load(ctx context.Context, id note.ID) (note.Note, error) {
	if n, ok := w.store.Get(id); ok {
		return n, nil
	}
	if err := w.admit(); err != nil {
		return note.Note{}, err
	}
	n, err := w.api.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return note.Note{}, errors.NewNotFound(id.String())
		}
		return note.Note{}, w.fail(id, err)
	}
	if n.ID == "" {
		n.ID = id
	}
	w.store.Insert(n)
	return n, nil
}

func (w *Workspace) isUnsynced(id note.ID) bool {
	for _, d := range w.store.Unsynced() {
		if d.ID == id {
			return true
		}
	}
	return false
}
