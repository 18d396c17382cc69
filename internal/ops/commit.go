package ops

import (
	"context"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/notestore"
)

// CommitPatch applies p to the cached note and sends the resulting full
// record to the store. Commits for one note are serialized so each request
// carries every field changed before it, whichever field it was for.
//
// On failure the cached change is kept, the note is marked unsynced, and a
// notification is published. The cached record is returned either way.
func (w *Workspace) CommitPatch(ctx context.Context, id note.ID, p notestore.Patch) (note.Note, error) {
	mu := w.noteLock(id)
	mu.Lock()
	defer mu.Unlock()

	sent, ok := w.store.Patch(id, p)
	if !ok {
		return note.Note{}, errors.NewNotFound(id.String())
	}

	if err := w.admit(); err != nil {
		w.store.MarkUnsynced(id, err)
		return sent, w.fail(id, err)
	}

	server, err := w.api.Update(ctx, id, api.UpdateRequest{
		Title:   sent.Title,
		Content: sent.Content,
		Tags:    sent.Tags,
	})
	if err != nil {
		w.store.MarkUnsynced(id, err)
		w.logger.Warn("note not saved", "id", id, "code", errors.CodeOf(err), "error", err)
		return sent, w.fail(id, err)
	}

	w.store.Reconcile(server, sent)
	if latest, ok := w.store.Get(id); ok {
		return latest, nil
	}
	return sent, nil
}
