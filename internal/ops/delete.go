package ops

import (
	"context"

	"github.com/hpungsan/fastnote/internal/note"
)

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool    `json:"deleted"`
	ID      note.ID `json:"id"`

	// WasActive is set when the deleted note was open in the editor.
	WasActive bool `json:"was_active"`
}

// Delete removes a note from the store, then from the cache. The cache is
// left alone when the store refuses. If the note was being edited, its
// pending edits are discarded and the editor is emptied.
func (w *Workspace) Delete(ctx context.Context, id note.ID) (*DeleteOutput, error) {
	if err := w.admit(); err != nil {
		return nil, err
	}
	if err := w.api.Delete(ctx, id); err != nil {
		return nil, w.fail(id, err)
	}

	w.store.Remove(id)
	wasActive := w.editor.CloseIfActive(id)
	w.forgetLock(id)

	return &DeleteOutput{Deleted: true, ID: id, WasActive: wasActive}, nil
}
