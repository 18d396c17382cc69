package ops

import (
	"context"

	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// UpdateInput contains parameters for the Update operation.
// Nil fields are left unchanged; a non-nil empty Tags clears the tags.
type UpdateInput struct {
	ID      note.ID // required
	Title   *string
	Content *string
	Tags    []string
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Note  note.Note `json:"note"`
	Saved bool      `json:"saved"`
}

// Update edits a note through the editor, as keystrokes would, and then
// flushes so the change is saved before returning. Edits that change
// nothing are not sent.
func (w *Workspace) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if err := w.Open(ctx, input.ID); err != nil {
		return nil, err
	}
	ed := w.editor

	if input.Title != nil {
		if err := ed.EditTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Content != nil {
		doc := ed.Document()
		switch doc.Kind {
		case note.TypeScene:
			c, err := codec.ForType(note.TypeScene, w.logger)
			if err != nil {
				return nil, err
			}
			parsed := c.Empty()
			if *input.Content != "" {
				if parsed, err = c.DecodeStrict(*input.Content); err != nil {
					return nil, err
				}
			}
			if err := ed.EditScene(parsed.Scene); err != nil {
				return nil, err
			}
		default:
			if err := ed.EditText(*input.Content); err != nil {
				return nil, err
			}
		}
	}
	if input.Tags != nil {
		if err := ed.EditTags(input.Tags); err != nil {
			return nil, err
		}
	}

	saved := ed.Flush()
	for _, d := range w.store.Unsynced() {
		if d.ID == input.ID {
			return nil, d.Err
		}
	}

	n, ok := w.store.Get(input.ID)
	if !ok {
		return nil, errors.NewNotFound(input.ID.String())
	}
	return &UpdateOutput{Note: n, Saved: saved}, nil
}
