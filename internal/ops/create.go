package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Type    note.Type // required
	Title   string    // default: note.DefaultTitle
	Content string    // optional initial content
	Tags    string    // optional, comma-separated
}

// Create asks the store for a new note, puts it at the head of the cache,
// and makes it the active note in the editor.
func (w *Workspace) Create(ctx context.Context, input CreateInput) (note.Note, error) {
	if !input.Type.Valid() {
		return note.Note{}, errors.NewInvalidRequest("type must be text or scene")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = note.DefaultTitle
	}
	content := input.Content
	if content != "" {
		clean, err := codec.Sanitize(input.Type, content)
		if err != nil {
			return note.Note{}, err
		}
		content = clean
	}
	if err := w.admit(); err != nil {
		return note.Note{}, err
	}

	req := api.CreateRequest{
		Title:   title,
		Type:    input.Type,
		Content: content,
		Tags:    note.JoinTags(note.SplitTags(input.Tags)),
	}
	created, err := w.api.Create(ctx, req)
	if err != nil {
		return note.Note{}, w.fail("", err)
	}
	if created.ID == "" {
		return note.Note{}, w.fail("", errors.NewPersistenceFailure("create note", 0, errMissingID))
	}

	// Stores that answer with only the id still produce a usable entry.
	if created.Title == "" {
		created.Title = req.Title
	}
	if created.Type == "" {
		created.Type = req.Type
	}
	if created.Content == "" {
		created.Content = req.Content
	}
	if created.Tags == "" {
		created.Tags = req.Tags
	}

	w.store.Prepend(created)
	if err := w.editor.Open(created.ID); err != nil {
		return created, err
	}
	return created, nil
}

var errMissingID = stderrors.New("response carried no id")
