package ops

import (
	"context"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/search"
)

// Tag vocabulary sources.
const (
	TagSourceServer = "server"
	TagSourceLocal  = "local"
)

// TagsOutput contains the result of the Tags operation.
type TagsOutput struct {
	Tags   []TagView `json:"tags"`
	Source string    `json:"source"`
}

// Tags returns the tag vocabulary from the store. If the store cannot be
// reached, the vocabulary is derived from the cached notes instead.
func (w *Workspace) Tags(ctx context.Context) (*TagsOutput, error) {
	if err := w.admit(); err != nil {
		return nil, err
	}
	tags, err := w.api.Tags(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrAuthInvalid) {
			return nil, w.fail("", err)
		}
		w.logger.Warn("tag vocabulary unavailable, using cached notes", "error", err)
		return &TagsOutput{Tags: TagViews(w.LocalTags()), Source: TagSourceLocal}, nil
	}
	return &TagsOutput{Tags: TagViews(tags), Source: TagSourceServer}, nil
}

// LocalTags is the vocabulary of the cached notes in first-appearance order.
func (w *Workspace) LocalTags() []string {
	return search.ExtractTagVocabulary(w.store.List())
}

// Suggest offers tag completions for the last token of a search input.
// Nil when that token is not a tag prefix.
func (w *Workspace) Suggest(input string) []string {
	s, ok := search.SuggestForInput(w.LocalTags(), input)
	if !ok {
		return nil
	}
	return s
}
