package ops

import (
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/search"
)

// TagView is a tag with its display colours.
type TagView struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Foreground string `json:"foreground"`
}

// NewTagView colours tag. The result depends only on the tag text.
func NewTagView(tag string) TagView {
	c := search.ColorForTag(tag)
	return TagView{Name: tag, Color: c.CSS(), Foreground: c.Foreground()}
}

// TagViews colours each tag, returning an empty (not nil) slice.
func TagViews(tags []string) []TagView {
	out := make([]TagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, NewTagView(t))
	}
	return out
}

// NoteSummary is a list entry without content.
type NoteSummary struct {
	ID        note.ID        `json:"id"`
	Title     string         `json:"title"`
	Type      note.Type      `json:"type"`
	Tags      []TagView      `json:"tags"`
	UpdatedAt note.Timestamp `json:"updated_at,omitzero"`
}

// Summarize drops n's content.
func Summarize(n note.Note) NoteSummary {
	return NoteSummary{
		ID:        n.ID,
		Title:     n.Title,
		Type:      n.Type,
		Tags:      TagViews(n.TagList()),
		UpdatedAt: n.UpdatedAt,
	}
}

// Summaries summarizes notes in order, returning an empty (not nil) slice.
func Summaries(notes []note.Note) []NoteSummary {
	out := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, Summarize(n))
	}
	return out
}
