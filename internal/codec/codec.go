// Package codec converts between a note's persisted content string and the
// editable document its editor works on.
//
// Dispatch happens once per note through ForType; everything downstream
// handles a Document without inspecting the note type again.
package codec

import (
	"fmt"
	"log/slog"

	"github.com/hpungsan/fastnote/internal/note"
)

// Document is the decoded, editable form of a note's content. Exactly one
// of Text or Scene is meaningful, selected by Kind.
type Document struct {
	Kind  note.Type
	Text  string
	Scene SceneDocument
}

// TextDocument wraps markdown text.
func TextDocument(text string) Document {
	return Document{Kind: note.TypeText, Text: text}
}

// NewSceneDocument wraps a scene.
func NewSceneDocument(scene SceneDocument) Document {
	return Document{Kind: note.TypeScene, Scene: scene}
}

// Codec is the serialize/deserialize contract for one content representation.
//
// Decode never fails: corrupt or absent content yields the codec's empty
// document. DecodeStrict reports corruption instead, for callers that must
// reject bad input (bulk import).
type Codec interface {
	Type() note.Type
	Encode(doc Document) (string, error)
	Decode(content string) Document
	DecodeStrict(content string) (Document, error)
	Empty() Document
}

// ForType returns the codec for t.
func ForType(t note.Type, logger *slog.Logger) (Codec, error) {
	switch t {
	case note.TypeText:
		return TextCodec{}, nil
	case note.TypeScene:
		return SceneCodec{Logger: logger}, nil
	}
	return nil, fmt.Errorf("no codec for note type %q", t)
}

// Equal reports whether two documents serialize identically.
func Equal(a, b Document) bool {
	if a.Kind != b.Kind {
		return false
	}
	c, err := ForType(a.Kind, nil)
	if err != nil {
		return false
	}
	ea, errA := c.Encode(a)
	eb, errB := c.Encode(b)
	return errA == nil && errB == nil && ea == eb
}

// Sanitize decodes and re-encodes content for t, stripping ephemeral state.
// Text content is returned unchanged.
func Sanitize(t note.Type, content string) (string, error) {
	c, err := ForType(t, nil)
	if err != nil {
		return "", err
	}
	doc, err := c.DecodeStrict(content)
	if err != nil {
		return "", err
	}
	return c.Encode(doc)
}
