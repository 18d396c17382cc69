package codec

import (
	"fmt"

	"github.com/hpungsan/fastnote/internal/note"
)

// TextCodec stores markdown verbatim.
type TextCodec struct{}

func (TextCodec) Type() note.Type { return note.TypeText }

func (TextCodec) Empty() Document { return TextDocument("") }

func (TextCodec) Encode(doc Document) (string, error) {
	if doc.Kind != note.TypeText {
		return "", fmt.Errorf("text codec cannot encode %q document", doc.Kind)
	}
	return doc.Text, nil
}

func (TextCodec) Decode(content string) Document {
	return TextDocument(content)
}

func (TextCodec) DecodeStrict(content string) (Document, error) {
	return TextDocument(content), nil
}
