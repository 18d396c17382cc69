// Package render produces HTML previews of notes.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/note"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts markdown text to HTML. Raw HTML in the source is
// omitted by goldmark's default renderer.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Preview renders n for read-only display. Text notes are rendered as
// markdown; scene notes get a one-line summary since the canvas itself
// needs the drawing widget.
func Preview(n note.Note) (string, error) {
	switch n.Type {
	case note.TypeText:
		out, err := Markdown(n.Content)
		if err != nil {
			return template.HTMLEscapeString(n.Content), err
		}
		return out, nil
	case note.TypeScene:
		doc := codec.SceneCodec{}.Decode(n.Content)
		return fmt.Sprintf("<p>%s: canvas with %d elements</p>\n",
			template.HTMLEscapeString(n.Title), len(doc.Scene.Elements)), nil
	}
	return "", fmt.Errorf("cannot render note type %q", n.Type)
}
