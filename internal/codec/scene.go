package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	noteerrors "github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// collaboratorsKey is the view-state field carrying live presence data.
// It is session-scoped and always persisted as an empty array.
const collaboratorsKey = "collaborators"

var emptyArray = json.RawMessage(`[]`)

// SceneDocument is the decoded form of a canvas note: an ordered list of
// opaque element records plus the editor's view state.
type SceneDocument struct {
	Elements []json.RawMessage
	AppState map[string]json.RawMessage
}

// Collaborators returns the raw collaborator-presence value (always "[]"
// for documents produced by SceneCodec).
func (s SceneDocument) Collaborators() json.RawMessage {
	return s.AppState[collaboratorsKey]
}

// Clone returns a copy that shares no slices or maps with s.
func (s SceneDocument) Clone() SceneDocument {
	out := SceneDocument{
		Elements: make([]json.RawMessage, len(s.Elements)),
		AppState: make(map[string]json.RawMessage, len(s.AppState)),
	}
	for i, e := range s.Elements {
		out.Elements[i] = bytes.Clone(e)
	}
	for k, v := range s.AppState {
		out.AppState[k] = bytes.Clone(v)
	}
	return out
}

// sceneWire is the persisted JSON shape.
type sceneWire struct {
	Elements json.RawMessage `json:"elements"`
	AppState json.RawMessage `json:"appState"`
}

// SceneCodec stores scenes as {"elements": [...], "appState": {...}}.
type SceneCodec struct {
	Logger *slog.Logger
}

func (SceneCodec) Type() note.Type { return note.TypeScene }

func (SceneCodec) Empty() Document {
	return NewSceneDocument(SceneDocument{
		Elements: []json.RawMessage{},
		AppState: map[string]json.RawMessage{collaboratorsKey: emptyArray},
	})
}

func (SceneCodec) Encode(doc Document) (string, error) {
	if doc.Kind != note.TypeScene {
		return "", fmt.Errorf("scene codec cannot encode %q document", doc.Kind)
	}

	elements := doc.Scene.Elements
	if elements == nil {
		elements = []json.RawMessage{}
	}
	appState := make(map[string]json.RawMessage, len(doc.Scene.AppState)+1)
	maps.Copy(appState, doc.Scene.AppState)
	appState[collaboratorsKey] = emptyArray

	out, err := json.Marshal(struct {
		Elements []json.RawMessage         `json:"elements"`
		AppState map[string]json.RawMessage `json:"appState"`
	}{elements, appState})
	if err != nil {
		return "", fmt.Errorf("encode scene: %w", err)
	}
	return string(out), nil
}

// Decode parses content, falling back to the empty scene on any defect.
func (c SceneCodec) Decode(content string) Document {
	doc, err := c.DecodeStrict(content)
	if err != nil {
		if content != "" {
			c.logger().Warn("scene content corrupt, loading empty scene",
				"error", err, "bytes", len(content))
		}
		return c.Empty()
	}
	return doc
}

// DecodeStrict parses content and reports CONTENT_CORRUPT for empty input,
// invalid JSON, or a missing or non-array elements field.
func (c SceneCodec) DecodeStrict(content string) (Document, error) {
	if content == "" {
		return Document{}, noteerrors.NewContentCorrupt(string(note.TypeScene), errors.New("empty content"))
	}

	var wire sceneWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return Document{}, noteerrors.NewContentCorrupt(string(note.TypeScene), err)
	}
	if !isJSONArray(wire.Elements) {
		return Document{}, noteerrors.NewContentCorrupt(string(note.TypeScene), errors.New("elements is not an array"))
	}

	var scene SceneDocument
	if err := json.Unmarshal(wire.Elements, &scene.Elements); err != nil {
		return Document{}, noteerrors.NewContentCorrupt(string(note.TypeScene), err)
	}
	if scene.Elements == nil {
		scene.Elements = []json.RawMessage{}
	}

	scene.AppState = map[string]json.RawMessage{}
	if isJSONObject(wire.AppState) {
		if err := json.Unmarshal(wire.AppState, &scene.AppState); err != nil {
			return Document{}, noteerrors.NewContentCorrupt(string(note.TypeScene), err)
		}
	}
	scene.AppState[collaboratorsKey] = emptyArray

	return NewSceneDocument(scene), nil
}

func (c SceneCodec) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
