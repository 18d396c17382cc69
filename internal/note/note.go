// Package note defines the note record shared by the client cache, the
// editor, and the store API.
package note

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTitle is given to notes created without an explicit title.
const DefaultTitle = "New Note"

// ID is the store-assigned note identity. The store may issue integers or
// strings; both decode to the same opaque string form.
type ID string

// UnmarshalJSON accepts JSON strings and numbers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("note id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes purely numeric ids back as numbers so integer-keyed
// stores round-trip them unchanged.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Type selects the content codec for a note.
type Type string

const (
	TypeText  Type = "text"
	TypeScene Type = "scene"
)

// Wire names used by the note store.
const (
	wireText  = "markdown"
	wireScene = "excalidraw"
)

// ParseType maps canonical and wire spellings to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", wireText, "md":
		return TypeText, nil
	case "scene", wireScene, "canvas":
		return TypeScene, nil
	}
	return "", fmt.Errorf("unknown note type %q", s)
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	return t == TypeText || t == TypeScene
}

// Wire returns the store's name for t.
func (t Type) Wire() string {
	switch t {
	case TypeText:
		return wireText
	case TypeScene:
		return wireScene
	}
	return string(t)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Wire())
}

// UnmarshalJSON keeps unknown spellings verbatim so a single odd record
// does not break decoding of a whole list; callers check Valid.
func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, err := ParseType(s); err == nil {
		*t = parsed
		return nil
	}
	*t = Type(s)
	return nil
}

// Note is one entry of the user's collection.
type Note struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
	UpdatedAt Timestamp `json:"updated_at,omitzero"`
}

// TagList returns the note's tags.
func (n Note) TagList() []string {
	return SplitTags(n.Tags)
}

// HasTag reports whether the note carries tag (case-insensitive).
func (n Note) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	for _, t := range n.TagList() {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// Timestamp is a store-owned time. It tolerates RFC 3339 as well as ISO
// timestamps without a zone, which are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var unix int64
		if nerr := json.Unmarshal(b, &unix); nerr != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		ts.Time = time.Unix(unix, 0).UTC()
		return nil
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}
