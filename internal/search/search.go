// Package search derives read-only views of the note list: title filtering,
// the tag query grammar, tag vocabulary, autocomplete, and tag colours.
package search

import (
	"regexp"
	"strings"

	"github.com/hpungsan/fastnote/internal/note"
)

// TagMarker prefixes a tag token in search input and tag fields.
const TagMarker = "#"

// FilterByTitle returns the notes whose title contains term, ignoring case,
// in their original order. An empty term matches every note.
func FilterByTitle(notes []note.Note, term string) []note.Note {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]note.Note, 0, len(notes))
	for _, n := range notes {
		if term == "" || strings.Contains(strings.ToLower(n.Title), term) {
			out = append(out, n)
		}
	}
	return out
}

// ExtractTagVocabulary returns the distinct trimmed tags across notes in
// order of first appearance.
func ExtractTagVocabulary(notes []note.Note) []string {
	var vocab []string
	seen := make(map[string]bool)
	for _, n := range notes {
		for _, t := range n.TagList() {
			if !seen[t] {
				seen[t] = true
				vocab = append(vocab, t)
			}
		}
	}
	return vocab
}

// SuggestTags returns the vocabulary entries whose lowercase form starts
// with the lowercase prefix, in vocabulary order.
func SuggestTags(vocab []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, t := range vocab {
		if strings.HasPrefix(strings.ToLower(t), prefix) {
			out = append(out, t)
		}
	}
	return out
}

var tokenSep = regexp.MustCompile(`[\s,]+`)

// lastToken returns the final whitespace/comma-delimited token of input.
func lastToken(input string) string {
	parts := tokenSep.Split(input, -1)
	return parts[len(parts)-1]
}

// SuggestForInput applies SuggestTags to the last token of a search box.
// Suggestions are only offered when that token is a tag marker followed by
// at least one character; ok is false otherwise.
func SuggestForInput(vocab []string, input string) (suggestions []string, ok bool) {
	last := lastToken(input)
	if !strings.HasPrefix(last, TagMarker) || len(last) <= len(TagMarker) {
		return nil, false
	}
	return SuggestTags(vocab, strings.TrimPrefix(last, TagMarker)), true
}

// CompleteTag accepts a suggestion: the last token of input is replaced by
// "#tag " and the tokens are rejoined with single spaces.
func CompleteTag(input, tag string) string {
	parts := tokenSep.Split(input, -1)
	parts[len(parts)-1] = TagMarker + tag + " "
	return strings.Join(parts, " ")
}
