package search

import (
	"regexp"
	"strings"

	"github.com/hpungsan/fastnote/internal/note"
)

// Query is a parsed search box.
//
//	budget #work OR(#q1, #q2)
//
// matches notes titled "...budget..." tagged work and tagged q1 or q2.
type Query struct {
	Text    string     // title substring, case-insensitive
	AllTags []string   // every tag must be present
	AnyOf   [][]string // each group needs at least one tag present
}

var (
	orGroupRe = regexp.MustCompile(`OR\((.*?)\)`)
	tagRe     = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)
)

// ParseQuery splits input into title text and tag filters. OR groups are
// extracted first so their members are not also required individually.
func ParseQuery(input string) Query {
	var q Query

	for _, m := range orGroupRe.FindAllStringSubmatch(input, -1) {
		var group []string
		for _, part := range strings.Split(m[1], ",") {
			if t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), TagMarker)); t != "" {
				group = append(group, t)
			}
		}
		if len(group) > 0 {
			q.AnyOf = append(q.AnyOf, group)
		}
	}
	rest := orGroupRe.ReplaceAllString(input, " ")

	for _, m := range tagRe.FindAllStringSubmatch(rest, -1) {
		q.AllTags = append(q.AllTags, m[1])
	}
	rest = tagRe.ReplaceAllString(rest, " ")

	q.Text = strings.Join(strings.Fields(strings.Trim(rest, " ,")), " ")
	return q
}

// Empty reports whether q matches everything.
func (q Query) Empty() bool {
	return q.Text == "" && len(q.AllTags) == 0 && len(q.AnyOf) == 0
}

// Match reports whether n satisfies every part of q.
func (q Query) Match(n note.Note) bool {
	if q.Text != "" && !strings.Contains(strings.ToLower(n.Title), strings.ToLower(q.Text)) {
		return false
	}
	for _, t := range q.AllTags {
		if !n.HasTag(t) {
			return false
		}
	}
	for _, group := range q.AnyOf {
		found := false
		for _, t := range group {
			if n.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Filter returns the notes matching the parsed input, in store order.
func Filter(notes []note.Note, input string) []note.Note {
	q := ParseQuery(input)
	if len(q.AllTags) == 0 && len(q.AnyOf) == 0 {
		return FilterByTitle(notes, q.Text)
	}
	out := make([]note.Note, 0, len(notes))
	for _, n := range notes {
		if q.Match(n) {
			out = append(out, n)
		}
	}
	return out
}
