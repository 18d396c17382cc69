package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/note"
)

func fixture() []note.Note {
	return []note.Note{
		{ID: "5", Title: "meeting notes", Tags: "work, q1"},
		{ID: "4", Title: "Groceries", Tags: "home"},
		{ID: "3", Title: "Team Meeting", Tags: "work,q2"},
		{ID: "2", Title: "Architecture", Tags: "work , design", Type: note.TypeScene},
		{ID: "1", Title: "Untagged"},
	}
}

func titles(notes []note.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestFilterByTitle(t *testing.T) {
	tests := []struct {
		name string
		term string
		want []string
	}{
		{"empty term matches all in order", "", []string{"meeting notes", "Groceries", "Team Meeting", "Architecture", "Untagged"}},
		{"blank term matches all", "   ", []string{"meeting notes", "Groceries", "Team Meeting", "Architecture", "Untagged"}},
		{"case insensitive", "Meeting", []string{"meeting notes", "Team Meeting"}},
		{"substring", "tect", []string{"Architecture"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(FilterByTitle(fixture(), tt.term)))
		})
	}
}

func TestExtractTagVocabulary(t *testing.T) {
	got := ExtractTagVocabulary(fixture())
	assert.Equal(t, []string{"work", "q1", "home", "q2", "design"}, got)
	assert.Nil(t, ExtractTagVocabulary(nil))
}

func TestSuggestTags(t *testing.T) {
	vocab := []string{"Work", "home", "workout", "q1"}
	assert.Equal(t, []string{"Work", "workout"}, SuggestTags(vocab, "wo"))
	assert.Equal(t, []string{"Work", "workout"}, SuggestTags(vocab, "WO"))
	assert.Nil(t, SuggestTags(vocab, "x"))
}

func TestSuggestForInput(t *testing.T) {
	vocab := []string{"work", "home", "workout"}

	tests := []struct {
		input  string
		want   []string
		wantOK bool
	}{
		{"#wo", []string{"work", "workout"}, true},
		{"budget #h", []string{"home"}, true},
		{"#work,#ho", []string{"home"}, true},
		{"#", nil, false},
		{"wo", nil, false},
		{"#work ", nil, false},
		{"", nil, false},
		{"#zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := SuggestForInput(vocab, tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteTag(t *testing.T) {
	assert.Equal(t, "#work ", CompleteTag("#wo", "work"))
	assert.Equal(t, "budget #home ", CompleteTag("budget #h", "home"))
	assert.Equal(t, "#a #home ", CompleteTag("#a, #h", "home"))
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
	}{
		{"", Query{}},
		{"budget", Query{Text: "budget"}},
		{"#work", Query{AllTags: []string{"work"}}},
		{"budget #work #q1", Query{Text: "budget", AllTags: []string{"work", "q1"}}},
		{"OR(#q1, #q2)", Query{AnyOf: [][]string{{"q1", "q2"}}}},
		{"plan #work OR(#q1,#q2) , ", Query{Text: "plan", AllTags: []string{"work"}, AnyOf: [][]string{{"q1", "q2"}}}},
		{"OR()", Query{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.input))
		})
	}
}

func TestFilter_Grammar(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"meeting notes", "Groceries", "Team Meeting", "Architecture", "Untagged"}},
		{"#work", []string{"meeting notes", "Team Meeting", "Architecture"}},
		{"#WORK #q2", []string{"Team Meeting"}},
		{"OR(#q1, #design)", []string{"meeting notes", "Architecture"}},
		{"meeting OR(#q1, #q2)", []string{"meeting notes", "Team Meeting"}},
		{"#wor", []string{}},
		{"#work groceries", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(Filter(fixture(), tt.input)))
		})
	}
}

func TestQuery_Empty(t *testing.T) {
	assert.True(t, ParseQuery("  ").Empty())
	assert.False(t, ParseQuery("#a").Empty())
}

func TestColorForTag_MatchesBrowserHash(t *testing.T) {
	tests := []struct {
		tag string
		hue int
	}{
		{"work", 1},
		{"home", 95},
		{"a", 97},
		{"", 0},
		{"日本", 207},
		{"a very long tag name indeed", 139}, // negative hash folded into range
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			c := ColorForTag(tt.tag)
			assert.Equal(t, tt.hue, c.Hue)
			assert.Equal(t, 70, c.Saturation)
			assert.Equal(t, 70, c.Lightness)
		})
	}
}

func TestColorForTag_Deterministic(t *testing.T) {
	work, home := ColorForTag("work"), ColorForTag("home")
	require.NotEqual(t, work, home)
	for range 100 {
		assert.Equal(t, work, ColorForTag("work"))
		assert.Equal(t, home, ColorForTag("home"))
	}
	assert.Equal(t, "hsl(1, 70%, 70%)", work.CSS())
	assert.Equal(t, "hsl(95, 70%, 70%)", home.CSS())
}

func TestTagColor_Foreground(t *testing.T) {
	assert.Equal(t, "dark", ColorForTag("work").Foreground())
	assert.Equal(t, "light", TagColor{Lightness: 40}.Foreground())
	assert.Equal(t, "light", TagColor{Lightness: 55}.Foreground())
}

func TestColorForTag_HueAlwaysInRange(t *testing.T) {
	for _, tag := range []string{"x", "zzzzzzzzzzzzzzzzzzzzzzzzzzzz", "emoji 🎨", "Ω", "-"} {
		h := ColorForTag(tag).Hue
		if h < 0 || h > 359 {
			t.Errorf("ColorForTag(%q).Hue = %d, want 0-359", tag, h)
		}
	}
}

func TestHueColor_Wraps(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {359, 359}, {360, 0}, {725, 5}, {-1, 359},
	}
	for _, tt := range tests {
		if got := HueColor(tt.in).Hue; got != tt.want {
			t.Errorf("HueColor(%d).Hue = %d, want %d", tt.in, got, tt.want)
		}
	}
	if HueColor(1).CSS() != ColorForTag("work").CSS() {
		t.Errorf("HueColor(1) = %s, want the colour of %q", HueColor(1).CSS(), "work")
	}
}
