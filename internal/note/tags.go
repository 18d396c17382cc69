package note

import "strings"

// SplitTags splits the comma-serialized wire form, trimming tokens and
// dropping blanks. Order is preserved; duplicates are not removed.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// JoinTags produces the wire form from a list of tags.
func JoinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		clean = append(clean, t)
	}
	return strings.Join(clean, ",")
}

// ParseTagInput converts a user-typed tag field ("#work, #home") to the wire
// form. Only tokens starting with '#' and carrying at least one more
// character count.
func ParseTagInput(input string) string {
	var tags []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 1 && strings.HasPrefix(part, "#") {
			tags = append(tags, strings.TrimSpace(part[1:]))
		}
	}
	return JoinTags(tags)
}

// FormatTagInput is the inverse of ParseTagInput.
func FormatTagInput(wire string) string {
	tags := SplitTags(wire)
	for i, t := range tags {
		tags[i] = "#" + t
	}
	return strings.Join(tags, ", ")
}
