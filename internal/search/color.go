package search

import (
	"fmt"
	"unicode/utf16"
)

const (
	tagSaturation = 70
	tagLightness  = 70

	// Backgrounds lighter than this get dark text.
	darkTextThreshold = 55
)

// TagColor is the badge colour for a tag.
type TagColor struct {
	Hue        int // 0-359
	Saturation int // percent
	Lightness  int // percent
}

// CSS renders the colour as an hsl() value.
func (c TagColor) CSS() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.Hue, c.Saturation, c.Lightness)
}

// Foreground returns "dark" or "light", whichever reads better on c.
func (c TagColor) Foreground() string {
	if c.Lightness > darkTextThreshold {
		return "dark"
	}
	return "light"
}

// ColorForTag derives a stable colour from the tag text. Hashes are
// computed over UTF-16 code units with 32-bit wraparound on the shift, so
// colours match those the browser client assigns to the same tag.
func ColorForTag(tag string) TagColor {
	return HueColor(hueFor(tag))
}

// HueColor is the badge colour for hue, taken modulo 360.
func HueColor(hue int) TagColor {
	return TagColor{
		Hue:        ((hue % 360) + 360) % 360,
		Saturation: tagSaturation,
		Lightness:  tagLightness,
	}
}

func hueFor(tag string) int {
	var hash int64
	for _, c := range utf16.Encode([]rune(tag)) {
		shifted := int64(int32(uint32(hash)) << 5)
		hash = int64(c) + (shifted - hash)
	}
	h := hash % 360
	return int((h + 360) % 360)
}
