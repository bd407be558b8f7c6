package detection

import (
	"regexp"
	"unicode"
)

// botPhrases is the fixed list of phrases historically common in automated
// promo comments. Matching is case-insensitive substring matching against the
// whole comment text.
var botPhrases = []string{
	"check my profile", "check my bio", "click here", "make money fast",
	"follow me", "dm me", "link in bio", "check link", "join now", "earn money",
	"work from home", "passive income", "click my profile",
}

var (
	// urlPattern matches http/https URLs, including percent-escapes.
	urlPattern = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+`)

	// suspiciousUsername matches lowercased usernames with a trailing
	// bot-suggestive suffix.
	suspiciousUsername = regexp.MustCompile(`(bot|follow|auto|\d{4})$`)
)

// emojiBlocks covers the emoji and pictograph code point blocks counted for
// the excessive-emoji signal: Miscellaneous Symbols and Pictographs through
// Symbols and Pictographs Extended-A. Counting is per code point; modifier and
// ZWJ sequences count each component.
var emojiBlocks = &unicode.RangeTable{
	R32: []unicode.Range32{
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1},
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F700, Hi: 0x1F77F, Stride: 1},
		{Lo: 0x1F780, Hi: 0x1F7FF, Stride: 1},
		{Lo: 0x1F800, Hi: 0x1F8FF, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA00, Hi: 0x1FA6F, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1},
	},
}

func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		if unicode.Is(emojiBlocks, r) {
			n++
		}
	}
	return n
}
