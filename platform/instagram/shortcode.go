package instagram

import (
	"fmt"
	"regexp"
	"strings"
)

// Instagram shortcodes are media IDs in a URL-safe base64 variant.
const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var postURLPattern = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// shortcodeFromURL extracts the shortcode from a post, reel, or IGTV URL.
func shortcodeFromURL(postURL string) (string, error) {
	m := postURLPattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", fmt.Errorf("not a recognizable instagram post URL: %s", postURL)
	}
	return m[1], nil
}

// mediaIDFromShortcode decodes a shortcode into its numeric media ID. Codes
// longer than eleven characters carry extra payload in the tail; only the
// leading eleven encode the ID.
func mediaIDFromShortcode(code string) (int64, error) {
	if code == "" {
		return 0, fmt.Errorf("empty shortcode")
	}
	if len(code) > 11 {
		code = code[:11]
	}
	var id int64
	for _, c := range code {
		idx := strings.IndexRune(shortcodeAlphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("invalid shortcode character %q", c)
		}
		id = id*64 + int64(idx)
	}
	return id, nil
}

// shortcodeFromMediaID is the inverse of mediaIDFromShortcode.
func shortcodeFromMediaID(id int64) string {
	if id <= 0 {
		return ""
	}
	var sb []byte
	for id > 0 {
		sb = append(sb, shortcodeAlphabet[id%64])
		id /= 64
	}
	for i, j := 0, len(sb)-1; i < j; i, j = i+1, j-1 {
		sb[i], sb[j] = sb[j], sb[i]
	}
	return string(sb)
}
