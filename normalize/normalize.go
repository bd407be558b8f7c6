// Package normalize canonicalizes the identifiers and text fragments the
// monitoring pipeline keys on: usernames (counter keys, flag keys, trusted
// sets), comment text (repeat-text tracking), and URLs (promo-domain
// matching). Scoring itself does its own minimal normalization; this package
// exists so every store and report uses one canonical form.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spaolacci/murmur3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Username lowercases, trims, strips a leading "@", and folds away combining
// marks so visually-identical handles ("Üser" vs "User") collapse to one key.
func Username(raw string) string {
	// the transform chain is stateful and must be built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(normFunc, raw)
	if err != nil {
		folded = raw
	}
	out := strings.ToLower(strings.TrimSpace(folded))
	return strings.TrimSpace(strings.TrimPrefix(out, "@"))
}

// CommentText trims surrounding whitespace and lowercases, the same grouping
// key the coordination detector uses.
func CommentText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// HashOfString returns a fast, compact hash of a string, for keying counters
// on arbitrary-length comment text.
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(v string) string {
	val := murmur3.Sum64([]byte(v))
	return fmt.Sprintf("%016x", val)
}

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
