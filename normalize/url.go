package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

var httpURLRegex = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+[^\s]*`)

// ExtractTextURLs pulls http/https URLs out of free-form comment or bio text.
func ExtractTextURLs(raw string) []string {
	return httpURLRegex.FindAllString(raw, -1)
}

var trackingParams = []string{
	"__s",
	"_ga",
	"campaign_id",
	"fbclid",
	"gclid",
	"igsh",
	"igshid",
	"mc_eid",
	"msclkid",
	"utm_campaign",
	"utm_content",
	"utm_id",
	"utm_medium",
	"utm_source",
	"utm_term",
	"xpid",
}

// LossyURL aggressively normalizes a URL for matching and counting. The
// result may no longer be directly functional (fragments, tracking params,
// and www. are gone).
func LossyURL(raw string) string {
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveDirectoryIndex|purell.FlagRemoveFragment|purell.FlagRemoveDuplicateSlashes|purell.FlagRemoveWWW|purell.FlagSortQuery)
	if err != nil {
		return raw
	}

	// remove tracking params
	u, err := url.Parse(clean)
	if err != nil {
		return clean
	}
	if u.RawQuery == "" {
		return clean
	}
	params := u.Query()
	for _, p := range trackingParams {
		if params.Has(p) {
			params.Del(p)
		}
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// URLHost returns the lowercased host of a URL with any www. prefix dropped,
// or "" if it does not parse. This is the key matched against the
// promo-domains set.
func URLHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
