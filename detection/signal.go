package detection

import (
	"sort"
)

// SchemaVersion identifies the signal enumeration and evidence shapes below.
// Persisted indicator payloads record it so that old rows stay interpretable
// if keys are ever added.
const SchemaVersion = 1

// Signal is the stable string key of one detection signal. The set of keys is
// closed: new signals require a SchemaVersion bump, and existing keys are
// never renamed. During a single scoring pass signals are only ever added to
// the indicator map, never removed.
type Signal string

const (
	SignalVerifiedAccount    Signal = "verified_account"
	SignalSuspiciousPhrases  Signal = "suspicious_phrases"
	SignalExcessiveEmojis    Signal = "excessive_emojis"
	SignalContainsURLs       Signal = "contains_urls"
	SignalRegularPosting     Signal = "suspiciously_regular_posting"
	SignalLowEngagement      Signal = "extremely_low_engagement"
	SignalHighFollowingRatio Signal = "high_following_ratio"
	SignalExcessivePosts     Signal = "excessive_post_volume"
	SignalNoProfilePic       Signal = "no_profile_pic"
	SignalSuspiciousUsername Signal = "suspicious_username"
)

// KnownSignals returns every signal key in the current schema.
func KnownSignals() []Signal {
	return []Signal{
		SignalVerifiedAccount,
		SignalSuspiciousPhrases,
		SignalExcessiveEmojis,
		SignalContainsURLs,
		SignalRegularPosting,
		SignalLowEngagement,
		SignalHighFollowingRatio,
		SignalExcessivePosts,
		SignalNoProfilePic,
		SignalSuspiciousUsername,
	}
}

// Evidence is the typed payload behind a fired signal: a matched-phrase list,
// a count, or a plain boolean. Exactly one field is meaningful per signal key;
// the JSON shape is stable for persistence.
type Evidence struct {
	Phrases []string `json:"phrases,omitempty"`
	Count   int      `json:"count,omitempty"`
	Flag    bool     `json:"flag,omitempty"`
}

func phraseEvidence(phrases []string) Evidence {
	return Evidence{Phrases: phrases}
}

func countEvidence(n int) Evidence {
	return Evidence{Count: n}
}

func flagEvidence() Evidence {
	return Evidence{Flag: true}
}

// Indicators maps fired signal keys to their evidence.
type Indicators map[Signal]Evidence

// Has reports whether the signal fired.
func (ind Indicators) Has(s Signal) bool {
	_, ok := ind[s]
	return ok
}

// Keys returns the fired signal keys in sorted order, for stable logging and
// persistence.
func (ind Indicators) Keys() []Signal {
	out := make([]Signal, 0, len(ind))
	for s := range ind {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KeyStrings is Keys as plain strings, for code that flags or logs accounts.
func (ind Indicators) KeyStrings() []string {
	keys := ind.Keys()
	out := make([]string, len(keys))
	for i, s := range keys {
		out[i] = string(s)
	}
	return out
}
