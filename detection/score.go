package detection

import (
	"math"
	"strings"
)

const (
	// MaxLikelihood caps every score: the heuristics never express absolute
	// certainty about an account.
	MaxLikelihood = 0.99

	// VerifiedLikelihood is the fixed score returned for verified accounts.
	VerifiedLikelihood = 0.05
)

// Per-signal contributions and caps. The text-pattern sub-score can reach 1.0
// on its own; behavioral and profile-shape sub-scores top out at 0.6 each.
const (
	phraseMatchWeight   = 0.1
	phraseMatchCap      = 0.5
	emojiWeight         = 0.05
	emojiCap            = 0.2
	emojiFreeAllowance  = 5
	urlWeight           = 0.3
	regularPostingHours = 1.0
	regularityWeight    = 0.3
	lowEngagementRate   = 0.005 // below half a percent
	lowEngagementWeight = 0.3
	followRatioLimit    = 10.0
	followRatioWeight   = 0.2
	postVolumeLimit     = 1000
	postVolumeWeight    = 0.1
	noProfilePicWeight  = 0.2
	usernameWeight      = 0.1
)

// scoreInputs tags which optional inputs accompanied a scoring request. The
// weighting of category sub-scores is selected on it, so each row of the
// weighting table is testable on its own.
type scoreInputs int

const (
	inputsUsernameOnly scoreInputs = iota
	inputsCommentOnly
	inputsProfileOnly
	inputsCommentAndProfile
)

func presentInputs(commentText string, profile *ProfileMetrics) scoreInputs {
	switch {
	case commentText != "" && profile != nil:
		return inputsCommentAndProfile
	case profile != nil:
		return inputsProfileOnly
	case commentText != "":
		return inputsCommentOnly
	default:
		return inputsUsernameOnly
	}
}

// ScoreAccount computes the likelihood that an account is automated, from
// whichever inputs are available. commentText and profile are optional: an
// empty string or nil pointer narrows which signal categories run, it is never
// an error. Verified accounts short-circuit to VerifiedLikelihood regardless
// of every other field.
//
// The result is always in [0, MaxLikelihood] and carries the evidence for each
// fired signal.
func ScoreAccount(username string, commentText string, profile *ProfileMetrics) ScoreResult {
	if profile != nil && profile.Verified {
		return ScoreResult{
			Likelihood: VerifiedLikelihood,
			Indicators: Indicators{SignalVerifiedAccount: flagEvidence()},
		}
	}

	ind := Indicators{}
	var textScore, behavioralScore, shapeScore float64

	if commentText != "" {
		textScore = scoreCommentText(commentText, ind)
	}
	if profile != nil {
		behavioralScore = scoreBehavior(profile, ind)
		shapeScore = scoreProfileShape(profile, ind)
	}
	if suspiciousUsername.MatchString(strings.ToLower(username)) {
		ind[SignalSuspiciousUsername] = flagEvidence()
		shapeScore += usernameWeight
	}

	var combined float64
	switch presentInputs(commentText, profile) {
	case inputsCommentAndProfile:
		combined = 0.4*textScore + 0.4*behavioralScore + 0.2*shapeScore
	case inputsProfileOnly:
		combined = 0.6*behavioralScore + 0.4*shapeScore
	case inputsCommentOnly:
		combined = textScore
	case inputsUsernameOnly:
		combined = shapeScore
	}

	return ScoreResult{
		Likelihood: math.Min(combined, MaxLikelihood),
		Indicators: ind,
	}
}

func scoreCommentText(text string, ind Indicators) float64 {
	var score float64
	lower := strings.ToLower(text)

	var matched []string
	for _, phrase := range botPhrases {
		if strings.Contains(lower, phrase) {
			matched = append(matched, phrase)
		}
	}
	if len(matched) > 0 {
		ind[SignalSuspiciousPhrases] = phraseEvidence(matched)
		score += math.Min(phraseMatchWeight*float64(len(matched)), phraseMatchCap)
	}

	if count := countEmoji(text); count > emojiFreeAllowance {
		ind[SignalExcessiveEmojis] = countEvidence(count)
		score += math.Min(emojiWeight*float64(count-emojiFreeAllowance), emojiCap)
	}

	if urlPattern.MatchString(text) {
		ind[SignalContainsURLs] = flagEvidence()
		score += urlWeight
	}

	return score
}

func scoreBehavior(profile *ProfileMetrics, ind Indicators) float64 {
	var score float64

	if profile.PostingRegularity != nil && *profile.PostingRegularity < regularPostingHours {
		ind[SignalRegularPosting] = flagEvidence()
		score += regularityWeight
	}
	if profile.AvgEngagementRate != nil && *profile.AvgEngagementRate < lowEngagementRate {
		ind[SignalLowEngagement] = flagEvidence()
		score += lowEngagementWeight
	}

	return score
}

func scoreProfileShape(profile *ProfileMetrics, ind Indicators) float64 {
	var score float64

	// ratio is undefined for accounts with no followers; skip, don't fire
	if profile.FollowerCount > 0 {
		ratio := float64(profile.FollowingCount) / float64(profile.FollowerCount)
		if ratio > followRatioLimit {
			ind[SignalHighFollowingRatio] = flagEvidence()
			score += followRatioWeight
		}
	}
	if profile.PostCount > postVolumeLimit && profile.FollowerCount < 1000 {
		ind[SignalExcessivePosts] = flagEvidence()
		score += postVolumeWeight
	}
	if !profile.HasProfilePic {
		ind[SignalNoProfilePic] = flagEvidence()
		score += noProfilePicWeight
	}

	return score
}
