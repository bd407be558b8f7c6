package detection

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestScoreVerifiedShortCircuit(t *testing.T) {
	assert := assert.New(t)

	// every other field is as bot-shaped as possible
	profile := &ProfileMetrics{
		FollowerCount:     10,
		FollowingCount:    5000,
		PostCount:         2000,
		Verified:          true,
		HasProfilePic:     false,
		PostingRegularity: floatPtr(0.1),
		AvgEngagementRate: floatPtr(0.0001),
	}
	comment := "check my profile click here https://spam.example 😀😀😀😀😀😀😀"

	res := ScoreAccount("promobot", comment, profile)
	assert.Equal(VerifiedLikelihood, res.Likelihood)
	assert.Equal(Indicators{SignalVerifiedAccount: {Flag: true}}, res.Indicators)
}

func TestScoreUsernameOnly(t *testing.T) {
	assert := assert.New(t)

	res := ScoreAccount("follow_me_2023", "", nil)
	assert.True(res.Indicators.Has(SignalSuspiciousUsername))
	assert.Greater(res.Likelihood, 0.05)
	assert.Less(res.Likelihood, 0.5)

	// benign username fires nothing
	res = ScoreAccount("janedoe", "", nil)
	assert.Empty(res.Indicators)
	assert.Equal(0.0, res.Likelihood)
}

func TestScoreSuspiciousUsernameSuffixes(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		username string
		match    bool
	}{
		{username: "promobot", match: true},
		{username: "PROMOBOT", match: true},
		{username: "please_follow", match: true},
		{username: "signals_auto", match: true},
		{username: "kayla1988", match: true},
		{username: "follow_me_2023", match: true},
		{username: "botanist", match: false},
		{username: "automatic_jack", match: false},
		{username: "year2023vibes", match: false},
		{username: "jane", match: false},
	}

	for _, fix := range fixtures {
		res := ScoreAccount(fix.username, "", nil)
		assert.Equal(fix.match, res.Indicators.Has(SignalSuspiciousUsername), "username %q", fix.username)
	}
}

func TestScoreSpamComment(t *testing.T) {
	assert := assert.New(t)

	comment := "Check my profile for amazing deals! Make money fast! 😍🔥🔥💰💰🚀 https://spam.example/deal"
	res := ScoreAccount("randomuser", comment, nil)

	assert.True(res.Indicators.Has(SignalSuspiciousPhrases))
	assert.True(res.Indicators.Has(SignalExcessiveEmojis))
	assert.True(res.Indicators.Has(SignalContainsURLs))
	assert.Greater(res.Likelihood, 0.2)

	assert.Equal([]string{"check my profile", "make money fast"}, res.Indicators[SignalSuspiciousPhrases].Phrases)
	assert.Equal(6, res.Indicators[SignalExcessiveEmojis].Count)
	assert.True(res.Indicators[SignalContainsURLs].Flag)
}

func TestScoreProfileShape(t *testing.T) {
	assert := assert.New(t)

	profile := &ProfileMetrics{
		FollowerCount:  100,
		FollowingCount: 3000,
		PostCount:      50,
		HasProfilePic:  false,
	}
	res := ScoreAccount("jane", "", profile)

	assert.True(res.Indicators.Has(SignalHighFollowingRatio))
	assert.True(res.Indicators.Has(SignalNoProfilePic))
	assert.False(res.Indicators.Has(SignalExcessivePosts))
	// profile-only weighting: 0.6*0 + 0.4*(0.2+0.2)
	assert.InDelta(0.16, res.Likelihood, 1e-9)
}

func TestScoreWeightingBranches(t *testing.T) {
	assert := assert.New(t)

	// sub-scores picked to make each branch's arithmetic distinct:
	// text 0.3 (url only), behavioral 0.6, shape 0.5
	comment := "worth a look https://example.com/page"
	profile := &ProfileMetrics{
		FollowerCount:     100,
		FollowingCount:    3000,
		PostCount:         1500,
		HasProfilePic:     false,
		PostingRegularity: floatPtr(0.5),
		AvgEngagementRate: floatPtr(0.001),
	}

	fixtures := []struct {
		name     string
		comment  string
		profile  *ProfileMetrics
		expected float64
	}{
		{
			name:     "comment and profile",
			comment:  comment,
			profile:  profile,
			expected: 0.4*0.3 + 0.4*0.6 + 0.2*0.5,
		},
		{
			name:     "profile only",
			profile:  profile,
			expected: 0.6*0.6 + 0.4*0.5,
		},
		{
			name:     "comment only",
			comment:  comment,
			expected: 0.3,
		},
	}

	for _, fix := range fixtures {
		res := ScoreAccount("jane", fix.comment, fix.profile)
		assert.InDelta(fix.expected, res.Likelihood, 1e-9, fix.name)
	}

	// username-only branch: shape score unweighted
	res := ScoreAccount("promobot", "", nil)
	assert.InDelta(0.1, res.Likelihood, 1e-9)
}

func TestScoreCapsAndBounds(t *testing.T) {
	assert := assert.New(t)

	// six phrases, nine emoji, one URL: raw text score would be 1.0
	comment := "check my profile check my bio click here make money fast follow me dm me 😀😀😀😀😀😀😀😀😀 https://spam.example"
	res := ScoreAccount("user", comment, nil)
	assert.Equal(MaxLikelihood, res.Likelihood)

	// phrase contribution alone caps at 0.5
	phrases := "check my profile check my bio click here make money fast follow me dm me join now earn money"
	res = ScoreAccount("user", phrases, nil)
	assert.InDelta(0.5, res.Likelihood, 1e-9)

	// emoji contribution alone caps at 0.2
	res = ScoreAccount("user", strings.Repeat("🚀", 40), nil)
	assert.InDelta(0.2, res.Likelihood, 1e-9)
	assert.Equal(40, res.Indicators[SignalExcessiveEmojis].Count)
}

func TestScoreBoundaryValues(t *testing.T) {
	assert := assert.New(t)

	// every numeric input sits exactly on its threshold: nothing fires
	profile := &ProfileMetrics{
		FollowerCount:     100,
		FollowingCount:    1000, // ratio exactly 10
		PostCount:         1000,
		HasProfilePic:     true,
		PostingRegularity: floatPtr(1.0),
		AvgEngagementRate: floatPtr(0.005),
	}
	res := ScoreAccount("jane", "nice 😀😀😀😀😀", profile)
	assert.Empty(res.Indicators)
	assert.Equal(0.0, res.Likelihood)
}

func TestScoreAbsentFieldsDoNotFire(t *testing.T) {
	assert := assert.New(t)

	// activity fields unknown: behavioral signals must not fire
	profile := &ProfileMetrics{
		FollowerCount:  10,
		FollowingCount: 20,
		PostCount:      5,
		HasProfilePic:  true,
	}
	res := ScoreAccount("jane", "", profile)
	assert.False(res.Indicators.Has(SignalRegularPosting))
	assert.False(res.Indicators.Has(SignalLowEngagement))

	// zero followers: the following/follower ratio is undefined, not infinite
	profile = &ProfileMetrics{
		FollowerCount:  0,
		FollowingCount: 5000,
		HasProfilePic:  true,
	}
	res = ScoreAccount("jane", "", profile)
	assert.False(res.Indicators.Has(SignalHighFollowingRatio))
}

func TestScoreDeterminism(t *testing.T) {
	assert := assert.New(t)

	profile := &ProfileMetrics{
		FollowerCount:     500,
		FollowingCount:    6000,
		PostCount:         1200,
		HasProfilePic:     false,
		PostingRegularity: floatPtr(0.25),
		AvgEngagementRate: floatPtr(0.002),
	}
	comment := "dm me for passive income 💸💸💸💸💸💸 https://example.com"

	first := ScoreAccount("cashbot", comment, profile)
	for i := 0; i < 10; i++ {
		assert.Equal(first, ScoreAccount("cashbot", comment, profile))
	}
}

func TestScoreRandomInputsBounded(t *testing.T) {
	assert := assert.New(t)
	faker := gofakeit.New(20230817)

	for i := 0; i < 500; i++ {
		var profile *ProfileMetrics
		if faker.Bool() {
			profile = &ProfileMetrics{
				FollowerCount:  int64(faker.Number(0, 100000)),
				FollowingCount: int64(faker.Number(0, 100000)),
				PostCount:      int64(faker.Number(0, 5000)),
				Verified:       faker.Bool(),
				HasProfilePic:  faker.Bool(),
			}
			if faker.Bool() {
				profile.PostingRegularity = floatPtr(faker.Float64Range(0, 100))
			}
			if faker.Bool() {
				profile.AvgEngagementRate = floatPtr(faker.Float64Range(0, 0.2))
			}
		}
		var comment string
		if faker.Bool() {
			comment = faker.Sentence(12)
		}

		res := ScoreAccount(faker.Username(), comment, profile)
		assert.GreaterOrEqual(res.Likelihood, 0.0)
		assert.LessOrEqual(res.Likelihood, MaxLikelihood)
	}
}
