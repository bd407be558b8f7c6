// Package detection implements the heuristic core for flagging likely-automated
// accounts ("bots") and coordinated comment activity on social platforms.
//
// Everything here is pure computation over already-fetched data: no network
// calls, no clocks, no shared mutable state. Scoring the same inputs always
// produces the same outputs, which is what makes it safe to run inside
// at-least-once task executions and from any number of goroutines at once.
// Fetching profiles and comments, persisting results, and scheduling work all
// live in other packages.
package detection

import (
	"time"
)

// ProfileMetrics is a read-only snapshot of an account's profile and activity
// numbers, as fetched from a platform client. The two activity fields are
// derived (see ComputeActivityMetrics) and nil when unknown; a nil field means
// the corresponding signal does not apply, never that it fired.
type ProfileMetrics struct {
	FollowerCount  int64
	FollowingCount int64
	PostCount      int64
	Verified       bool
	HasProfilePic  bool

	// PostingRegularity is the sample standard deviation of the gaps between
	// the account's recent posts, in hours. Small values mean machine-like
	// scheduling.
	PostingRegularity *float64

	// AvgEngagementRate is mean (likes+comments)/followers across recent
	// posts, as a fraction (0.005 == 0.5%).
	AvgEngagementRate *float64
}

// Comment is a single comment on a post. CreatedAt is informational and not
// required for any scoring or grouping decision.
type Comment struct {
	ID        string
	Username  string
	Text      string
	CreatedAt *time.Time
}

// ScoreResult is the outcome of scoring one account: a bounded likelihood and
// the signals which contributed to it. Likelihood is a heuristic confidence in
// [0, 0.99], not a calibrated probability.
type ScoreResult struct {
	Likelihood float64
	Indicators Indicators
}

// CoordinationCluster is a group of two or more distinct accounts which posted
// identical (normalized) text on the same post. CommentCount can exceed
// len(Users) when one account repeats itself. Users is sorted.
type CoordinationCluster struct {
	Text         string
	Users        []string
	CommentCount int
	Confidence   float64
}
