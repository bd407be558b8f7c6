package detection

import (
	"math"
	"sort"
	"time"
)

// ActivitySample is one of an account's recent posts, reduced to the fields
// needed for behavioral metrics.
type ActivitySample struct {
	Time     time.Time
	Likes    int64
	Comments int64
}

// ComputeActivityMetrics derives the two behavioral inputs of ProfileMetrics
// from an account's recent posts (any order; gaps are taken between adjacent
// samples after sorting newest-first).
//
// Regularity is the sample standard deviation of inter-post gaps in hours and
// needs at least three posts (two gaps); engagement is mean
// (likes+comments)/followers and needs a positive follower count. A metric
// that cannot be computed comes back nil, which ScoreAccount treats as "signal
// does not apply" rather than as zero.
func ComputeActivityMetrics(samples []ActivitySample, followers int64) (regularity, engagement *float64) {
	if len(samples) < 2 {
		return nil, nil
	}

	ordered := make([]ActivitySample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Time.After(ordered[j].Time) })

	gaps := make([]float64, 0, len(ordered)-1)
	ratios := make([]float64, 0, len(ordered))
	for i := 0; i < len(ordered)-1; i++ {
		gaps = append(gaps, ordered[i].Time.Sub(ordered[i+1].Time).Hours())
	}
	if followers > 0 {
		for _, s := range ordered {
			ratios = append(ratios, float64(s.Likes+s.Comments)/float64(followers))
		}
	}

	if len(gaps) >= 2 {
		sd := sampleStdev(gaps)
		regularity = &sd
	}
	if len(ratios) > 0 {
		m := mean(ratios)
		engagement = &m
	}
	return regularity, engagement
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdev uses the n-1 denominator.
func sampleStdev(xs []float64) float64 {
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
