package detection

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// minClusterTextRunes is the shortest normalized text considered for
	// coordination; anything shorter is too generic to signal anything.
	minClusterTextRunes = 10

	clusterBaseConfidence    = 0.5
	clusterPerCommentConf    = 0.1
	clusterConfidenceCeiling = 0.9
)

// DetectCoordination groups a post's comments by normalized text and reports
// every group posted by two or more distinct accounts. Normalization is
// whitespace trim plus lowercasing; short texts and single-author repeats are
// dropped. Confidence grows with the size of the group and is capped below
// certainty.
//
// Empty and single-comment inputs yield nil. The result is sorted by text so
// repeated runs over the same batch produce identical output, but callers
// should only rely on membership, not order.
func DetectCoordination(comments []Comment) []CoordinationCluster {
	if len(comments) < 2 {
		return nil
	}

	groups := make(map[string][]Comment)
	for _, c := range comments {
		text := strings.ToLower(strings.TrimSpace(c.Text))
		groups[text] = append(groups[text], c)
	}

	var clusters []CoordinationCluster
	for text, group := range groups {
		if utf8.RuneCountInString(text) < minClusterTextRunes || len(group) < 2 {
			continue
		}
		users := distinctUsernames(group)
		if len(users) < 2 {
			continue
		}
		clusters = append(clusters, CoordinationCluster{
			Text:         text,
			Users:        users,
			CommentCount: len(group),
			Confidence:   math.Min(clusterBaseConfidence+clusterPerCommentConf*float64(len(group)), clusterConfidenceCeiling),
		})
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Text < clusters[j].Text })
	return clusters
}

func distinctUsernames(group []Comment) []string {
	seen := make(map[string]bool, len(group))
	users := make([]string, 0, len(group))
	for _, c := range group {
		if !seen[c.Username] {
			seen[c.Username] = true
			users = append(users, c.Username)
		}
	}
	sort.Strings(users)
	return users
}
