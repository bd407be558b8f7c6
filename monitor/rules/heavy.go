package rules

import (
	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/normalize"
)

// the comment fetch ceiling caps batches, so this fires near the ceiling
var commentHeavyLimit = 15

var _ monitor.PostRuleFunc = CommentHeavyPostRule

// Counts posts drawing unusually large comment batches, keyed by post author.
// Review tooling reads the counter; no account flag, since a brigaded post is
// not the author's doing.
func CommentHeavyPostRule(c *monitor.PostContext) error {
	if len(c.Comments) < commentHeavyLimit {
		return nil
	}
	c.Increment("comment-heavy-post", normalize.Username(c.Post.Author))
	c.Logger.Info("comment-heavy post", "comments", len(c.Comments))
	return nil
}
