package rules

import (
	"unicode/utf8"

	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
	"github.com/opensocialmonitor/vigil/normalize"
)

// triggers on the N+1 distinct author
var repeatTextAuthorLimit = 3

// don't count short or generic comments ("nice!", "first")
var repeatTextMinRunes = 10

var _ monitor.CommentRuleFunc = RepeatTextCommentRule

// Looks for comment text posted by multiple distinct accounts, across posts
// and across scan runs. Complements the per-post coordination pass, which
// only ever sees one comment batch at a time.
func RepeatTextCommentRule(c *monitor.CommentContext) error {
	text := normalize.CommentText(c.Comment.Text)
	if utf8.RuneCountInString(text) < repeatTextMinRunes {
		return nil
	}

	// increment before read. distinct-counting authors per text hash keeps one
	// counter per unique comment text
	bucket := normalize.HashOfString(text)
	c.IncrementDistinct("comment-text", bucket, c.Account.Username)

	// NOTE: won't include the increment from this event
	count := c.GetCountDistinct("comment-text", bucket, countstore.PeriodTotal)
	if count >= repeatTextAuthorLimit {
		c.AddAccountFlag("repeat-comment-text")
		c.Logger.Warn("possible spam (comment text repeated by distinct accounts)", "count", count, "textHash", bucket)
	}
	return nil
}
