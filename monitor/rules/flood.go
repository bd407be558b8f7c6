package rules

import (
	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
)

// triggers on the N+1 comment in a day
var commentDailyLimit = 30

var _ monitor.CommentRuleFunc = CommentFloodRule

// Counts each account's comments across every post the scanner walks and
// flags daily volumes no human sustains.
func CommentFloodRule(c *monitor.CommentContext) error {
	username := c.Account.Username
	c.IncrementPeriod("comment", username, countstore.PeriodDay)

	// NOTE: won't include the increment from this event
	count := c.GetCount("comment", username, countstore.PeriodDay)
	if count >= commentDailyLimit {
		c.AddAccountFlag("comment-flood")
		c.Logger.Warn("possible automation (high daily comment volume)", "count", count)
	}
	return nil
}
