package rules

import (
	"github.com/opensocialmonitor/vigil/monitor"
)

func DefaultRules() monitor.RuleSet {
	rules := monitor.RuleSet{
		CommentRules: []monitor.CommentRuleFunc{
			RepeatTextCommentRule,
			PromoLinkCommentRule,
			CommentFloodRule,
		},
		PostRules: []monitor.PostRuleFunc{
			CommentHeavyPostRule,
		},
	}
	return rules
}
