package rules

import (
	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/normalize"
)

var _ monitor.CommentRuleFunc = PromoLinkCommentRule

// Flags commenters dropping links to domains in the promo-domains set. The
// set is curated by the operator; an empty set disables the rule.
func PromoLinkCommentRule(c *monitor.CommentContext) error {
	for _, raw := range normalize.ExtractTextURLs(c.Comment.Text) {
		host := normalize.URLHost(raw)
		if host == "" {
			continue
		}
		if !c.InSet(monitor.SetPromoDomains, host) {
			continue
		}
		c.Increment("promo-link", host)
		c.AddAccountFlag("promo-link-spam")
		c.Logger.Info("comment links to promo domain", "host", host)
	}
	return nil
}
