package monitor

type CommentRuleFunc = func(c *CommentContext) error
type PostRuleFunc = func(c *PostContext) error

// Holds configuration of which rules of various types should be run, and
// helps dispatch events to those rules.
type RuleSet struct {
	CommentRules []CommentRuleFunc
	PostRules    []PostRuleFunc
}

// Executes all the comment-level rules. Only dispatches execution, does no
// other de-dupe or pre/post processing.
func (r *RuleSet) CallCommentRules(c *CommentContext) error {
	for _, f := range r.CommentRules {
		err := f(c)
		if err != nil {
			return err
		}
	}
	return nil
}

// Executes rules which consider a post's whole comment batch.
func (r *RuleSet) CallPostRules(c *PostContext) error {
	for _, f := range r.PostRules {
		err := f(c)
		if err != nil {
			return err
		}
	}
	return nil
}
