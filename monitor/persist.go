package monitor

import (
	"context"
	"fmt"

	"github.com/opensocialmonitor/vigil/detection"
	"github.com/opensocialmonitor/vigil/store"
)

// dedupeFlagActions returns the subset of staged flags not already persisted
// for the account.
func dedupeFlagActions(newFlags, existingFlags []string) []string {
	existing := make(map[string]bool, len(existingFlags))
	for _, val := range existingFlags {
		existing[val] = true
	}
	var out []string
	for _, val := range newFlags {
		if !existing[val] {
			out = append(out, val)
			existing[val] = true
		}
	}
	return out
}

func (eng *Engine) persistCounters(ctx context.Context, eff *Effects) error {
	for _, ref := range eff.CounterIncrements {
		if ref.Period != nil {
			err := eng.Counters.IncrementPeriod(ctx, ref.Name, ref.Val, *ref.Period)
			if err != nil {
				return err
			}
		} else {
			err := eng.Counters.Increment(ctx, ref.Name, ref.Val)
			if err != nil {
				return err
			}
		}
	}
	for _, ref := range eff.CounterDistinctIncrements {
		err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val)
		if err != nil {
			return err
		}
	}
	return nil
}

// persistAccountEffects applies staged account flags, skipping any already
// set.
func (eng *Engine) persistAccountEffects(ctx context.Context, c *AccountContext) error {
	if len(c.effects.AccountFlags) == 0 {
		return nil
	}
	existing, err := eng.Flags.Get(ctx, c.Account.Username)
	if err != nil {
		return fmt.Errorf("reading account flags: %w", err)
	}
	newFlags := dedupeFlagActions(c.effects.AccountFlags, existing)
	if len(newFlags) == 0 {
		return nil
	}
	for _, val := range newFlags {
		actionNewFlagCount.WithLabelValues("account", val).Inc()
	}
	c.Logger.Info("persisting new account flags", "flags", newFlags)
	if err := eng.Flags.Add(ctx, c.Account.Username, newFlags); err != nil {
		return err
	}
	// freshly flagged accounts get a new profile fetch on next contact
	return eng.PurgeAccountCaches(ctx, c.Account.Username)
}

// persistCommentEffects applies counters and flags, then records a detection
// row when the commenter's likelihood crossed the configured threshold.
func (eng *Engine) persistCommentEffects(ctx context.Context, c *CommentContext) error {
	if c.Score.Likelihood >= eng.Config.DetectionThreshold {
		// the fired indicator keys double as account flags, so later scans
		// can cheaply check what an account was caught on before
		for _, key := range c.Score.Indicators.KeyStrings() {
			c.AddAccountFlag(key)
		}
	}

	if err := eng.persistAccountEffects(ctx, &c.AccountContext); err != nil {
		return err
	}
	if err := eng.persistCounters(ctx, c.effects); err != nil {
		return err
	}

	if c.Score.Likelihood < eng.Config.DetectionThreshold {
		return nil
	}
	det := &store.Detection{
		Username:      c.Account.Username,
		CommentID:     c.Comment.ID,
		CommentText:   c.Comment.Text,
		PostID:        c.Post.ID,
		PostURL:       c.Post.URL,
		Likelihood:    c.Score.Likelihood,
		Indicators:    c.Score.Indicators,
		SchemaVersion: detection.SchemaVersion,
	}
	if err := eng.Store.RecordDetection(ctx, det); err != nil {
		return fmt.Errorf("recording detection: %w", err)
	}
	detectionsRecorded.Inc()
	c.Logger.Warn("likely automated account detected",
		"likelihood", c.Score.Likelihood,
		"indicators", c.Score.Indicators.KeyStrings(),
		"detectionID", det.ID,
	)
	return nil
}
