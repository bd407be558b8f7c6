package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/opensocialmonitor/vigil/detection"
	"github.com/opensocialmonitor/vigil/platform"
)

// The primary interface exposed to rules. All other contexts derive from this
// "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or
	// sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields
	// pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// AccountMeta is a snapshot of one commenter's account, as far as the
// platform let us see it. Profile is nil when the profile fetch failed;
// scoring then degrades to text and username signals only.
type AccountMeta struct {
	Username  string                    `json:"username"`
	Profile   *detection.ProfileMetrics `json:"profile"`
	Private   bool                      `json:"private"`
	FetchedAt time.Time                 `json:"fetched_at"`
}

// Both a useful context on its own (eg, for ad-hoc account scans), and
// extended by other context types.
type AccountContext struct {
	BaseContext

	Account AccountMeta
}

// Represents one comment being scored in the context of the post it was left
// on.
type CommentContext struct {
	AccountContext

	Post    platform.Post
	Comment platform.Comment
	// Score is computed by the engine before rules run; rules may consult
	// it but not change it.
	Score detection.ScoreResult
}

// Represents a whole post with its fetched comment batch, for rules that
// look across commenters rather than at one account.
type PostContext struct {
	BaseContext

	Post     platform.Post
	Comments []platform.Comment
}

// request external state via engine (indirect)

func (c *BaseContext) GetCount(name, val, period string) int {
	out, err := c.engine.Counters.GetCount(c.Ctx, name, val, period)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return out
}

func (c *BaseContext) GetCountDistinct(name, bucket, period string) int {
	out, err := c.engine.Counters.GetCountDistinct(c.Ctx, name, bucket, period)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return 0
	}
	return out
}

func (c *BaseContext) InSet(name, val string) bool {
	out, err := c.engine.Sets.InSet(c.Ctx, name, val)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return false
	}
	return out
}

// GetAccountFlags returns the flags already persisted for an account. Flags
// staged by rules during this event are not visible yet.
func (c *BaseContext) GetAccountFlags(username string) []string {
	out, err := c.engine.Flags.Get(c.Ctx, username)
	if err != nil {
		if nil == c.Err {
			c.Err = err
		}
		return nil
	}
	return out
}

// update effects (indirect)

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *BaseContext) IncrementPeriod(name, val string, period string) {
	c.effects.IncrementPeriod(name, val, period)
}

func (c *BaseContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *AccountContext) AddAccountFlag(val string) {
	c.effects.AddAccountFlag(val)
}

func NewAccountContext(ctx context.Context, eng *Engine, meta AccountMeta) AccountContext {
	return AccountContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("username", meta.Username),
			engine:  eng,
			effects: &Effects{},
		},
		Account: meta,
	}
}

func (eng *Engine) NewCommentContext(ctx context.Context, meta AccountMeta, post platform.Post, comment platform.Comment) CommentContext {
	ac := NewAccountContext(ctx, eng, meta)
	ac.BaseContext.Logger = ac.BaseContext.Logger.With("postID", post.ID, "commentID", comment.ID)
	return CommentContext{
		AccountContext: ac,
		Post:           post,
		Comment:        comment,
	}
}

func (eng *Engine) NewPostContext(ctx context.Context, post platform.Post, comments []platform.Comment) PostContext {
	return PostContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Err:     nil,
			Logger:  eng.Logger.With("postID", post.ID, "postAuthor", post.Author),
			engine:  eng,
			effects: &Effects{},
		},
		Post:     post,
		Comments: comments,
	}
}

func (c *CommentContext) CanonicalLogLine() {
	c.Logger.Info("canonical-event-line",
		"likelihood", c.Score.Likelihood,
		"indicators", c.Score.Indicators.KeyStrings(),
		"accountFlags", c.effects.AccountFlags,
	)
}

func (c *PostContext) CanonicalLogLine() {
	c.Logger.Info("canonical-event-line",
		"comments", len(c.Comments),
		"counters", len(c.effects.CounterIncrements),
	)
}
