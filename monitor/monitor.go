// Package monitor is the runtime for scanning monitored accounts: it walks
// recent posts, scores every commenter, runs the configured rules, and
// persists the resulting detections, flags, and counters.
//
// The package splits responsibilities the same way throughout: detection
// holds the pure scoring math, platform does the network I/O, store the
// durable rows. This engine wires them together and owns all policy around
// thresholds, caching, and skip lists.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensocialmonitor/vigil/detection"
	"github.com/opensocialmonitor/vigil/monitor/cachestore"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
	"github.com/opensocialmonitor/vigil/monitor/flagstore"
	"github.com/opensocialmonitor/vigil/monitor/setstore"
	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/platform"
	"github.com/opensocialmonitor/vigil/store"
)

// Well-known set names the engine consults. Sets are loaded at startup (see
// setstore) and read-only while scans run.
const (
	// Accounts which are never scored or flagged, eg the operator's own
	// accounts and known-good partners.
	SetTrustedAccounts = "trusted-accounts"
	// Hosts whose links in comments mark promo spam.
	SetPromoDomains = "promo-domains"
)

type EngineConfig struct {
	// Likelihood at or above which a scored comment becomes a detection row
	// pending operator review.
	DetectionThreshold float64
	// How many recent posts to walk on each account sweep.
	PostLimit int
	// How many comments to fetch per post.
	CommentLimit int
	// How many recent posts to sample when computing activity metrics for a
	// commenter.
	ActivitySampleSize int
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DetectionThreshold: 0.6,
		PostLimit:          3,
		CommentLimit:       20,
		ActivitySampleSize: 20,
	}
}

// Runtime for executing scan rules, managing state, and recording detections.
//
// NOTE: careful when initializing: fields should not be null, even though
// they are pointer or interface type.
type Engine struct {
	Logger   *slog.Logger
	Platform platform.Client
	Store    *store.Store
	Rules    RuleSet
	Counters countstore.CountStore
	Sets     setstore.SetStore
	Cache    cachestore.CacheStore
	Flags    flagstore.FlagStore
	Config   EngineConfig
}

// ProcessAccount sweeps one monitored account: fetches its recent posts and
// scans any that have not been processed yet. The sweep continues past
// per-post failures but aborts on a dead session.
func (eng *Engine) ProcessAccount(ctx context.Context, username string) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("scan event execution exception", "err", r, "username", username)
		}
	}()
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventProcessDuration.WithLabelValues("account").Observe(duration.Seconds())
	}()

	username = normalize.Username(username)
	if username == "" {
		eventErrorCount.WithLabelValues("account").Inc()
		return fmt.Errorf("refusing to sweep empty username")
	}
	logger := eng.Logger.With("username", username)

	posts, err := eng.Platform.RecentPosts(ctx, username, eng.Config.PostLimit)
	if err != nil {
		eventErrorCount.WithLabelValues("account").Inc()
		return fmt.Errorf("fetching recent posts for %s: %w", username, err)
	}
	logger.Info("sweeping account", "posts", len(posts))

	var firstErr error
	for i := range posts {
		if err := eng.ProcessPost(ctx, &posts[i]); err != nil {
			if errors.Is(err, platform.ErrLoginRequired) {
				return err
			}
			logger.Error("post scan failed", "postID", posts[i].ID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := eng.Store.TouchLastChecked(ctx, username); err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("failed updating last-checked stamp", "err", err)
	}

	eventProcessCount.WithLabelValues("account").Inc()
	return firstErr
}

// SweepAccountPosts fetches an account's recent posts and returns the URLs
// of the ones not processed yet, so a dispatcher can queue each as its own
// scan job. Unlike ProcessAccount it fetches no comments itself.
func (eng *Engine) SweepAccountPosts(ctx context.Context, username string) ([]string, error) {
	username = normalize.Username(username)
	if username == "" {
		eventErrorCount.WithLabelValues("account").Inc()
		return nil, fmt.Errorf("refusing to sweep empty username")
	}
	logger := eng.Logger.With("username", username)

	posts, err := eng.Platform.RecentPosts(ctx, username, eng.Config.PostLimit)
	if err != nil {
		eventErrorCount.WithLabelValues("account").Inc()
		return nil, fmt.Errorf("fetching recent posts for %s: %w", username, err)
	}

	var targets []string
	for i := range posts {
		done, err := eng.Store.PostProcessed(ctx, posts[i].ID)
		if err != nil {
			eventErrorCount.WithLabelValues("account").Inc()
			return nil, fmt.Errorf("checking processed state: %w", err)
		}
		if !done {
			targets = append(targets, posts[i].URL)
		}
	}
	logger.Info("sweeping account", "posts", len(posts), "new", len(targets))

	if err := eng.Store.TouchLastChecked(ctx, username); err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("failed updating last-checked stamp", "err", err)
	}

	eventProcessCount.WithLabelValues("account").Inc()
	return targets, nil
}

// ProcessPostURL resolves a public post URL and scans it. Used by one-shot
// CLI scans and the admin API.
func (eng *Engine) ProcessPostURL(ctx context.Context, postURL string) error {
	post, err := eng.Platform.ResolvePostURL(ctx, postURL)
	if err != nil {
		return fmt.Errorf("resolving post: %w", err)
	}
	return eng.ProcessPost(ctx, post)
}

// ProcessPost scans a single post: scores every commenter, looks for
// coordinated clusters across the comment batch, runs post-level rules, and
// marks the post processed so subsequent sweeps skip it.
func (eng *Engine) ProcessPost(ctx context.Context, post *platform.Post) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("scan event execution exception", "err", r, "postID", post.ID)
		}
	}()
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventProcessDuration.WithLabelValues("post").Observe(duration.Seconds())
	}()

	logger := eng.Logger.With("postID", post.ID, "postAuthor", post.Author)

	done, err := eng.Store.PostProcessed(ctx, post.ID)
	if err != nil {
		eventErrorCount.WithLabelValues("post").Inc()
		return fmt.Errorf("checking processed state: %w", err)
	}
	if done {
		logger.Debug("post already processed, skipping")
		return nil
	}

	comments, err := eng.Platform.PostComments(ctx, post.ID, eng.Config.CommentLimit)
	if err != nil {
		eventErrorCount.WithLabelValues("post").Inc()
		return fmt.Errorf("fetching comments: %w", err)
	}
	logger.Info("scanning post", "comments", len(comments))

	for i := range comments {
		if err := eng.processComment(ctx, post, &comments[i]); err != nil {
			if errors.Is(err, platform.ErrLoginRequired) {
				return err
			}
			// one unscoreable commenter should not abort the whole post
			logger.Error("comment scan failed", "commentID", comments[i].ID, "err", err)
			eventErrorCount.WithLabelValues("comment").Inc()
		}
	}

	if err := eng.detectCoordination(ctx, post, comments); err != nil {
		logger.Error("coordination detection failed", "err", err)
	}

	pc := eng.NewPostContext(ctx, *post, comments)
	if err := eng.Rules.CallPostRules(&pc); err != nil {
		eventErrorCount.WithLabelValues("post").Inc()
		return err
	}
	if pc.Err != nil {
		logger.Warn("post rule state fetch failed", "err", pc.Err)
	}
	pc.CanonicalLogLine()
	if err := eng.persistCounters(ctx, pc.effects); err != nil {
		return err
	}

	if err := eng.Store.MarkPostProcessed(ctx, &store.ProcessedPost{
		PostID:   post.ID,
		URL:      post.URL,
		Account:  post.Author,
		Platform: "instagram",
	}); err != nil {
		return fmt.Errorf("marking post processed: %w", err)
	}

	eventProcessCount.WithLabelValues("post").Inc()
	return nil
}

// processComment scores a single commenter and runs the comment rules.
// Detections and flags land via the effects persist step.
func (eng *Engine) processComment(ctx context.Context, post *platform.Post, comment *platform.Comment) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventProcessDuration.WithLabelValues("comment").Observe(duration.Seconds())
	}()

	username := normalize.Username(comment.Username)
	if username == "" {
		return nil
	}
	// never score our own warning replies
	if username == normalize.Username(eng.Platform.Username()) {
		return nil
	}
	trusted, err := eng.Sets.InSet(ctx, SetTrustedAccounts, username)
	if err != nil {
		return fmt.Errorf("checking trusted set: %w", err)
	}
	if trusted {
		return nil
	}

	meta := eng.accountMetaBestEffort(ctx, username)
	cc := eng.NewCommentContext(ctx, *meta, *post, *comment)
	cc.Score = detection.ScoreAccount(username, comment.Text, meta.Profile)

	if err := eng.Rules.CallCommentRules(&cc); err != nil {
		return err
	}
	if cc.Err != nil {
		cc.Logger.Warn("comment rule state fetch failed", "err", cc.Err)
	}
	cc.CanonicalLogLine()
	if err := eng.persistCommentEffects(ctx, &cc); err != nil {
		return err
	}

	eventProcessCount.WithLabelValues("comment").Inc()
	return nil
}
