package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/opensocialmonitor/vigil/detection"
	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/platform"

	"github.com/goccy/go-json"
)

const accountMetaCacheName = "acct-meta"

// GetAccountMeta fetches a commenter's profile snapshot, from cache when
// possible. A cache hit costs nothing; a miss costs one profile API call plus
// (for public accounts with enough posts) one feed call for activity metrics.
func (eng *Engine) GetAccountMeta(ctx context.Context, username string) (*AccountMeta, error) {
	logger := eng.Logger.With("username", username)

	existing, err := eng.Cache.Get(ctx, accountMetaCacheName, username)
	if err != nil {
		return nil, fmt.Errorf("failed checking account meta cache: %w", err)
	}
	if existing != "" {
		var am AccountMeta
		if err := json.Unmarshal([]byte(existing), &am); err != nil {
			return nil, fmt.Errorf("parsing AccountMeta from cache: %v", err)
		}
		return &am, nil
	}

	accountMetaFetches.Inc()
	info, err := eng.Platform.AccountInfo(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetching account info: %w", err)
	}

	am := AccountMeta{
		Username:  username,
		Profile:   profileMetrics(info),
		Private:   info.Private,
		FetchedAt: time.Now().UTC(),
	}

	// activity metrics need post timestamps, which private accounts hide
	if !info.Private && info.MediaCount >= 2 && !info.Verified {
		posts, err := eng.Platform.RecentPosts(ctx, username, eng.Config.ActivitySampleSize)
		if err != nil {
			logger.Warn("failed fetching activity sample, scoring without it", "err", err)
		} else {
			regularity, engagement := detection.ComputeActivityMetrics(activitySamples(posts), info.FollowerCount)
			am.Profile.PostingRegularity = regularity
			am.Profile.AvgEngagementRate = engagement
		}
	}

	val, err := json.Marshal(am)
	if err != nil {
		return nil, err
	}
	if err := eng.Cache.Set(ctx, accountMetaCacheName, username, string(val)); err != nil {
		logger.Error("writing to account meta cache failed", "err", err)
	}
	return &am, nil
}

// accountMetaBestEffort degrades to a metadata-free AccountMeta when the
// profile fetch fails, so scoring can still use comment text and username
// signals.
func (eng *Engine) accountMetaBestEffort(ctx context.Context, username string) *AccountMeta {
	am, err := eng.GetAccountMeta(ctx, username)
	if err != nil {
		eng.Logger.Warn("account meta unavailable, scoring degraded", "username", username, "err", err)
		return &AccountMeta{Username: username, FetchedAt: time.Now().UTC()}
	}
	return am
}

// PurgeAccountCaches drops any cached metadata for an account, forcing a
// fresh profile fetch on next contact.
func (eng *Engine) PurgeAccountCaches(ctx context.Context, username string) error {
	return eng.Cache.Purge(ctx, accountMetaCacheName, username)
}

func profileMetrics(info *platform.AccountInfo) *detection.ProfileMetrics {
	return &detection.ProfileMetrics{
		FollowerCount:  info.FollowerCount,
		FollowingCount: info.FollowingCount,
		PostCount:      info.MediaCount,
		Verified:       info.Verified,
		HasProfilePic:  info.HasProfilePic,
	}
}

func activitySamples(posts []platform.Post) []detection.ActivitySample {
	samples := make([]detection.ActivitySample, 0, len(posts))
	for _, p := range posts {
		if p.TakenAt == nil {
			continue
		}
		samples = append(samples, detection.ActivitySample{
			Time:     *p.TakenAt,
			Likes:    p.LikeCount,
			Comments: p.CommentCount,
		})
	}
	return samples
}

// detectionComments converts a fetched comment batch for the clustering
// pass, normalizing usernames and dropping the operator's own replies.
// skipUsername must already be normalized.
func detectionComments(comments []platform.Comment, skipUsername string) []detection.Comment {
	out := make([]detection.Comment, 0, len(comments))
	for _, cm := range comments {
		username := normalize.Username(cm.Username)
		if username == "" || username == skipUsername {
			continue
		}
		out = append(out, detection.Comment{
			ID:        cm.ID,
			Username:  username,
			Text:      cm.Text,
			CreatedAt: cm.CreatedAt,
		})
	}
	return out
}
