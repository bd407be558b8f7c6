// Package platform defines the social-platform client surface the monitoring
// engine talks to: profile lookups, post and comment fetches, and warning
// replies. Implementations (see the instagram subpackage) are thin API
// wrappers; all decision logic stays in the detection and monitor packages.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLoginRequired means the session is missing or expired. Retrying
	// without operator intervention will not help.
	ErrLoginRequired = errors.New("platform: login required")

	// ErrNotFound covers deleted accounts and posts.
	ErrNotFound = errors.New("platform: not found")

	// ErrRateLimited means the platform asked us to back off.
	ErrRateLimited = errors.New("platform: rate limited")
)

// AccountInfo is a platform account profile snapshot.
type AccountInfo struct {
	Username       string
	FullName       string
	Biography      string
	FollowerCount  int64
	FollowingCount int64
	MediaCount     int64
	Verified       bool
	Private        bool
	HasProfilePic  bool
	ExternalURL    string
}

// Post is one published post on a monitored account.
type Post struct {
	ID           string
	Shortcode    string
	URL          string
	Author       string
	Caption      string
	TakenAt      *time.Time
	LikeCount    int64
	CommentCount int64
}

// Comment is one comment on a post.
type Comment struct {
	ID        string
	Username  string
	Text      string
	CreatedAt *time.Time
	LikeCount int64
}

// Client is the read/write surface against one platform, authenticated as the
// operator's account. Implementations must be safe for concurrent use; they
// are called from parallel scan workers.
type Client interface {
	// Username returns the handle the client is logged in as.
	Username() string

	// Login establishes or validates the session. ErrLoginRequired from any
	// other method means the session died and a new Login (likely with fresh
	// credentials) is needed.
	Login(ctx context.Context) error

	AccountInfo(ctx context.Context, username string) (*AccountInfo, error)

	// RecentPosts returns up to limit of the account's latest posts, newest
	// first.
	RecentPosts(ctx context.Context, username string, limit int) ([]Post, error)

	// ResolvePostURL turns a public post URL into a Post.
	ResolvePostURL(ctx context.Context, url string) (*Post, error)

	// PostComments returns up to limit comments on a post, oldest first.
	PostComments(ctx context.Context, postID string, limit int) ([]Comment, error)

	// PostWarningReply publishes a reply under a comment warning other users
	// that the comment looks automated.
	PostWarningReply(ctx context.Context, postID, commentID, username string) error
}
