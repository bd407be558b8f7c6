package instagram

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensocialmonitor/vigil/platform"
)

type edgeCount struct {
	Count int64 `json:"count"`
}

// webProfileUser is the profile shape returned by the web_profile_info
// endpoint. Only the fields the monitor consumes are declared.
type webProfileUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Biography     string `json:"biography"`
	ExternalURL   string `json:"external_url"`
	IsVerified    bool   `json:"is_verified"`
	IsPrivate     bool   `json:"is_private"`
	ProfilePicURL string `json:"profile_pic_url"`

	EdgeFollowedBy    edgeCount `json:"edge_followed_by"`
	EdgeFollow        edgeCount `json:"edge_follow"`
	EdgeTimelineMedia edgeCount `json:"edge_owner_to_timeline_media"`
}

func (u *webProfileUser) toAccountInfo() *platform.AccountInfo {
	return &platform.AccountInfo{
		Username:       u.Username,
		FullName:       u.FullName,
		Biography:      u.Biography,
		FollowerCount:  u.EdgeFollowedBy.Count,
		FollowingCount: u.EdgeFollow.Count,
		MediaCount:     u.EdgeTimelineMedia.Count,
		Verified:       u.IsVerified,
		Private:        u.IsPrivate,
		HasProfilePic:  u.ProfilePicURL != "",
		ExternalURL:    u.ExternalURL,
	}
}

// mediaItem is the post shape shared by the user feed and media info
// endpoints.
type mediaItem struct {
	PK           int64  `json:"pk"`
	ID           string `json:"id"`
	Code         string `json:"code"`
	TakenAt      int64  `json:"taken_at"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	Caption      *struct {
		Text string `json:"text"`
	} `json:"caption"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

// mediaID returns the numeric media ID as a string. Some endpoints omit the
// pk and only send the composite "<media>_<user>" id.
func (m *mediaItem) mediaID() string {
	if m.PK != 0 {
		return strconv.FormatInt(m.PK, 10)
	}
	if i := strings.IndexByte(m.ID, '_'); i > 0 {
		return m.ID[:i]
	}
	return m.ID
}

func (m *mediaItem) toPost(author string) platform.Post {
	p := platform.Post{
		ID:           m.mediaID(),
		Shortcode:    m.Code,
		Author:       author,
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
	}
	if m.User.Username != "" {
		p.Author = m.User.Username
	}
	if m.Code != "" {
		p.URL = "https://www.instagram.com/p/" + m.Code + "/"
	}
	if m.Caption != nil {
		p.Caption = m.Caption.Text
	}
	if m.TakenAt > 0 {
		t := time.Unix(m.TakenAt, 0).UTC()
		p.TakenAt = &t
	}
	return p
}

type commentItem struct {
	PK               int64  `json:"pk"`
	Text             string `json:"text"`
	CreatedAtUTC     int64  `json:"created_at_utc"`
	CommentLikeCount int64  `json:"comment_like_count"`
	User             struct {
		Username string `json:"username"`
	} `json:"user"`
}

func (ci *commentItem) toComment() platform.Comment {
	out := platform.Comment{
		ID:        strconv.FormatInt(ci.PK, 10),
		Username:  ci.User.Username,
		Text:      ci.Text,
		LikeCount: ci.CommentLikeCount,
	}
	if ci.CreatedAtUTC > 0 {
		t := time.Unix(ci.CreatedAtUTC, 0).UTC()
		out.CreatedAt = &t
	}
	return out
}

func (c *Client) fetchProfile(ctx context.Context, username string) (*webProfileUser, error) {
	q := url.Values{}
	q.Set("username", username)

	var resp struct {
		Data struct {
			User *webProfileUser `json:"user"`
		} `json:"data"`
	}
	if err := c.apiGet(ctx, "/api/v1/users/web_profile_info/", q, &resp); err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", username, err)
	}
	if resp.Data.User == nil {
		return nil, fmt.Errorf("profile %s: %w", username, platform.ErrNotFound)
	}
	return resp.Data.User, nil
}

func (c *Client) AccountInfo(ctx context.Context, username string) (*platform.AccountInfo, error) {
	u, err := c.fetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.toAccountInfo(), nil
}

func (c *Client) RecentPosts(ctx context.Context, username string, limit int) ([]platform.Post, error) {
	// the feed endpoint keys on the numeric user ID, so resolve the profile
	// first
	u, err := c.fetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("count", strconv.Itoa(limit))

	var feed struct {
		Items         []mediaItem `json:"items"`
		MoreAvailable bool        `json:"more_available"`
	}
	if err := c.apiGet(ctx, "/api/v1/feed/user/"+u.ID+"/", q, &feed); err != nil {
		return nil, fmt.Errorf("fetching feed for %s: %w", username, err)
	}

	posts := make([]platform.Post, 0, len(feed.Items))
	for i := range feed.Items {
		if limit > 0 && len(posts) >= limit {
			break
		}
		posts = append(posts, feed.Items[i].toPost(username))
	}
	return posts, nil
}

func (c *Client) ResolvePostURL(ctx context.Context, postURL string) (*platform.Post, error) {
	code, err := shortcodeFromURL(postURL)
	if err != nil {
		return nil, err
	}
	pk, err := mediaIDFromShortcode(code)
	if err != nil {
		return nil, fmt.Errorf("decoding shortcode %q: %w", code, err)
	}

	var resp struct {
		Items []mediaItem `json:"items"`
	}
	if err := c.apiGet(ctx, "/api/v1/media/"+strconv.FormatInt(pk, 10)+"/info/", nil, &resp); err != nil {
		return nil, fmt.Errorf("resolving post %s: %w", postURL, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("post %s: %w", postURL, platform.ErrNotFound)
	}
	post := resp.Items[0].toPost("")
	return &post, nil
}

func (c *Client) PostComments(ctx context.Context, postID string, limit int) ([]platform.Comment, error) {
	q := url.Values{}
	q.Set("can_support_threading", "true")

	var resp struct {
		Comments     []commentItem `json:"comments"`
		CommentCount int64         `json:"comment_count"`
	}
	if err := c.apiGet(ctx, "/api/v1/media/"+postID+"/comments/", q, &resp); err != nil {
		return nil, fmt.Errorf("fetching comments for post %s: %w", postID, err)
	}

	// the API returns newest first; keep the newest up to limit, then
	// present them oldest first
	items := resp.Comments
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]platform.Comment, 0, len(items))
	for i := range items {
		out = append(out, items[i].toComment())
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if ti == nil || tj == nil {
			return false
		}
		return ti.Before(*tj)
	})
	return out, nil
}
