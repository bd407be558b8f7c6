package instagram

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensocialmonitor/vigil/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Username:        "operator",
		Logger:          slog.Default(),
		RequestInterval: time.Millisecond,
		BaseURL:         srv.URL,
	})
}

func TestAccountInfo(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/web_profile_info/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(webAppID, r.Header.Get("X-IG-App-ID"))
		switch r.URL.Query().Get("username") {
		case "suspicious_bot":
			w.Write([]byte(`{"data":{"user":{
				"id":"777",
				"username":"suspicious_bot",
				"full_name":"Totally Real",
				"biography":"dm for collab",
				"is_verified":false,
				"is_private":false,
				"profile_pic_url":"",
				"edge_followed_by":{"count":12},
				"edge_follow":{"count":4100},
				"edge_owner_to_timeline_media":{"count":1523}
			}}}`))
		case "ghost":
			w.Write([]byte(`{"data":{"user":null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := testClient(t, mux)

	info, err := c.AccountInfo(ctx, "suspicious_bot")
	require.NoError(t, err)
	assert.Equal("suspicious_bot", info.Username)
	assert.Equal(int64(12), info.FollowerCount)
	assert.Equal(int64(4100), info.FollowingCount)
	assert.Equal(int64(1523), info.MediaCount)
	assert.False(info.Verified)
	assert.False(info.HasProfilePic)

	// a null user in a 200 body still means not found
	_, err = c.AccountInfo(ctx, "ghost")
	assert.ErrorIs(err, platform.ErrNotFound)

	_, err = c.AccountInfo(ctx, "gone")
	assert.ErrorIs(err, platform.ErrNotFound)
}

func TestRecentPosts(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/web_profile_info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"user":{"id":"777","username":"acct","profile_pic_url":"https://cdn/pic.jpg"}}}`))
	})
	mux.HandleFunc("/api/v1/feed/user/777/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"pk":31001,"id":"31001_777","code":"AAAAAHSZ","taken_at":1723000000,"like_count":4,"comment_count":1,"caption":{"text":"first"}},
			{"pk":31000,"id":"31000_777","code":"AAAAAHSY","taken_at":1722900000,"like_count":2,"comment_count":0},
			{"pk":30999,"id":"30999_777","code":"AAAAAHSX","taken_at":1722800000,"like_count":9,"comment_count":3}
		],"more_available":true}`))
	})

	c := testClient(t, mux)

	posts, err := c.RecentPosts(ctx, "acct", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal("31001", posts[0].ID)
	assert.Equal("AAAAAHSZ", posts[0].Shortcode)
	assert.Equal("https://www.instagram.com/p/AAAAAHSZ/", posts[0].URL)
	assert.Equal("acct", posts[0].Author)
	assert.Equal("first", posts[0].Caption)
	require.NotNil(t, posts[0].TakenAt)
	assert.Equal(time.Unix(1723000000, 0).UTC(), *posts[0].TakenAt)
	assert.Equal(int64(4), posts[0].LikeCount)

	assert.Equal("31000", posts[1].ID)
	assert.Equal("", posts[1].Caption)
}

func TestPostComments(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/555/comments/", func(w http.ResponseWriter, r *http.Request) {
		// newest first, as the API sends them
		w.Write([]byte(`{"comment_count":3,"comments":[
			{"pk":3,"text":"newest","created_at_utc":300,"user":{"username":"carol"}},
			{"pk":2,"text":"middle","created_at_utc":200,"user":{"username":"bob"},"comment_like_count":5},
			{"pk":1,"text":"oldest","created_at_utc":100,"user":{"username":"alice"}}
		]}`))
	})

	c := testClient(t, mux)

	comments, err := c.PostComments(ctx, "555", 2)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	// newest two kept, returned oldest first
	assert.Equal("2", comments[0].ID)
	assert.Equal("bob", comments[0].Username)
	assert.Equal("middle", comments[0].Text)
	assert.Equal(int64(5), comments[0].LikeCount)
	assert.Equal("3", comments[1].ID)
	require.NotNil(t, comments[0].CreatedAt)
	assert.True(comments[0].CreatedAt.Before(*comments[1].CreatedAt))
}

func TestResolvePostURL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	// "BA" decodes to media ID 64
	mux.HandleFunc("/api/v1/media/64/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"pk":64,"code":"BA","taken_at":1723000000,"user":{"username":"acct"}}]}`))
	})

	c := testClient(t, mux)

	post, err := c.ResolvePostURL(ctx, "https://www.instagram.com/p/BA/")
	require.NoError(t, err)
	assert.Equal("64", post.ID)
	assert.Equal("acct", post.Author)
	assert.Equal("https://www.instagram.com/p/BA/", post.URL)

	_, err = c.ResolvePostURL(ctx, "https://www.instagram.com/about/")
	assert.Error(err)
}

func TestPostWarningReplyFallback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var attempts []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/555/comment/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		attempts = append(attempts, r.PostForm.Get("comment_text"))
		if r.PostForm.Get("replied_to_comment_id") != "" {
			// simulate the target comment having been deleted
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"comment not found","status":"fail"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	c := testClient(t, mux)

	err := c.PostWarningReply(ctx, "555", "90210", "spam_bot")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Contains(attempts[0], "@spam_bot")
	assert.Contains(attempts[1], "Re: @spam_bot")
}
