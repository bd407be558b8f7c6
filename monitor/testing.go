package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensocialmonitor/vigil/monitor/cachestore"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
	"github.com/opensocialmonitor/vigil/monitor/flagstore"
	"github.com/opensocialmonitor/vigil/monitor/setstore"
	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/platform"
	"github.com/opensocialmonitor/vigil/store"
)

var _ CommentRuleFunc = simpleCommentRule

func simpleCommentRule(c *CommentContext) error {
	for _, raw := range normalize.ExtractTextURLs(c.Comment.Text) {
		if c.InSet(SetPromoDomains, normalize.URLHost(raw)) {
			c.AddAccountFlag("promo-link-spam")
			break
		}
	}
	return nil
}

// FakePlatform is an in-memory platform.Client for tests: profiles, posts,
// and comments are plain maps, and warning replies are recorded instead of
// posted. Exported so rule packages can drive the full engine pipeline.
type FakePlatform struct {
	Operator string
	Profiles map[string]*platform.AccountInfo
	// Posts is keyed by author username.
	Posts map[string][]platform.Post
	// Comments is keyed by post ID.
	Comments map[string][]platform.Comment

	// CommentsErr, when set, is returned by every PostComments call.
	CommentsErr error

	mu sync.Mutex
	// Warnings records PostWarningReply calls as "postID/commentID/username".
	Warnings []string
	// CommentFetches counts PostComments calls.
	CommentFetches int
}

var _ platform.Client = (*FakePlatform)(nil)

func (f *FakePlatform) Username() string {
	return f.Operator
}

func (f *FakePlatform) Login(ctx context.Context) error {
	return nil
}

func (f *FakePlatform) AccountInfo(ctx context.Context, username string) (*platform.AccountInfo, error) {
	info, ok := f.Profiles[username]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *info
	return &out, nil
}

func (f *FakePlatform) RecentPosts(ctx context.Context, username string, limit int) ([]platform.Post, error) {
	posts := f.Posts[username]
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *FakePlatform) ResolvePostURL(ctx context.Context, url string) (*platform.Post, error) {
	for _, posts := range f.Posts {
		for i := range posts {
			if posts[i].URL == url {
				out := posts[i]
				return &out, nil
			}
		}
	}
	return nil, platform.ErrNotFound
}

func (f *FakePlatform) PostComments(ctx context.Context, postID string, limit int) ([]platform.Comment, error) {
	f.mu.Lock()
	f.CommentFetches++
	f.mu.Unlock()
	if f.CommentsErr != nil {
		return nil, f.CommentsErr
	}
	comments := f.Comments[postID]
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (f *FakePlatform) PostWarningReply(ctx context.Context, postID, commentID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Warnings = append(f.Warnings, postID+"/"+commentID+"/"+username)
	return nil
}

// EngineTestFixture builds a fully in-memory engine: fake platform, mem
// stores, and an in-memory sqlite database. The trusted-accounts set contains
// "trusted_partner" and the promo-domains set "followboost.example.com".
func EngineTestFixture() Engine {
	rules := RuleSet{
		CommentRules: []CommentRuleFunc{
			simpleCommentRule,
		},
	}
	cache := cachestore.NewMemCacheStore(100, time.Hour)
	flags := flagstore.NewMemFlagStore()
	sets := setstore.NewMemSetStore()
	sets.Add(SetTrustedAccounts, "trusted_partner")
	sets.Add(SetPromoDomains, "followboost.example.com")

	db, err := store.SetupDatabase("sqlite://:memory:", 1)
	if err != nil {
		panic(err)
	}
	st, err := store.NewStore(db)
	if err != nil {
		panic(err)
	}

	fake := &FakePlatform{
		Operator: "vigil_operator",
		Profiles: map[string]*platform.AccountInfo{},
		Posts:    map[string][]platform.Post{},
		Comments: map[string][]platform.Comment{},
	}

	engine := Engine{
		Logger:   slog.Default(),
		Platform: fake,
		Store:    st,
		Counters: countstore.NewMemCountStore(),
		Sets:     sets,
		Flags:    flags,
		Cache:    cache,
		Rules:    rules,
		Config:   DefaultEngineConfig(),
	}
	return engine
}

// Helper to access the private effects field from a context. Intended for use
// in test code, *not* from rules.
func ExtractEffects(c *BaseContext) *Effects {
	return c.effects
}
