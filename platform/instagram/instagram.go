// Package instagram implements platform.Client against Instagram's private
// web API. It keeps a persisted web session (sessionid cookie), paces all
// calls through a shared rate limiter, and maps Instagram's error surface to
// the platform sentinel errors.
//
// Only the handful of endpoints the monitoring engine needs are wrapped:
// profile info, recent posts, post comments, and comment replies.
package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/opensocialmonitor/vigil/platform"

	"golang.org/x/time/rate"
)

const (
	apiHost = "https://i.instagram.com"
	webHost = "https://www.instagram.com"

	// App ID the instagram.com web client sends on every API call.
	webAppID = "936619743392459"

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Minimum spacing between API calls. Instagram tolerates roughly one
	// call every couple of seconds from a logged-in web session.
	defaultRequestInterval = 1500 * time.Millisecond
)

type Config struct {
	Username string
	Password string
	Logger   *slog.Logger

	// RequestInterval overrides the pacing between API calls. Zero means the
	// default.
	RequestInterval time.Duration

	// BaseURL overrides both API hosts, for tests.
	BaseURL string
}

// Client talks to Instagram as the operator's account. It is safe for
// concurrent use; the rate limiter serializes the actual network calls.
type Client struct {
	logger   *slog.Logger
	http     *http.Client
	limiter  *rate.Limiter
	username string
	password string

	apiBase string
	webBase string

	loginLk  sync.Mutex
	loggedIn bool
}

var _ platform.Client = (*Client)(nil)

func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("platform", "instagram")

	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = defaultRequestInterval
	}

	apiBase := apiHost
	webBase := webHost
	if cfg.BaseURL != "" {
		apiBase = cfg.BaseURL
		webBase = cfg.BaseURL
	}

	return &Client{
		logger:   logger,
		http:     robustHTTPClient(logger),
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		username: cfg.Username,
		password: cfg.Password,
		apiBase:  apiBase,
		webBase:  webBase,
	}
}

func (c *Client) Username() string {
	return c.username
}

// Login resumes the persisted session if one exists and still works, and
// falls back to a fresh password login otherwise. Safe to call repeatedly;
// only the first successful call does work.
func (c *Client) Login(ctx context.Context) error {
	c.loginLk.Lock()
	defer c.loginLk.Unlock()

	if c.loggedIn {
		return nil
	}

	if sess, err := loadAuthSession(); err == nil && sess.Username == c.username {
		c.seedCookies(sess)
		if err := c.validateSession(ctx); err == nil {
			c.logger.Info("resumed instagram session", "username", c.username)
			c.loggedIn = true
			return nil
		}
		c.logger.Warn("persisted session no longer valid, attempting fresh login")
		if err := wipeAuthSession(); err != nil {
			c.logger.Warn("failed to remove stale session file", "err", err)
		}
	}

	if c.username == "" || c.password == "" {
		return fmt.Errorf("no usable session and no credentials configured: %w", platform.ErrLoginRequired)
	}
	return c.passwordLogin(ctx)
}

func (c *Client) seedCookies(sess *authSession) {
	for _, host := range []string{c.apiBase, c.webBase} {
		if u, err := url.Parse(host); err == nil {
			c.http.Jar.SetCookies(u, sess.sessionCookies())
		}
	}
}

// validateSession makes a cheap authenticated call to confirm the session
// cookie is still accepted.
func (c *Client) validateSession(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.apiGet(ctx, "/api/v1/accounts/current_user/", nil, &resp)
}

// passwordLogin performs the instagram.com web login flow: prime a CSRF
// cookie, then post credentials to the login endpoint.
func (c *Client) passwordLogin(ctx context.Context) error {
	if err := c.primeCSRF(ctx); err != nil {
		return fmt.Errorf("priming login csrf token: %w", err)
	}

	form := url.Values{}
	form.Set("username", c.username)
	// The web client sends the password wrapped in its browser envelope
	// format; version 0 is the plaintext-over-TLS fallback.
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), c.password))
	form.Set("optIntoOneTap", "false")

	var resp struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		Status        string `json:"status"`
	}
	if err := c.webPost(ctx, "/api/v1/web/accounts/login/ajax/", form, &resp); err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if !resp.Authenticated {
		return fmt.Errorf("credentials rejected for %s: %w", c.username, platform.ErrLoginRequired)
	}

	sess := &authSession{
		Username:  c.username,
		UserID:    resp.UserID,
		SessionID: cookieValue(c.http.Jar, c.webBase, "sessionid"),
		CSRFToken: cookieValue(c.http.Jar, c.webBase, "csrftoken"),
	}
	if err := persistAuthSession(sess); err != nil {
		c.logger.Warn("failed to persist instagram session", "err", err)
	}

	c.logger.Info("logged in to instagram", "username", c.username)
	c.loggedIn = true
	return nil
}

// primeCSRF fetches the login page so the server sets a csrftoken cookie,
// which the login POST must echo back in a header.
func (c *Client) primeCSRF(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.webBase+"/accounts/login/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("login page returned status %d", resp.StatusCode)
	}
	if cookieValue(c.http.Jar, c.webBase, "csrftoken") == "" {
		return fmt.Errorf("login page did not set a csrf cookie")
	}
	return nil
}
