package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opensocialmonitor/vigil/platform"

	"github.com/goccy/go-json"
)

// apiError is the JSON envelope Instagram returns alongside non-2xx statuses.
type apiError struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
}

func (c *Client) apiGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.apiBase + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) apiPost(ctx context.Context, path string, form url.Values, out interface{}) error {
	return c.postForm(ctx, c.apiBase+path, form, out)
}

func (c *Client) webPost(ctx context.Context, path string, form url.Values, out interface{}) error {
	return c.postForm(ctx, c.webBase+path, form, out)
}

func (c *Client) postForm(ctx context.Context, reqURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token := cookieValue(c.http.Jar, reqURL, "csrftoken"); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("instagram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("reading instagram response: %w", err)
	}

	if err := statusErr(resp.StatusCode, body); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding instagram response: %w", err)
	}
	return nil
}

// statusErr maps Instagram's HTTP status and error envelope onto the platform
// sentinel errors.
func statusErr(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}

	var ae apiError
	_ = json.Unmarshal(body, &ae)

	switch {
	case code == http.StatusNotFound:
		return platform.ErrNotFound
	case code == http.StatusTooManyRequests:
		return platform.ErrRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("instagram status %d (%s): %w", code, ae.Message, platform.ErrLoginRequired)
	case ae.Message == "login_required" || ae.ErrorType == "checkpoint_challenge_required":
		return fmt.Errorf("instagram challenge (%s): %w", ae.Message, platform.ErrLoginRequired)
	case ae.Message == "rate_limited" || ae.Message == "Please wait a few minutes before you try again.":
		return platform.ErrRateLimited
	default:
		return fmt.Errorf("instagram returned status %d: %s", code, ae.Message)
	}
}
