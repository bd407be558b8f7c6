package instagram

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"

	"github.com/opensocialmonitor/vigil/platform"
)

// Rotating warning texts, so repeated replies from the operator account don't
// all read identically.
var warningMessages = []string{
	"⚠️ This account (@%s) shows patterns of automated behavior. Be cautious with this information.",
	"🤖 Activity analysis suggests @%s may be automated. Verify claims independently.",
	"📝 Automated account alert: @%s displays bot-like behavior patterns.",
}

func warningText(username string) string {
	return fmt.Sprintf(warningMessages[rand.Intn(len(warningMessages))], username)
}

func (c *Client) PostWarningReply(ctx context.Context, postID, commentID, username string) error {
	text := warningText(username)

	form := url.Values{}
	form.Set("comment_text", text)
	if commentID != "" {
		form.Set("replied_to_comment_id", commentID)
	}

	err := c.apiPost(ctx, "/api/v1/media/"+postID+"/comment/", form, nil)
	if err == nil {
		c.logger.Info("posted warning reply", "post", postID, "target", username)
		return nil
	}
	if commentID == "" || errors.Is(err, platform.ErrLoginRequired) || errors.Is(err, platform.ErrRateLimited) {
		return fmt.Errorf("posting warning comment: %w", err)
	}

	// Threaded replies can be rejected when the target comment was deleted
	// or the author restricted replies. Fall back to a top-level comment
	// that still names the account.
	c.logger.Warn("warning reply failed, posting top-level instead", "post", postID, "err", err)
	form = url.Values{}
	form.Set("comment_text", fmt.Sprintf("⚠️ Re: @%s - %s", username, text))
	if err := c.apiPost(ctx, "/api/v1/media/"+postID+"/comment/", form, nil); err != nil {
		return fmt.Errorf("posting warning comment: %w", err)
	}
	c.logger.Info("posted top-level warning", "post", postID, "target", username)
	return nil
}
