package monitor

import (
	"context"
	"fmt"

	"github.com/opensocialmonitor/vigil/detection"
	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/platform"
	"github.com/opensocialmonitor/vigil/store"
)

// Flag applied to every account participating in a detected comment cluster.
const coordinationFlag = "coordinated-activity"

// detectCoordination clusters near-identical comment texts across a post's
// comment batch, persists a report per cluster, and flags every participant.
// This runs once per post, after individual comments were scored.
func (eng *Engine) detectCoordination(ctx context.Context, post *platform.Post, comments []platform.Comment) error {
	operator := normalize.Username(eng.Platform.Username())
	clusters := detection.DetectCoordination(detectionComments(comments, operator))
	if len(clusters) == 0 {
		return nil
	}

	logger := eng.Logger.With("postID", post.ID)
	for _, cluster := range clusters {
		report := &store.CoordinationReport{
			PostID:       post.ID,
			Text:         cluster.Text,
			Users:        cluster.Users,
			CommentCount: cluster.CommentCount,
			Confidence:   cluster.Confidence,
		}
		if err := eng.Store.RecordCoordination(ctx, report); err != nil {
			return fmt.Errorf("recording coordination report: %w", err)
		}
		coordinationReports.Inc()

		for _, username := range cluster.Users {
			if err := eng.Flags.Add(ctx, username, []string{coordinationFlag}); err != nil {
				return fmt.Errorf("flagging coordinated account %s: %w", username, err)
			}
		}
		logger.Warn("coordinated comment cluster detected",
			"text", cluster.Text,
			"users", cluster.Users,
			"count", cluster.CommentCount,
			"confidence", cluster.Confidence,
		)
	}
	return nil
}
