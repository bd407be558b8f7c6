package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/araddon/dateparse"
	cli "github.com/urfave/cli/v2"

	"github.com/opensocialmonitor/vigil/store"
)

var cmdReview = &cli.Command{
	Name:  "review",
	Usage: "sub-commands for reviewing detections and sending warnings",
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:  "list",
			Usage: "list detections pending review",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
				},
				&cli.StringFlag{
					Name:  "since",
					Usage: "list all detections since this timestamp instead of just pending ones",
				},
			},
			Action: runReviewList,
		},
		&cli.Command{
			Name:      "view",
			Usage:     "print one detection in full",
			ArgsUsage: `<id>`,
			Action:    runReviewView,
		},
		&cli.Command{
			Name:      "approve",
			Usage:     "confirm a detection and post the public warning reply",
			ArgsUsage: `<id>`,
			Action:    runReviewApprove,
		},
		&cli.Command{
			Name:      "reject",
			Usage:     "dismiss a detection without posting a warning",
			ArgsUsage: `<id>`,
			Action:    runReviewReject,
		},
	},
}

func detectionIDArg(cctx *cli.Context) (uint, error) {
	raw := cctx.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("detection id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid detection id: %q", raw)
	}
	return uint(id), nil
}

func runReviewList(cctx *cli.Context) error {
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	var detections []store.Detection
	if q := cctx.String("since"); q != "" {
		since, err := dateparse.ParseAny(q)
		if err != nil {
			return fmt.Errorf("invalid since timestamp: %w", err)
		}
		detections, err = st.DetectionsSince(cctx.Context, since, cctx.Int("limit"))
		if err != nil {
			return err
		}
	} else {
		detections, err = st.PendingDetections(cctx.Context, cctx.Int("limit"))
		if err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(detections, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReviewView(cctx *cli.Context) error {
	id, err := detectionIDArg(cctx)
	if err != nil {
		return err
	}
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	det, err := st.GetDetection(cctx.Context, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no detection with id %d", id)
	}
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(det, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReviewApprove(cctx *cli.Context) error {
	id, err := detectionIDArg(cctx)
	if err != nil {
		return err
	}
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	det, err := st.GetDetection(cctx.Context, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no detection with id %d", id)
	}
	if err != nil {
		return err
	}
	if det.WarningSent {
		return fmt.Errorf("detection %d was already reviewed", id)
	}

	client := platformClient(cctx)
	if err := client.Login(cctx.Context); err != nil {
		return err
	}
	if err := client.PostWarningReply(cctx.Context, det.PostID, det.CommentID, det.Username); err != nil {
		return fmt.Errorf("posting warning reply: %w", err)
	}
	if err := st.SetWarningStatus(cctx.Context, id, true, true); err != nil {
		return err
	}
	fmt.Printf("warning posted for @%s on post %s\n", det.Username, det.PostID)
	return nil
}

func runReviewReject(cctx *cli.Context) error {
	id, err := detectionIDArg(cctx)
	if err != nil {
		return err
	}
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	det, err := st.GetDetection(cctx.Context, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no detection with id %d", id)
	}
	if err != nil {
		return err
	}
	if det.WarningSent {
		return fmt.Errorf("detection %d was already reviewed", id)
	}

	if err := st.SetWarningStatus(cctx.Context, id, true, false); err != nil {
		return err
	}
	fmt.Printf("detection %d dismissed, no warning sent\n", id)
	return nil
}
