package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cli "github.com/urfave/cli/v2"

	"github.com/opensocialmonitor/vigil/monitor"
	"github.com/opensocialmonitor/vigil/monitor/cachestore"
	"github.com/opensocialmonitor/vigil/monitor/countstore"
	"github.com/opensocialmonitor/vigil/monitor/flagstore"
	"github.com/opensocialmonitor/vigil/monitor/rules"
	"github.com/opensocialmonitor/vigil/monitor/setstore"
)

var cmdScan = &cli.Command{
	Name:  "scan",
	Usage: "sub-commands for one-shot scans, without the daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "sets-json",
			Usage:   "file path of JSON file containing static sets (trusted accounts, promo domains)",
			EnvVars: []string{"VIGIL_SETS_JSON"},
		},
		&cli.Float64Flag{
			Name:    "detection-threshold",
			Usage:   "likelihood at or above which a comment is recorded for review",
			Value:   0.6,
			EnvVars: []string{"VIGIL_DETECTION_THRESHOLD"},
		},
		&cli.IntFlag{
			Name:    "post-limit",
			Usage:   "number of recent posts to scan for an account sweep",
			Value:   3,
			EnvVars: []string{"VIGIL_POST_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "comment-limit",
			Usage:   "number of comments to fetch per post",
			Value:   20,
			EnvVars: []string{"VIGIL_COMMENT_LIMIT"},
		},
	},
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:      "post",
			Usage:     "scan the comments on a single post",
			ArgsUsage: `<url>`,
			Action:    runScanPost,
		},
		&cli.Command{
			Name:      "account",
			Usage:     "sweep one account's recent posts",
			ArgsUsage: `<username>`,
			Action:    runScanAccount,
		},
	},
}

// scanEngine builds an engine with in-memory counters and flags. Detections
// and processed posts still land in the shared database, so one-shot scans do
// not re-warn on comments the daemon already handled.
func scanEngine(cctx *cli.Context) (*monitor.Engine, error) {
	st, err := openStore(cctx)
	if err != nil {
		return nil, err
	}

	client := platformClient(cctx)
	if err := client.Login(cctx.Context); err != nil {
		return nil, fmt.Errorf("platform login failed: %w", err)
	}

	sets := setstore.NewMemSetStore()
	if p := cctx.String("sets-json"); p != "" {
		if err := sets.LoadFromFileJSON(p); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		}
	}

	config := monitor.DefaultEngineConfig()
	if v := cctx.Float64("detection-threshold"); v > 0 {
		config.DetectionThreshold = v
	}
	if v := cctx.Int("post-limit"); v > 0 {
		config.PostLimit = v
	}
	if v := cctx.Int("comment-limit"); v > 0 {
		config.CommentLimit = v
	}

	engine := &monitor.Engine{
		Logger:   slog.Default(),
		Platform: client,
		Store:    st,
		Rules:    rules.DefaultRules(),
		Counters: countstore.NewMemCountStore(),
		Sets:     sets,
		Cache:    cachestore.NewMemCacheStore(5_000, 30*time.Minute),
		Flags:    flagstore.NewMemFlagStore(),
		Config:   config,
	}
	return engine, nil
}

func runScanPost(cctx *cli.Context) error {
	url := cctx.Args().First()
	if url == "" {
		return fmt.Errorf("post URL is required")
	}

	engine, err := scanEngine(cctx)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := engine.ProcessPostURL(cctx.Context, url); err != nil {
		return err
	}
	return printScanResults(cctx, engine, start)
}

func runScanAccount(cctx *cli.Context) error {
	username, err := usernameArg(cctx)
	if err != nil {
		return err
	}

	engine, err := scanEngine(cctx)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := engine.ProcessAccount(cctx.Context, username); err != nil {
		return err
	}
	return printScanResults(cctx, engine, start)
}

// printScanResults dumps the detections this scan recorded. Per-comment
// scores were already logged as the scan ran.
func printScanResults(cctx *cli.Context, engine *monitor.Engine, start time.Time) error {
	detections, err := engine.Store.DetectionsSince(cctx.Context, start, 0)
	if err != nil {
		return err
	}
	if len(detections) == 0 {
		fmt.Println("scan complete, no new detections")
		return nil
	}
	out, err := json.MarshalIndent(detections, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Printf("scan complete, %d new detection(s) pending in 'vigil review list'\n", len(detections))
	return nil
}
