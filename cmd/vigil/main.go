package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/carlmjohnson/versioninfo"
	cli "github.com/urfave/cli/v2"

	"github.com/opensocialmonitor/vigil/platform/instagram"
	"github.com/opensocialmonitor/vigil/store"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "vigil",
		Usage:   "comment monitoring daemon (scores commenters for automated behavior)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string (sqlite:// or postgres://)",
			Value:   "sqlite://data/vigil/vigil.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "instagram-username",
			Usage:   "operator account used for API access and warning replies",
			EnvVars: []string{"VIGIL_INSTAGRAM_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "instagram-password",
			EnvVars: []string{"VIGIL_INSTAGRAM_PASSWORD"},
		},
		&cli.DurationFlag{
			Name:    "request-interval",
			Usage:   "minimum delay between platform API requests",
			Value:   1500 * time.Millisecond,
			EnvVars: []string{"VIGIL_REQUEST_INTERVAL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		cmdAccount,
		cmdReview,
		cmdScan,
		cmdLogin,
		cmdStats,
	}

	return app.Run(args)
}

func openStore(cctx *cli.Context) (*store.Store, error) {
	db, err := store.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return nil, err
	}
	return store.NewStore(db)
}

func platformClient(cctx *cli.Context) *instagram.Client {
	return instagram.NewClient(instagram.Config{
		Username:        cctx.String("instagram-username"),
		Password:        cctx.String("instagram-password"),
		RequestInterval: cctx.Duration("request-interval"),
	})
}

var cmdLogin = &cli.Command{
	Name:  "login",
	Usage: "create and persist a platform session",
	Action: func(cctx *cli.Context) error {
		client := platformClient(cctx)
		if err := client.Login(cctx.Context); err != nil {
			return err
		}
		fmt.Printf("logged in as %s, session persisted\n", client.Username())
		return nil
	},
}

var cmdStats = &cli.Command{
	Name:  "stats",
	Usage: "print monitoring totals",
	Action: func(cctx *cli.Context) error {
		st, err := openStore(cctx)
		if err != nil {
			return err
		}
		stats, err := st.GetStats(cctx.Context)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
