package main

import (
	"encoding/json"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v2"

	"github.com/opensocialmonitor/vigil/dispatch"
	"github.com/opensocialmonitor/vigil/normalize"
	"github.com/opensocialmonitor/vigil/store"
)

var cmdAccount = &cli.Command{
	Name:  "account",
	Usage: "sub-commands for managing monitored accounts",
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:      "add",
			Usage:     "start monitoring an account",
			ArgsUsage: `<username>`,
			Action:    runAccountAdd,
		},
		&cli.Command{
			Name:  "list",
			Usage: "list monitored accounts",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "all",
					Usage: "include disabled accounts",
				},
			},
			Action: runAccountList,
		},
		&cli.Command{
			Name:      "enable",
			Usage:     "resume monitoring an account",
			ArgsUsage: `<username>`,
			Action:    runAccountEnable,
		},
		&cli.Command{
			Name:      "disable",
			Usage:     "pause monitoring without losing history",
			ArgsUsage: `<username>`,
			Action:    runAccountDisable,
		},
	},
}

func usernameArg(cctx *cli.Context) (string, error) {
	username := normalize.Username(cctx.Args().First())
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	return username, nil
}

func runAccountAdd(cctx *cli.Context) error {
	username, err := usernameArg(cctx)
	if err != nil {
		return err
	}
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	acct, err := st.AddMonitoredAccount(cctx.Context, username, "instagram")
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("already monitoring %s", username)
	}
	if err != nil {
		return err
	}
	fmt.Printf("monitoring %s (id %d); it will be swept on the next scheduler pass\n", acct.Username, acct.ID)
	return nil
}

func runAccountList(cctx *cli.Context) error {
	st, err := openStore(cctx)
	if err != nil {
		return err
	}

	accounts, err := st.ListMonitoredAccounts(cctx.Context, !cctx.Bool("all"))
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAccountEnable(cctx *cli.Context) error {
	return setAccountActive(cctx, true)
}

func runAccountDisable(cctx *cli.Context) error {
	return setAccountActive(cctx, false)
}

func setAccountActive(cctx *cli.Context, active bool) error {
	username, err := usernameArg(cctx)
	if err != nil {
		return err
	}
	db, err := store.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return err
	}
	st, err := store.NewStore(db)
	if err != nil {
		return err
	}

	if err := st.SetAccountActive(cctx.Context, username, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("not monitoring %s", username)
		}
		return err
	}

	if !active {
		// drop any queued sweep so the next scheduler pass doesn't run it
		if err := db.AutoMigrate(&dispatch.GormDBJob{}); err != nil {
			return err
		}
		jobs := dispatch.NewGormstore(db)
		if err := jobs.PurgeTarget(cctx.Context, dispatch.KindAccount, username); err != nil {
			return err
		}
	}

	if active {
		fmt.Printf("monitoring resumed for %s\n", username)
	} else {
		fmt.Printf("monitoring paused for %s\n", username)
	}
	return nil
}
