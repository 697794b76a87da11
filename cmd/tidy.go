package cmd

import (
	"fmt"
	"time"

	"github.com/marianfoo/bluesky-bots/store"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the posted-items database",
		Description: `Tidy up the database by removing posted records that are old.

		Removes records older than the given number of days. This keeps the
		database size down. Keep the window well above every source's item
		horizon or old items may be posted again.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "bots.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"BOTS_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "days",
				Value:   90,
				Usage:   "Remove posted records older than this many days",
				EnvVars: []string{"BOTS_TIDY_DAYS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)

			st, err := store.NewStore(database)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.Tidy(ctx.Context, time.Duration(ctx.Int("days"))*24*time.Hour)
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d posted records\n", removed)
			return nil
		},
	}
}
