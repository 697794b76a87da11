package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "bluesky-bots",
		Usage: "A set of polling bots that post to Bluesky",
		Description: `A collection of independent polling bots for Bluesky.

		Each bot periodically fetches items from an external source (npm
		registry search, RSS feeds, subreddit listings, the account's own
		followers), skips everything already posted, and publishes a short
		post to Bluesky while keeping a minimum interval between posts.

		Which items have been posted is tracked in an SQLite database so
		restarts never cause duplicate posts.

		Flags can generally be set via environment variables, e.g.:

		--config => BOTS_CONFIG=bots.toml
		--database => BOTS_DATABASE=bots.db
		`,
		Commands: []*cli.Command{
			runCmd(),
			onceCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			loginCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
