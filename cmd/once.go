package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marianfoo/bluesky-bots/bluesky"
	"github.com/marianfoo/bluesky-bots/bots"
	"github.com/marianfoo/bluesky-bots/config"
	"github.com/marianfoo/bluesky-bots/models"
	"github.com/marianfoo/bluesky-bots/sources"
	"github.com/marianfoo/bluesky-bots/store"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func onceCmd() *cli.Command {
	return &cli.Command{
		Name:  "once",
		Usage: "Run a single fetch cycle for one bot without posting",
		Description: `Fetches the configured source for one bot, filters out items that
have already been posted, and prints the remaining items to stdout.

Nothing is published and nothing is recorded, so this is safe to use for
inspecting what a bot would post next.

Returns each item as a JSON object on a single line. Use a tool like jq to
process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "bots.toml",
				Usage:   "Path to bots configuration file",
				EnvVars: []string{"BOTS_CONFIG"},
			},
			&cli.StringFlag{
				Name:     "bot",
				Aliases:  []string{"b"},
				Usage:    "Name of the bot to run (\"followers\" for the follower bot)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location (overrides config)",
				EnvVars: []string{"BOTS_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "handle",
				Usage:   "Bluesky handle, only needed for the followers bot",
				EnvVars: []string{"BOTS_HANDLE"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "App password, only needed for the followers bot",
				EnvVars: []string{"BOTS_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "pds",
				Value:   bluesky.DefaultPDSHost,
				Usage:   "PDS host to create the session against",
				EnvVars: []string{"BOTS_PDS_HOST"},
			},
		},
		Action: func(ctx *cli.Context) error {
			godotenv.Load()

			// Keep stdout clean for the JSON lines
			log.SetOutput(os.Stderr)

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database := cfg.Global.Database
			if ctx.String("database") != "" {
				database = ctx.String("database")
			}

			if err := store.Migrate(database); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			st, err := store.NewStore(database)
			if err != nil {
				return err
			}
			defer st.Close()

			name := ctx.String("bot")
			source, err := buildSource(ctx, cfg, name)
			if err != nil {
				return err
			}

			bot := bots.New(bots.Config{
				Name:   name,
				Source: source,
				Store:  st,
			})

			items, err := source.Fetch(ctx.Context)
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			fresh, err := bot.NewItems(ctx.Context, items)
			if err != nil {
				return fmt.Errorf("filtering items failed: %w", err)
			}

			if err := writeItems(os.Stdout, fresh); err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"bot":     name,
				"fetched": len(items),
				"new":     len(fresh),
			}).Info("Dry run finished")

			return nil
		},
	}
}

// buildSource resolves a bot name from the config to its source.
func buildSource(ctx *cli.Context, cfg *config.TomlConfig, name string) (bots.Source, error) {
	httpClient := sources.NewHTTPClient(cfg.Global.UserAgent)

	for _, bot := range cfg.Npm {
		if bot.Name == name {
			return sources.NewNpmSearch(httpClient, bot.Query, bot.Size), nil
		}
	}
	for _, bot := range cfg.Rss {
		if bot.Name == name {
			return sources.NewRSSFeed(httpClient, bot.URL), nil
		}
	}
	for _, bot := range cfg.Reddit {
		if bot.Name == name {
			return sources.NewSubreddit(httpClient, bot.Subreddit, bot.Limit), nil
		}
	}

	if name == "followers" {
		if !cfg.Followers.Enabled {
			return nil, errors.New("followers bot is not enabled in config")
		}
		handle := ctx.String("handle")
		password := ctx.String("password")
		if handle == "" || password == "" {
			return nil, errors.New("the followers bot needs --handle and --password")
		}
		client, err := bluesky.ClientFromCredentials(ctx.Context, ctx.String("pds"), &bluesky.Credentials{
			Identifier: handle,
			Password:   password,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create client with provided credentials: %w", err)
		}
		return sources.NewFollowers(client), nil
	}

	return nil, fmt.Errorf("no bot named %s in config", name)
}

// writeItems prints each item as a JSON object on its own line.
func writeItems(w io.Writer, items []models.Item) error {
	encoder := json.NewEncoder(w)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.Key, err)
		}
	}
	return nil
}
