package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marianfoo/bluesky-bots/bluesky"
	"github.com/marianfoo/bluesky-bots/bots"
	"github.com/marianfoo/bluesky-bots/compose"
	"github.com/marianfoo/bluesky-bots/config"
	"github.com/marianfoo/bluesky-bots/models"
	"github.com/marianfoo/bluesky-bots/server"
	"github.com/marianfoo/bluesky-bots/sources"
	"github.com/marianfoo/bluesky-bots/store"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run all enabled bots",
		Description: `Starts every bot enabled in the configuration file plus the status
HTTP server.

Each bot polls its source on its own interval and publishes new items to
Bluesky with the configured account. The posted-items database is migrated
automatically on startup.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "bots.toml",
				Usage:   "Path to bots configuration file",
				EnvVars: []string{"BOTS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location (overrides config)",
				EnvVars: []string{"BOTS_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "handle",
				Usage:   "Bluesky handle of the posting account",
				EnvVars: []string{"BOTS_HANDLE"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "App password of the posting account",
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
			// Pick up credentials from a local .env file if present
			godotenv.Load()

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

			handle := ctx.String("handle")
			password := ctx.String("password")
			if handle == "" || password == "" {
				return errors.New("please provide both --handle and --password")
			}

			client, err := bluesky.ClientFromCredentials(ctx.Context, ctx.String("pds"), &bluesky.Credentials{
				Identifier: handle,
				Password:   password,
			})
			if err != nil {
				return fmt.Errorf("could not create client with provided credentials: %w", err)
			}

			log.WithFields(log.Fields{
				"handle": client.Handle(),
				"did":    client.Did(),
			}).Info("Authenticated with Bluesky")

			httpClient := sources.NewHTTPClient(cfg.Global.UserAgent)
			publisher := bots.NewBlueskyPublisher(client, httpClient)

			broadcaster := server.NewBroadcaster()
			botList := buildBots(cfg, st, client, httpClient, publisher, broadcaster.BroadcastPublish)
			if len(botList) == 0 {
				return errors.New("no bots enabled in config")
			}

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				cancel()
			}()

			var wg sync.WaitGroup
			for _, bot := range botList {
				wg.Add(1)
				go func(b *bots.Bot) {
					defer wg.Done()
					b.Run(runCtx)
				}(bot)
			}

			var app = server.Server(&server.ServerConfig{
				Store:       st,
				Broadcaster: broadcaster,
			})
			if cfg.Server.Enabled {
				go func() {
					log.WithFields(log.Fields{
						"port": cfg.Server.Port,
					}).Info("Starting status server")
					if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
						log.Error("Status server stopped: ", err)
					}
				}()
			}

			wg.Wait()

			if cfg.Server.Enabled {
				app.ShutdownWithTimeout(10 * time.Second)
			}
			broadcaster.Shutdown()

			log.Info("Done!")
			return nil
		},
	}
}

// buildBots assembles one engine per enabled bot section in the config.
func buildBots(
	cfg *config.TomlConfig,
	st *store.Store,
	client *bluesky.Client,
	httpClient *http.Client,
	publisher bots.Publisher,
	broadcast func(event models.PublishEvent),
) []*bots.Bot {
	shared := bots.Config{
		Store:           st,
		Publisher:       publisher,
		MinPostInterval: cfg.Global.MinPostInterval.Duration,
		MaxPerCycle:     cfg.Global.MaxPerCycle,
		SeedOnFirstRun:  cfg.Global.SeedOnFirstRun,
		Broadcast:       broadcast,
	}

	var botList []*bots.Bot

	for _, bot := range cfg.Npm {
		botConfig := shared
		botConfig.Name = bot.Name
		botConfig.Source = sources.NewNpmSearch(httpClient, bot.Query, bot.Size)
		botConfig.Composer = compose.NpmRelease
		botConfig.Tags = bot.Tags
		botConfig.Interval = bot.Interval.Duration
		botList = append(botList, bots.New(botConfig))
	}

	for _, bot := range cfg.Rss {
		botConfig := shared
		botConfig.Name = bot.Name
		botConfig.Source = sources.NewRSSFeed(httpClient, bot.URL)
		botConfig.Composer = compose.RSSEntry
		botConfig.Tags = bot.Tags
		botConfig.Interval = bot.Interval.Duration
		botList = append(botList, bots.New(botConfig))
	}

	for _, bot := range cfg.Reddit {
		botConfig := shared
		botConfig.Name = bot.Name
		botConfig.Source = sources.NewSubreddit(httpClient, bot.Subreddit, bot.Limit)
		botConfig.Composer = compose.RedditPost(bot.Subreddit)
		botConfig.Tags = bot.Tags
		botConfig.Interval = bot.Interval.Duration
		botList = append(botList, bots.New(botConfig))
	}

	if cfg.Followers.Enabled {
		botConfig := shared
		botConfig.Name = "followers"
		botConfig.Source = sources.NewFollowers(client)
		botConfig.Composer = compose.Welcome(cfg.Followers.Message)
		botConfig.Interval = cfg.Followers.Interval.Duration
		botList = append(botList, bots.New(botConfig))
	}

	return botList
}
