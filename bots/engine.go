// Package bots runs the poll-and-post loop shared by all bot kinds. A Bot
// periodically fetches items from its source, diffs them against the
// posted-items set, and publishes the new ones oldest first while keeping a
// minimum spacing between posts.
package bots

import (
	"context"
	"sort"
	"time"

	"github.com/marianfoo/bluesky-bots/compose"
	"github.com/marianfoo/bluesky-bots/models"
	"github.com/marianfoo/bluesky-bots/store"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Composer turns a source item into a post payload.
type Composer func(item models.Item, tags []string) compose.Post

// Source is re-declared here so the engine does not depend on the sources
// package; any fetcher with this shape plugs in.
type Source interface {
	Fetch(ctx context.Context) ([]models.Item, error)
}

// Config wires up a single bot.
type Config struct {
	Name            string
	Source          Source
	Composer        Composer
	Tags            []string
	Store           *store.Store
	Publisher       Publisher
	Interval        time.Duration
	MinPostInterval time.Duration
	MaxPerCycle     int
	SeedOnFirstRun  bool

	// Broadcast, when set, is called after every published post
	Broadcast func(models.PublishEvent)
}

type Bot struct {
	Config

	backoff    *backoff.ExponentialBackOff
	lastPosted time.Time
	seeded     bool
}

func New(config Config) *Bot {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0 // Never stop retrying

	return &Bot{
		Config:  config,
		backoff: bo,
	}
}

// Run polls the source until the context is cancelled. The first cycle runs
// immediately, later ones on the configured interval. A failing cycle never
// stops the loop.
func (b *Bot) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"bot":      b.Name,
		"interval": b.Interval,
	}).Info("Starting bot")

	if last, err := b.Store.LatestPostedAt(ctx, b.Name); err == nil {
		b.lastPosted = last
	}

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		b.cycle(ctx)

		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"bot": b.Name,
			}).Info("Stopping bot")
			return
		case <-ticker.C:
		}
	}
}

func (b *Bot) cycle(ctx context.Context) {
	pollsTotal.WithLabelValues(b.Name).Inc()

	items, err := b.Source.Fetch(ctx)
	if err != nil {
		fetchErrors.WithLabelValues(b.Name).Inc()
		log.WithFields(log.Fields{
			"bot":   b.Name,
			"error": err,
		}).Error("Fetch failed")
		b.sleepBackoff(ctx)
		return
	}

	if len(items) == 0 {
		b.backoff.Reset()
		return
	}

	fresh, err := b.NewItems(ctx, items)
	if err != nil {
		log.WithFields(log.Fields{
			"bot":   b.Name,
			"error": err,
		}).Error("Filtering items failed")
		return
	}

	if len(fresh) == 0 {
		b.backoff.Reset()
		return
	}
	itemsDiscovered.WithLabelValues(b.Name).Add(float64(len(fresh)))

	// A fresh store with seeding enabled swallows the entire backlog so a
	// new deployment does not flood the account.
	seed, err := b.shouldSeed(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"bot":   b.Name,
			"error": err,
		}).Error("Checking posting history failed")
		return
	}
	if seed {
		log.WithFields(log.Fields{
			"bot":   b.Name,
			"items": len(fresh),
		}).Info("Seeding posted-items set without publishing")
		b.record(ctx, fresh, "")
		b.backoff.Reset()
		return
	}

	published := 0
	for _, item := range fresh {
		if published >= b.MaxPerCycle {
			log.WithFields(log.Fields{
				"bot":       b.Name,
				"remaining": len(fresh) - published,
			}).Info("Per-cycle post cap reached, deferring remainder")
			break
		}

		if err := b.waitForPostSlot(ctx); err != nil {
			return
		}

		post := b.Composer(item, b.Tags)

		start := time.Now()
		uri, err := b.Publisher.Publish(ctx, post)
		publishDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			publishErrors.WithLabelValues(b.Name).Inc()
			log.WithFields(log.Fields{
				"bot":   b.Name,
				"key":   item.Key,
				"error": err,
			}).Error("Publish failed")
			b.sleepBackoff(ctx)
			return
		}

		b.lastPosted = time.Now()
		postsPublished.WithLabelValues(b.Name).Inc()
		b.backoff.Reset()

		b.record(ctx, []models.Item{item}, uri)

		log.WithFields(log.Fields{
			"bot": b.Name,
			"key": item.Key,
			"uri": uri,
		}).Info("Published post")

		if b.Broadcast != nil {
			b.Broadcast(models.PublishEvent{
				Bot:      b.Name,
				ItemKey:  item.Key,
				Title:    item.Title,
				Uri:      uri,
				PostedAt: b.lastPosted,
			})
		}
		published++
	}
}

// NewItems returns the not-yet-posted subset of items, oldest first. Also
// used by the once command for dry runs.
func (b *Bot) NewItems(ctx context.Context, items []models.Item) ([]models.Item, error) {
	keys := lo.Map(items, func(item models.Item, _ int) string {
		return item.Key
	})

	freshKeys, err := b.Store.FilterNew(ctx, b.Name, keys)
	if err != nil {
		return nil, err
	}

	byKey := lo.KeyBy(items, func(item models.Item) string {
		return item.Key
	})

	fresh := make([]models.Item, 0, len(freshKeys))
	for _, key := range freshKeys {
		fresh = append(fresh, byKey[key])
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
	})

	return fresh, nil
}

func (b *Bot) shouldSeed(ctx context.Context) (bool, error) {
	if !b.SeedOnFirstRun || b.seeded {
		return false, nil
	}

	last, err := b.Store.LatestPostedAt(ctx, b.Name)
	if err != nil {
		return false, err
	}
	b.seeded = true
	return last.IsZero(), nil
}

func (b *Bot) record(ctx context.Context, items []models.Item, uri string) {
	for _, item := range items {
		err := b.Store.MarkPosted(ctx, models.PostedRecord{
			Bot:      b.Name,
			ItemKey:  item.Key,
			Title:    item.Title,
			Uri:      uri,
			ItemTime: item.CreatedAt,
			PostedAt: time.Now(),
		})
		if err != nil {
			log.WithFields(log.Fields{
				"bot":   b.Name,
				"key":   item.Key,
				"error": err,
			}).Error("Recording posted item failed")
		}
	}
}

// waitForPostSlot blocks until MinPostInterval has passed since the last
// post.
func (b *Bot) waitForPostSlot(ctx context.Context) error {
	next := b.lastPosted.Add(b.MinPostInterval)
	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}

	log.WithFields(log.Fields{
		"bot":  b.Name,
		"wait": wait,
	}).Info("Waiting for next post slot")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Bot) sleepBackoff(ctx context.Context) {
	timer := time.NewTimer(b.backoff.NextBackOff())
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
