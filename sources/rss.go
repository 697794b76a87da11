package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marianfoo/bluesky-bots/models"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

// RSSFeed polls a single RSS/Atom feed URL.
type RSSFeed struct {
	client *http.Client
	url    string
	parser *gofeed.Parser
}

func NewRSSFeed(client *http.Client, url string) *RSSFeed {
	return &RSSFeed{
		client: client,
		url:    url,
		parser: gofeed.NewParser(),
	}
}

func (s *RSSFeed) Fetch(ctx context.Context) ([]models.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected feed status: %s", resp.Status)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	log.WithFields(log.Fields{
		"feed":  feed.Title,
		"items": len(feed.Items),
	}).Debug("Fetched feed")

	var items []models.Item
	for _, entry := range feed.Items {
		key := entry.GUID
		if key == "" {
			key = entry.Link
		}
		if key == "" {
			continue
		}

		published := time.Now()
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}
		if !withinHorizon(published) {
			continue
		}

		var author string
		if entry.Author != nil {
			author = entry.Author.Name
		}

		items = append(items, models.Item{
			Key:       key,
			Title:     entry.Title,
			Text:      entry.Description,
			URL:       entry.Link,
			Author:    author,
			CreatedAt: published,
		})
	}

	return items, nil
}
