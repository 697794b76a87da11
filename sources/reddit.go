package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marianfoo/bluesky-bots/models"

	log "github.com/sirupsen/logrus"
)

// Subreddit polls the public JSON listing of new submissions in a subreddit.
// Reddit serves this without authentication as long as a descriptive
// User-Agent is sent.
const redditBaseURL = "https://www.reddit.com"

type Subreddit struct {
	client    *http.Client
	subreddit string
	limit     int
	baseURL   string
}

func NewSubreddit(client *http.Client, subreddit string, limit int) *Subreddit {
	return &Subreddit{client: client, subreddit: subreddit, limit: limit, baseURL: redditBaseURL}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				Name       string  `json:"name"`
				Title      string  `json:"title"`
				Author     string  `json:"author"`
				Permalink  string  `json:"permalink"`
				URL        string  `json:"url"`
				CreatedUTC float64 `json:"created_utc"`
				Over18     bool    `json:"over_18"`
				Stickied   bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *Subreddit) Fetch(ctx context.Context) ([]models.Item, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", s.baseURL, s.subreddit, s.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build subreddit request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subreddit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected subreddit status: %s", resp.Status)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode subreddit listing: %w", err)
	}

	log.WithFields(log.Fields{
		"subreddit": s.subreddit,
		"items":     len(listing.Data.Children),
	}).Debug("Fetched subreddit listing")

	var items []models.Item
	for _, child := range listing.Data.Children {
		post := child.Data
		if child.Kind != "t3" || post.Name == "" {
			continue
		}
		// Pinned and NSFW submissions are not announced
		if post.Stickied || post.Over18 {
			continue
		}

		created := time.Unix(int64(post.CreatedUTC), 0)
		if !withinHorizon(created) {
			continue
		}

		items = append(items, models.Item{
			Key:       post.Name,
			Title:     post.Title,
			URL:       "https://www.reddit.com" + post.Permalink,
			Author:    post.Author,
			CreatedAt: created,
		})
	}

	return items, nil
}
