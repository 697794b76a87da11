package sources

import (
	"context"
	"time"

	"github.com/marianfoo/bluesky-bots/bluesky"
	"github.com/marianfoo/bluesky-bots/models"

	log "github.com/sirupsen/logrus"
)

const (
	followersPageSize = 100
	followersMaxPages = 10
)

// Followers lists the bot account's followers so new ones can be welcomed.
// Follower DIDs are the item keys; the avatar URL rides along for the
// welcome post embed.
type Followers struct {
	client *bluesky.Client
}

func NewFollowers(client *bluesky.Client) *Followers {
	return &Followers{client: client}
}

func (s *Followers) Fetch(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	cursor := ""

	for page := 0; page < followersMaxPages; page++ {
		resp, err := s.client.GetFollowers(ctx, s.client.Did(), cursor, followersPageSize)
		if err != nil {
			return nil, err
		}

		for _, follower := range resp.Followers {
			item := models.Item{
				Key:       follower.Did,
				Title:     follower.Handle,
				URL:       "https://bsky.app/profile/" + follower.Handle,
				CreatedAt: time.Now(),
			}
			if follower.DisplayName != nil {
				item.Author = *follower.DisplayName
			}
			if follower.Avatar != nil {
				item.ImageURL = *follower.Avatar
			}
			if follower.CreatedAt != nil {
				if created, err := time.Parse(time.RFC3339, *follower.CreatedAt); err == nil {
					item.CreatedAt = created
				}
			}
			items = append(items, item)
		}

		if resp.Cursor == nil || *resp.Cursor == "" {
			break
		}
		cursor = *resp.Cursor
	}

	log.WithFields(log.Fields{
		"followers": len(items),
	}).Debug("Fetched followers")

	return items, nil
}
