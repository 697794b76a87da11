package bots

import (
	"bytes"
	"context"
	"net/http"

	"github.com/marianfoo/bluesky-bots/avatar"
	"github.com/marianfoo/bluesky-bots/bluesky"
	"github.com/marianfoo/bluesky-bots/compose"

	lexutil "github.com/bluesky-social/indigo/lex/util"
	log "github.com/sirupsen/logrus"
)

// Publisher publishes a composed post and returns its URI.
type Publisher interface {
	Publish(ctx context.Context, post compose.Post) (string, error)
}

// BlueskyPublisher publishes posts through the authenticated Bluesky client.
// When a post carries an image URL the image is downloaded and embedded,
// unless the placeholder-avatar check decides it is a generic default.
type BlueskyPublisher struct {
	client *bluesky.Client
	http   *http.Client
}

func NewBlueskyPublisher(client *bluesky.Client, httpClient *http.Client) *BlueskyPublisher {
	return &BlueskyPublisher{client: client, http: httpClient}
}

func (p *BlueskyPublisher) Publish(ctx context.Context, post compose.Post) (string, error) {
	var blob *lexutil.LexBlob
	if post.ImageURL != "" {
		blob = p.imageBlob(ctx, post.ImageURL)
	}
	return p.client.CreatePost(ctx, post, blob)
}

// imageBlob fetches and uploads the post image. Any failure here only costs
// the embed, never the post itself.
func (p *BlueskyPublisher) imageBlob(ctx context.Context, url string) *lexutil.LexBlob {
	raw, img, err := avatar.Fetch(ctx, p.http, url)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Warn("Could not fetch post image, posting without embed")
		return nil
	}

	if avatar.IsPlaceholder(img) {
		log.WithFields(log.Fields{
			"url": url,
		}).Info("Image looks like a default placeholder, posting without embed")
		return nil
	}

	blob, err := p.client.UploadBlob(ctx, bytes.NewReader(raw))
	if err != nil {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Warn("Could not upload post image, posting without embed")
		return nil
	}

	return blob
}
