package models

import "time"

// Item is a single entry discovered in an external source. The Key must be
// stable across fetches so the store can tell new items from already
// published ones.
type Item struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Text      string    `json:"text,omitempty"`
	URL       string    `json:"url,omitempty"`
	Author    string    `json:"author,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostedRecord is a row in the posted-items set.
type PostedRecord struct {
	Id       int64     `json:"id"`
	Bot      string    `json:"bot"`
	ItemKey  string    `json:"itemKey"`
	Title    string    `json:"title"`
	Uri      string    `json:"uri"`
	ItemTime time.Time `json:"itemTime"`
	PostedAt time.Time `json:"postedAt"`
}

// PublishEvent fired when a bot publishes a post
type PublishEvent struct {
	Bot      string    `json:"bot"`
	ItemKey  string    `json:"itemKey"`
	Title    string    `json:"title"`
	Uri      string    `json:"uri"`
	PostedAt time.Time `json:"postedAt"`
}

// BotStatus summarises one bot for the status endpoint.
type BotStatus struct {
	Name         string     `json:"name"`
	Posted       int64      `json:"posted"`
	LastPostedAt *time.Time `json:"lastPostedAt,omitempty"`
}
