package compose

import (
	"fmt"
	"strings"

	"github.com/marianfoo/bluesky-bots/models"

	"github.com/rivo/uniseg"
)

// budget returns how many graphemes remain for a title once the fixed parts
// of a post are accounted for. Titles get truncated, links and tags never do.
func budget(fixed ...string) int {
	remaining := GraphemeLimit
	for _, part := range fixed {
		remaining -= uniseg.GraphemeClusterCount(part)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func tagsSuffix(b *Builder, tags []string) {
	for _, tag := range tags {
		b.Write(" ").Tag(tag)
	}
}

func tagsWidth(tags []string) string {
	var sb strings.Builder
	for _, tag := range tags {
		sb.WriteString(" #" + strings.TrimPrefix(tag, "#"))
	}
	return sb.String()
}

// NpmRelease formats a new package version announcement.
func NpmRelease(item models.Item, tags []string) Post {
	header := "New release: "
	link := item.URL

	description := item.Text
	if description != "" {
		description = Truncate(description, budget(header, item.Title, "\n", "\n", link, tagsWidth(tags)))
		if description != "" {
			description = "\n" + description
		}
	}

	b := NewBuilder()
	b.Write(header)
	b.Write(item.Title)
	b.Write(description)
	b.Write("\n")
	b.Link(link, link)
	tagsSuffix(b, tags)

	post := b.Build()
	post.Langs = []string{"en"}
	return post
}

// RSSEntry formats a feed entry announcement.
func RSSEntry(item models.Item, tags []string) Post {
	link := item.URL
	title := Truncate(item.Title, budget("\n", link, tagsWidth(tags)))

	b := NewBuilder()
	b.Write(title)
	b.Write("\n")
	b.Link(link, link)
	tagsSuffix(b, tags)

	post := b.Build()
	post.Langs = []string{"en"}
	return post
}

// RedditPost formats a subreddit submission announcement.
func RedditPost(subreddit string) func(models.Item, []string) Post {
	return func(item models.Item, tags []string) Post {
		header := fmt.Sprintf("New post on r/%s: ", subreddit)
		link := item.URL
		title := Truncate(item.Title, budget(header, "\n", link, tagsWidth(tags)))

		b := NewBuilder()
		b.Write(header)
		b.Write(title)
		b.Write("\n")
		b.Link(link, link)
		tagsSuffix(b, tags)

		post := b.Build()
		post.Langs = []string{"en"}
		return post
	}
}

// DefaultWelcomeMessage is used by the followers bot when no message is
// configured. "{handle}" is replaced with the follower's handle.
const DefaultWelcomeMessage = "Thanks for following, @{handle}! 🎉"

// Welcome formats the new-follower greeting. The follower's avatar rides
// along on the post as an image embed unless it turns out to be a default
// placeholder.
func Welcome(message string) func(models.Item, []string) Post {
	if message == "" {
		message = DefaultWelcomeMessage
	}
	return func(item models.Item, tags []string) Post {
		handle := item.Title
		text := strings.ReplaceAll(message, "{handle}", handle)

		b := NewBuilder()

		// Facet the handle mention as a link to the profile
		mention := "@" + handle
		if idx := strings.Index(text, mention); idx >= 0 && item.URL != "" {
			b.Write(text[:idx])
			b.Link(mention, item.URL)
			b.Write(text[idx+len(mention):])
		} else {
			b.Write(Truncate(text, GraphemeLimit))
		}
		tagsSuffix(b, tags)

		post := b.Build()
		post.Langs = []string{"en"}
		post.ImageURL = item.ImageURL
		post.ImageAlt = fmt.Sprintf("Avatar of %s", handle)
		return post
	}
}
