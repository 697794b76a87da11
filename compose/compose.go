// Package compose turns source items into Bluesky post payloads. It owns the
// character budget: post text is truncated to the platform grapheme limit and
// link/tag byte ranges are computed here so the bluesky package can map them
// straight onto richtext facets.
package compose

import (
	"strings"

	"github.com/rivo/uniseg"
)

// GraphemeLimit is the Bluesky post length limit. The platform counts
// grapheme clusters, not bytes or runes.
const GraphemeLimit = 300

const ellipsis = "…"

// LinkSpan marks a byte range of the post text that links to URI.
type LinkSpan struct {
	Start int64
	End   int64
	URI   string
}

// TagSpan marks a byte range of the post text that is a hashtag. Tag holds
// the tag without the leading '#'.
type TagSpan struct {
	Start int64
	End   int64
	Tag   string
}

// Post is a ready-to-publish post payload.
type Post struct {
	Text     string
	Links    []LinkSpan
	Tags     []TagSpan
	Langs    []string
	ImageURL string
	ImageAlt string
}

// Builder assembles post text while tracking facet byte offsets.
type Builder struct {
	text  strings.Builder
	links []LinkSpan
	tags  []TagSpan
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Write(s string) *Builder {
	b.text.WriteString(s)
	return b
}

// Link writes label and records a link facet over it.
func (b *Builder) Link(label string, uri string) *Builder {
	start := int64(b.text.Len())
	b.text.WriteString(label)
	b.links = append(b.links, LinkSpan{Start: start, End: int64(b.text.Len()), URI: uri})
	return b
}

// Tag writes "#tag" and records a tag facet over it.
func (b *Builder) Tag(tag string) *Builder {
	tag = strings.TrimPrefix(tag, "#")
	if tag == "" {
		return b
	}
	start := int64(b.text.Len())
	b.text.WriteString("#" + tag)
	b.tags = append(b.tags, TagSpan{Start: start, End: int64(b.text.Len()), Tag: tag})
	return b
}

// Build finalises the post, truncating to the grapheme limit. Facets that
// would extend past the cut are dropped rather than kept partially.
func (b *Builder) Build() Post {
	text := b.text.String()
	post := Post{Links: b.links, Tags: b.tags}

	if uniseg.GraphemeClusterCount(text) <= GraphemeLimit {
		post.Text = text
		return post
	}

	cut := truncateBytes(text, GraphemeLimit-1)
	post.Text = strings.TrimRight(text[:cut], " \n") + ellipsis

	kept := post.Links[:0]
	for _, link := range b.links {
		if link.End <= int64(len(post.Text)-len(ellipsis)) {
			kept = append(kept, link)
		}
	}
	post.Links = kept

	keptTags := post.Tags[:0]
	for _, tag := range b.tags {
		if tag.End <= int64(len(post.Text)-len(ellipsis)) {
			keptTags = append(keptTags, tag)
		}
	}
	post.Tags = keptTags

	return post
}

// Truncate shortens text to at most limit grapheme clusters, appending an
// ellipsis when anything was cut. Never splits a grapheme cluster.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if uniseg.GraphemeClusterCount(text) <= limit {
		return text
	}
	cut := truncateBytes(text, limit-1)
	return strings.TrimRight(text[:cut], " \n") + ellipsis
}

// truncateBytes returns the byte offset after the first n grapheme clusters.
func truncateBytes(text string, n int) int {
	g := uniseg.NewGraphemes(text)
	offset := 0
	for i := 0; i < n && g.Next(); i++ {
		_, to := g.Positions()
		offset = to
	}
	return offset
}
