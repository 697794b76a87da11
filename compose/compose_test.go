package compose_test

import (
	"strings"
	"testing"

	"github.com/marianfoo/bluesky-bots/compose"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		expected string
	}{
		{
			name:     "empty string",
			text:     "",
			limit:    10,
			expected: "",
		},
		{
			name:     "below limit unchanged",
			text:     "short text",
			limit:    20,
			expected: "short text",
		},
		{
			name:     "exactly at limit unchanged",
			text:     "12345",
			limit:    5,
			expected: "12345",
		},
		{
			name:     "above limit gets ellipsis",
			text:     "hello world",
			limit:    6,
			expected: "hello…",
		},
		{
			name:     "trailing space trimmed before ellipsis",
			text:     "hello world again",
			limit:    7,
			expected: "hello…",
		},
		{
			name:     "zero limit",
			text:     "anything",
			limit:    0,
			expected: "",
		},
		{
			name:     "emoji counted as single grapheme",
			text:     "👍👍👍👍👍",
			limit:    3,
			expected: "👍👍…",
		},
		{
			name:     "compound emoji not split",
			text:     "👨‍👩‍👧👨‍👩‍👧👨‍👩‍👧",
			limit:    2,
			expected: "👨‍👩‍👧…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compose.Truncate(tt.text, tt.limit)
			assert.Equal(t, tt.expected, result)
			assert.LessOrEqual(t, uniseg.GraphemeClusterCount(result), tt.limit)
		})
	}
}

func TestBuilderSpans(t *testing.T) {
	post := compose.NewBuilder().
		Write("Read this: ").
		Link("example.com", "https://example.com").
		Write(" ").
		Tag("golang").
		Build()

	assert.Equal(t, "Read this: example.com #golang", post.Text)

	assert.Len(t, post.Links, 1)
	link := post.Links[0]
	assert.Equal(t, "https://example.com", link.URI)
	assert.Equal(t, "example.com", post.Text[link.Start:link.End])

	assert.Len(t, post.Tags, 1)
	tag := post.Tags[0]
	assert.Equal(t, "golang", tag.Tag)
	assert.Equal(t, "#golang", post.Text[tag.Start:tag.End])
}

func TestBuilderSpansAfterMultibyteText(t *testing.T) {
	post := compose.NewBuilder().
		Write("Blåbær og røde æbler 🎉 ").
		Link("les mer", "https://example.no").
		Build()

	assert.Len(t, post.Links, 1)
	link := post.Links[0]
	assert.Equal(t, "les mer", post.Text[link.Start:link.End])
}

func TestBuilderTagNormalization(t *testing.T) {
	post := compose.NewBuilder().Tag("#ui5").Build()
	assert.Equal(t, "#ui5", post.Text)
	assert.Len(t, post.Tags, 1)
	assert.Equal(t, "ui5", post.Tags[0].Tag)

	empty := compose.NewBuilder().Tag("").Build()
	assert.Equal(t, "", empty.Text)
	assert.Empty(t, empty.Tags)
}

func TestBuildTruncatesAndDropsCutFacets(t *testing.T) {
	long := strings.Repeat("a", compose.GraphemeLimit)

	post := compose.NewBuilder().
		Write(long).
		Write(" ").
		Link("example.com", "https://example.com").
		Build()

	assert.LessOrEqual(t, uniseg.GraphemeClusterCount(post.Text), compose.GraphemeLimit)
	assert.True(t, strings.HasSuffix(post.Text, "…"))

	// The link was cut off, so no partial facet may remain
	assert.Empty(t, post.Links)
}

func TestBuildKeepsFacetsBeforeCut(t *testing.T) {
	long := strings.Repeat("b", compose.GraphemeLimit)

	post := compose.NewBuilder().
		Link("example.com", "https://example.com").
		Write(" ").
		Write(long).
		Build()

	assert.LessOrEqual(t, uniseg.GraphemeClusterCount(post.Text), compose.GraphemeLimit)
	assert.Len(t, post.Links, 1)
	link := post.Links[0]
	assert.Equal(t, "example.com", post.Text[link.Start:link.End])
}
