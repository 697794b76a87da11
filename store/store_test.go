package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marianfoo/bluesky-bots/models"
	"github.com/marianfoo/bluesky-bots/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "bots.db")
	require.NoError(t, store.Migrate(dbPath))

	st, err := store.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
	})

	return st
}

func record(bot string, key string, postedAt time.Time) models.PostedRecord {
	return models.PostedRecord{
		Bot:      bot,
		ItemKey:  key,
		Title:    "title of " + key,
		Uri:      "at://did:plc:test/app.bsky.feed.post/" + key,
		ItemTime: postedAt.Add(-time.Hour),
		PostedAt: postedAt,
	}
}

func TestContains(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	found, err := st.Contains(ctx, "npm", "pkg@1.0.0")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, st.MarkPosted(ctx, record("npm", "pkg@1.0.0", time.Now())))

	found, err = st.Contains(ctx, "npm", "pkg@1.0.0")
	require.NoError(t, err)
	assert.True(t, found)

	// Same key under a different bot is still new
	found, err = st.Contains(ctx, "rss", "pkg@1.0.0")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFilterNew(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkPosted(ctx, record("npm", "a@1", time.Now())))
	require.NoError(t, st.MarkPosted(ctx, record("npm", "c@1", time.Now())))

	fresh, err := st.FilterNew(ctx, "npm", []string{"a@1", "b@1", "c@1", "d@1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b@1", "d@1"}, fresh)

	fresh, err = st.FilterNew(ctx, "npm", nil)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	// A different bot sees everything as new
	fresh, err = st.FilterNew(ctx, "rss", []string{"a@1", "c@1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@1", "c@1"}, fresh)
}

func TestMarkPostedIdempotent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first := record("npm", "pkg@2.0.0", time.Now().Add(-time.Minute))
	require.NoError(t, st.MarkPosted(ctx, first))

	second := first
	second.Uri = "at://did:plc:test/app.bsky.feed.post/retry"
	second.PostedAt = time.Now()
	require.NoError(t, st.MarkPosted(ctx, second))

	records, err := st.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.Uri, records[0].Uri)
}

func TestLatestPostedAt(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	latest, err := st.LatestPostedAt(ctx, "npm")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	older := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	newer := time.Now().Truncate(time.Second)
	require.NoError(t, st.MarkPosted(ctx, record("npm", "a@1", older)))
	require.NoError(t, st.MarkPosted(ctx, record("npm", "b@1", newer)))

	latest, err = st.LatestPostedAt(ctx, "npm")
	require.NoError(t, err)
	assert.Equal(t, newer.Unix(), latest.Unix())
}

func TestRecentPosts(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, st.MarkPosted(ctx, record("npm", "a@1", base)))
	require.NoError(t, st.MarkPosted(ctx, record("rss", "entry-1", base.Add(time.Minute))))
	require.NoError(t, st.MarkPosted(ctx, record("npm", "b@1", base.Add(2*time.Minute))))

	records, err := st.RecentPosts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b@1", records[0].ItemKey)
	assert.Equal(t, "entry-1", records[1].ItemKey)
}

func TestCountPerBot(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	require.NoError(t, st.MarkPosted(ctx, record("npm", "a@1", now.Add(-time.Minute))))
	require.NoError(t, st.MarkPosted(ctx, record("npm", "b@1", now)))
	require.NoError(t, st.MarkPosted(ctx, record("rss", "entry-1", now)))

	statuses, err := st.CountPerBot(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "npm", statuses[0].Name)
	assert.Equal(t, int64(2), statuses[0].Posted)
	require.NotNil(t, statuses[0].LastPostedAt)
	assert.Equal(t, now.Unix(), statuses[0].LastPostedAt.Unix())

	assert.Equal(t, "rss", statuses[1].Name)
	assert.Equal(t, int64(1), statuses[1].Posted)
}

func TestTidy(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkPosted(ctx, record("npm", "old@1", time.Now().Add(-100*24*time.Hour))))
	require.NoError(t, st.MarkPosted(ctx, record("npm", "new@1", time.Now())))

	removed, err := st.Tidy(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	found, err := st.Contains(ctx, "npm", "old@1")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = st.Contains(ctx, "npm", "new@1")
	require.NoError(t, err)
	assert.True(t, found)
}
