package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marianfoo/bluesky-bots/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Store is the posted-items set backed by SQLite. Every bot records the items
// it has published here, keyed by (bot, item_key), so items are posted at
// most once across restarts.
type Store struct {
	db *sql.DB
}

func NewStore(database string) (*Store, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Contains reports whether the item has already been posted by the bot.
func (s *Store) Contains(ctx context.Context, bot string, key string) (bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("1").From("posted_items")
	sb.Where(sb.Equal("bot", bot), sb.Equal("item_key", key))

	query, args := sb.Build()

	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return true, nil
}

// FilterNew returns the subset of keys that have not been posted by the bot,
// preserving input order.
func (s *Store) FilterNew(ctx context.Context, bot string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("item_key").From("posted_items")
	sb.Where(sb.Equal("bot", bot), sb.In("item_key", sqlbuilder.Flatten(keys)...))

	query, args := sb.Build()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool, len(keys))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		seen[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	var fresh []string
	for _, key := range keys {
		if !seen[key] {
			fresh = append(fresh, key)
		}
	}
	return fresh, nil
}

// MarkPosted records a published item. Records are upserted so retrying a
// partially failed cycle is harmless.
func (s *Store) MarkPosted(ctx context.Context, record models.PostedRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"bot": record.Bot,
		"key": record.ItemKey,
		"uri": record.Uri,
	}).Info("Recording posted item")

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posted_items (bot, item_key, title, uri, item_time, posted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (bot, item_key) DO UPDATE SET
			title = excluded.title,
			uri = excluded.uri,
			posted_at = excluded.posted_at`,
		record.Bot,
		record.ItemKey,
		record.Title,
		record.Uri,
		record.ItemTime.Unix(),
		record.PostedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}

	return nil
}

// LatestPostedAt returns the time of the bot's most recent post, or the zero
// time when the bot has not posted yet.
func (s *Store) LatestPostedAt(ctx context.Context, bot string) (time.Time, error) {
	var postedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT posted_at FROM posted_items WHERE bot = ? ORDER BY posted_at DESC LIMIT 1", bot,
	).Scan(&postedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query error: %w", err)
	}
	return time.Unix(postedAt, 0), nil
}

// RecentPosts returns the most recently published records across all bots.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]models.PostedRecord, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "bot", "item_key", "title", "uri", "item_time", "posted_at").From("posted_items")
	sb.OrderBy("posted_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var records []models.PostedRecord
	for rows.Next() {
		var record models.PostedRecord
		var itemTime, postedAt int64
		if err := rows.Scan(&record.Id, &record.Bot, &record.ItemKey, &record.Title, &record.Uri, &itemTime, &postedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		record.ItemTime = time.Unix(itemTime, 0)
		record.PostedAt = time.Unix(postedAt, 0)
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountPerBot returns per-bot post counts and last post times for the status
// endpoint.
func (s *Store) CountPerBot(ctx context.Context) ([]models.BotStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT bot, count(*), max(posted_at) FROM posted_items GROUP BY bot ORDER BY bot")
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var statuses []models.BotStatus
	for rows.Next() {
		var status models.BotStatus
		var lastPostedAt int64
		if err := rows.Scan(&status.Name, &status.Posted, &lastPostedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if lastPostedAt != 0 {
			t := time.Unix(lastPostedAt, 0)
			status.LastPostedAt = &t
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}
