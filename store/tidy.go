package store

import (
	"context"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes posted records older than maxAge. The dedupe window shrinks
// accordingly, so maxAge must stay comfortably larger than any source's
// item horizon.
func (s *Store) Tidy(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	deleteRecords := sb.SQLite.NewDeleteBuilder()
	query, args := deleteRecords.DeleteFrom("posted_items").
		Where(deleteRecords.LessEqualThan("posted_at", cutoff)).
		Build()

	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Info("Tidying posted items")

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
