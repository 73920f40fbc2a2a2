package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// upsertTag inserts name or returns the id of the existing row in a single
// statement. The UNIQUE(name) constraint arbitrates concurrent callers.
func upsertTag(ctx context.Context, tx *sqlx.Tx, name string, now time.Time) (int64, error) {
	q := tx.Rebind(`
		INSERT INTO tags (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id`)

	var id int64
	if err := tx.GetContext(ctx, &id, q, name, now, now); err != nil {
		return 0, fmt.Errorf("upsert tag %q: %w", name, err)
	}
	return id, nil
}

// linkTags upserts every tag and links it to bookmarkID.
func linkTags(ctx context.Context, tx *sqlx.Tx, bookmarkID int64, tags []string, now time.Time) error {
	q := tx.Rebind(`INSERT INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)`)
	for _, name := range tags {
		tagID, err := upsertTag(ctx, tx, name, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, bookmarkID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// tagsFor loads tag names for the given bookmark ids.
func (s *Store) tagsFor(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q, args, err := sqlx.In(`
		SELECT bt.bookmark_id, t.name
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id IN (?)
		ORDER BY t.name`, ids)
	if err != nil {
		return nil, fmt.Errorf("build tags query: %w", err)
	}

	var rows []struct {
		BookmarkID int64  `db:"bookmark_id"`
		Name       string `db:"name"`
	}
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("select tags: %w", err)
	}

	for _, r := range rows {
		out[r.BookmarkID] = append(out[r.BookmarkID], r.Name)
	}
	return out, nil
}

// TagCounts returns every tag with the number of bookmarks using it,
// most used first.
func (s *Store) TagCounts(ctx context.Context) ([]domain.TagCount, error) {
	var counts []domain.TagCount
	err := s.DB.SelectContext(ctx, &counts, `
		SELECT t.name AS name, COUNT(bt.bookmark_id) AS count
		FROM tags t
		LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
		GROUP BY t.id, t.name
		ORDER BY count DESC, t.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	return counts, nil
}

// DeleteOrphanTags removes tags that no bookmark references and that were
// not touched since olderThan. Returns the number of deleted rows.
func (s *Store) DeleteOrphanTags(ctx context.Context, olderThan time.Time) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`
			DELETE FROM tags
			WHERE updated_at < ?
			  AND NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.tag_id = tags.id)`)
		res, err := tx.ExecContext(ctx, q, olderThan.UTC())
		if err != nil {
			return fmt.Errorf("delete orphan tags: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
