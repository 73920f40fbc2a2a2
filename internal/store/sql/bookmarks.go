package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

const bookmarkColumns = `id, owner_id, url, title, description, image, created_at, updated_at`

// Create inserts b and links it to tags in one transaction. A second save
// of the same URL by the same owner fails with ErrRecordDuplicate and
// leaves no rows behind.
func (s *Store) Create(ctx context.Context, b *domain.Bookmark, tags []string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`
			INSERT INTO bookmarks (owner_id, url, title, description, image, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		err := tx.GetContext(ctx, &id, q,
			b.OwnerID, b.URL, b.Title, b.Description, b.Image, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrRecordDuplicate, b.URL)
			}
			return fmt.Errorf("insert bookmark: %w", err)
		}

		return linkTags(ctx, tx, id, tags, b.CreatedAt.UTC())
	})
	if err != nil {
		return 0, err
	}

	b.ID = id
	return id, nil
}

// List returns the owner's bookmarks, newest first. A non-empty term keeps
// rows whose title or description contains it, ignoring case.
func (s *Store) List(ctx context.Context, ownerID, term string) ([]domain.Bookmark, error) {
	q := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE owner_id = ?`
	args := []any{ownerID}

	if term = strings.TrimSpace(term); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		lower := s.lowerFunc()
		q += ` AND (` + lower + `(title) LIKE ? ESCAPE '\' OR ` + lower + `(description) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	var bs []domain.Bookmark
	if err := s.DB.SelectContext(ctx, &bs, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	if err := s.attachTags(ctx, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// ByID returns the bookmark with id regardless of owner.
func (s *Store) ByID(ctx context.Context, id int64) (*domain.Bookmark, error) {
	var b domain.Bookmark
	q := s.DB.Rebind(`SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = ?`)
	if err := s.DB.GetContext(ctx, &b, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}

	tags, err := s.tagsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	b.Tags = nonNil(tags[id])
	return &b, nil
}

// Update replaces title, description and the full tag set of a bookmark
// owned by ownerID.
func (s *Store) Update(ctx context.Context, ownerID string, id int64, f domain.BookmarkFields, tags []string, now time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, id); err != nil {
			return err
		}

		q := tx.Rebind(`UPDATE bookmarks SET title = ?, description = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, q, f.Title, f.Description, now.UTC(), id); err != nil {
			return fmt.Errorf("update bookmark: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bookmark_tags WHERE bookmark_id = ?`), id); err != nil {
			return fmt.Errorf("unlink tags: %w", err)
		}

		return linkTags(ctx, tx, id, tags, now.UTC())
	})
}

// Delete removes a bookmark owned by ownerID together with its tag links.
// Tag rows are kept.
func (s *Store) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bookmark_tags WHERE bookmark_id = ?`), id); err != nil {
			return fmt.Errorf("unlink tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bookmarks WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete bookmark: %w", err)
		}
		return nil
	})
}

// checkOwner loads the owner of id inside tx.
func checkOwner(ctx context.Context, tx *sqlx.Tx, ownerID string, id int64) error {
	var owner string
	err := tx.GetContext(ctx, &owner, tx.Rebind(`SELECT owner_id FROM bookmarks WHERE id = ?`), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	case err != nil:
		return fmt.Errorf("load bookmark owner: %w", err)
	case owner != ownerID:
		return fmt.Errorf("%w: id %d", ErrRecordForbidden, id)
	}
	return nil
}

func (s *Store) attachTags(ctx context.Context, bs []domain.Bookmark) error {
	ids := make([]int64, len(bs))
	for i := range bs {
		ids[i] = bs[i].ID
	}

	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range bs {
		bs[i].Tags = nonNil(tags[bs[i].ID])
	}
	return nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
