// Package bookmark implements the save, query and mutation operations on a
// user's bookmark collection.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	sqlstore "github.com/MrSnakeDoc/stash/internal/store/sql"
)

// Repository is the persistence the service needs. *sqlstore.Store
// implements it.
type Repository interface {
	Create(ctx context.Context, b *domain.Bookmark, tags []string) (int64, error)
	List(ctx context.Context, ownerID, term string) ([]domain.Bookmark, error)
	ByID(ctx context.Context, id int64) (*domain.Bookmark, error)
	Update(ctx context.Context, ownerID string, id int64, f domain.BookmarkFields, tags []string, now time.Time) error
	Delete(ctx context.Context, ownerID string, id int64) error
	TagCounts(ctx context.Context) ([]domain.TagCount, error)
}

// Service owns the bookmark rules. Every operation takes the caller's
// identity explicitly; an empty owner is rejected before the store is
// touched.
type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, log logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores meta as a new bookmark of ownerID tagged with the normalized
// rawTags, all in one transaction. Returns the new bookmark id.
func (s *Service) Save(ctx context.Context, ownerID string, meta domain.Metadata, rawTags string) (int64, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(meta.URL) == "" {
		return 0, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	image := nonBlank(meta.Image)
	if image != nil && !isAbsoluteHTTP(*image) {
		return 0, fmt.Errorf("%w: image must be an absolute http(s) URL", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	b := &domain.Bookmark{
		OwnerID:     ownerID,
		URL:         meta.URL,
		Title:       domain.OrDefault(meta.Title, domain.DefaultTitle),
		Description: domain.OrDefault(meta.Description, domain.DefaultDescription),
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tags := domain.NormalizeTags(rawTags)

	id, err := s.repo.Create(ctx, b, tags)
	if err != nil {
		return 0, s.fail(ctx, "save", err, logger.String("url", meta.URL))
	}

	metrics.RecordBookmarkOp("save", "ok")
	s.log.Info("bookmark saved",
		logger.String("owner", ownerID),
		logger.Int64("id", id),
		logger.Strings("tags", tags))
	return id, nil
}

// List returns ownerID's bookmarks, newest first, optionally filtered by a
// case-insensitive substring of title or description.
func (s *Service) List(ctx context.Context, ownerID, searchTerm string) ([]domain.Bookmark, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	bs, err := s.repo.List(ctx, ownerID, strings.TrimSpace(searchTerm))
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	if bs == nil {
		bs = []domain.Bookmark{}
	}
	return bs, nil
}

// Get returns one bookmark owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID string, id int64) (*domain.Bookmark, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	b, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get", err, logger.Int64("id", id))
	}
	if b.OwnerID != ownerID {
		return nil, s.fail(ctx, "get", sqlstore.ErrRecordForbidden, logger.Int64("id", id))
	}
	return b, nil
}

// Update replaces title, description and the whole tag set of a bookmark.
// Blank title or description fall back to the placeholders.
func (s *Service) Update(ctx context.Context, ownerID string, id int64, f domain.BookmarkFields, rawTags string) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}

	f.Title = domain.OrDefault(f.Title, domain.DefaultTitle)
	f.Description = domain.OrDefault(f.Description, domain.DefaultDescription)
	tags := domain.NormalizeTags(rawTags)

	if err := s.repo.Update(ctx, ownerID, id, f, tags, s.now().UTC()); err != nil {
		return s.fail(ctx, "update", err, logger.Int64("id", id))
	}

	metrics.RecordBookmarkOp("update", "ok")
	s.log.Info("bookmark updated",
		logger.String("owner", ownerID),
		logger.Int64("id", id),
		logger.Strings("tags", tags))
	return nil
}

// Delete removes a bookmark owned by ownerID. Tags stay.
func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}

	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return s.fail(ctx, "delete", err, logger.Int64("id", id))
	}

	metrics.RecordBookmarkOp("delete", "ok")
	s.log.Info("bookmark deleted",
		logger.String("owner", ownerID),
		logger.Int64("id", id))
	return nil
}

// TagCounts returns every tag with its usage count.
func (s *Service) TagCounts(ctx context.Context, ownerID string) ([]domain.TagCount, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}

	counts, err := s.repo.TagCounts(ctx)
	if err != nil {
		return nil, s.fail(ctx, "tags", err)
	}
	if counts == nil {
		counts = []domain.TagCount{}
	}
	return counts, nil
}

// fail maps a store error onto the domain taxonomy. Unexpected failures
// are logged with their cause and surface as domain.ErrStorage.
func (s *Service) fail(ctx context.Context, op string, err error, fields ...logger.Field) error {
	var out error
	switch {
	case errors.Is(err, sqlstore.ErrRecordDuplicate):
		out = fmt.Errorf("%w: %w", domain.ErrDuplicateURL, err)
	case errors.Is(err, sqlstore.ErrRecordNotFound):
		out = fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, sqlstore.ErrRecordForbidden):
		out = fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	default:
		out = domain.StorageError(err)
		if ctx.Err() == nil {
			s.log.Error("bookmark "+op+" failed", append(fields, logger.Error(err))...)
		}
	}

	metrics.RecordBookmarkOp(op, domain.KindOf(out).String())
	return out
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
