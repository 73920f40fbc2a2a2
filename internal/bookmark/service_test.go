package bookmark

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	sqlstore "github.com/MrSnakeDoc/stash/internal/store/sql"
)

// tickingClock returns a strictly increasing time on every call.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupService(t *testing.T) (*Service, *sqlstore.Store) {
	t.Helper()
	store, err := sqlstore.Open(t.Context(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "stash.db"), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(t.Context()))
	t.Cleanup(func() { _ = store.Close() })

	clock := &tickingClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(store, logger.NewNop(), WithClock(clock.Now)), store
}

func meta(url, title, desc string) domain.Metadata {
	return domain.Metadata{URL: url, Title: title, Description: desc}
}

func TestSaveAndList(t *testing.T) {
	svc, _ := setupService(t)
	ctx := t.Context()
	img := "https://example.com/og.png"

	m := meta("https://example.com", "Example", "An example")
	m.Image = &img
	id, err := svc.Save(ctx, "alice", m, "React, react , NextJS,,")
	require.NoError(t, err)
	assert.NotZero(t, id)

	bs, err := svc.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, id, bs[0].ID)
	assert.Equal(t, []string{"nextjs", "react"}, bs[0].Tags)
	require.NotNil(t, bs[0].Image)
	assert.Equal(t, img, *bs[0].Image)
}

func TestSaveAppliesPlaceholders(t *testing.T) {
	svc, _ := setupService(t)
	blank := "  "

	m := meta("https://bare.example", "", " ")
	m.Image = &blank
	id, err := svc.Save(t.Context(), "alice", m, "")
	require.NoError(t, err)

	b, err := svc.Get(t.Context(), "alice", id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTitle, b.Title)
	assert.Equal(t, domain.DefaultDescription, b.Description)
	assert.Nil(t, b.Image)
	assert.Empty(t, b.Tags)
}

func TestSaveRejectsRelativeImage(t *testing.T) {
	svc, store := setupService(t)

	for _, img := range []string{"img/../x.png", "/favicon.ico", "//cdn.example/x.png", "data:image/png;base64,AAAA"} {
		m := meta("https://rel.example", "t", "d")
		m.Image = &img
		_, err := svc.Save(t.Context(), "alice", m, "go")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "image %q", img)
	}

	bs, err := store.List(t.Context(), "alice", "")
	require.NoError(t, err)
	assert.Empty(t, bs)
}

func TestSaveDuplicate(t *testing.T) {
	svc, store := setupService(t)
	ctx := t.Context()

	_, err := svc.Save(ctx, "alice", meta("https://dup.example", "a", "b"), "x")
	require.NoError(t, err)

	_, err = svc.Save(ctx, "alice", meta("https://dup.example", "c", "d"), "y")
	assert.ErrorIs(t, err, domain.ErrDuplicateURL)
	assert.Equal(t, domain.KindDuplicateURL, domain.KindOf(err))

	bs, err := store.List(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, bs, 1)
}

func TestSaveConcurrentFirstTimeTag(t *testing.T) {
	svc, store := setupService(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, owner := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = svc.Save(context.Background(), owner, meta("https://"+owner+".example", owner, ""), "rust")
		}(i, owner)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	counts, err := store.TagCounts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []domain.TagCount{{Name: "rust", Count: 2}}, counts)
}

func TestUnauthenticatedNeverTouchesStore(t *testing.T) {
	svc := NewService(panicRepo{}, logger.NewNop())
	ctx := t.Context()

	_, err := svc.Save(ctx, "", meta("https://x.example", "", ""), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.List(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.Get(ctx, "", 1)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	err = svc.Update(ctx, "", 1, domain.BookmarkFields{}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	err = svc.Delete(ctx, "", 1)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.TagCounts(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSaveRequiresURL(t *testing.T) {
	svc := NewService(panicRepo{}, logger.NewNop())
	_, err := svc.Save(t.Context(), "alice", meta("  ", "t", "d"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListSearchNewestFirst(t *testing.T) {
	svc, _ := setupService(t)
	ctx := t.Context()

	_, err := svc.Save(ctx, "alice", meta("https://1.example", "webdev basics", "x"), "")
	require.NoError(t, err)
	_, err = svc.Save(ctx, "alice", meta("https://2.example", "cooking", "y"), "")
	require.NoError(t, err)
	_, err = svc.Save(ctx, "alice", meta("https://3.example", "other", "WEBDEV news"), "")
	require.NoError(t, err)

	bs, err := svc.List(ctx, "alice", "Webdev")
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.Equal(t, "https://3.example", bs[0].URL)
	assert.Equal(t, "https://1.example", bs[1].URL)

	_, err = svc.Save(ctx, "alice", meta("https://4.example", "Σύνταξη Go", "Ωραία"), "")
	require.NoError(t, err)
	bs, err = svc.List(ctx, "alice", "σύνταξη")
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, "https://4.example", bs[0].URL)

	none, err := svc.List(ctx, "bob", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteOwnership(t *testing.T) {
	svc, _ := setupService(t)
	ctx := t.Context()

	id, err := svc.Save(ctx, "alice", meta("https://mine.example", "mine", ""), "keep")
	require.NoError(t, err)

	err = svc.Delete(ctx, "bob", id)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	bs, err := svc.List(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, bs, 1)

	err = svc.Delete(ctx, "alice", id+42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", id))
	bs, err = svc.List(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, bs)

	counts, err := svc.TagCounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.TagCount{{Name: "keep", Count: 0}}, counts)
}

func TestUpdate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := t.Context()

	id, err := svc.Save(ctx, "alice", meta("https://edit.example", "before", "before"), "a, b")
	require.NoError(t, err)

	err = svc.Update(ctx, "alice", id, domain.BookmarkFields{Title: "after", Description: ""}, "B, c")
	require.NoError(t, err)

	b, err := svc.Get(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "after", b.Title)
	assert.Equal(t, domain.DefaultDescription, b.Description)
	assert.Equal(t, []string{"b", "c"}, b.Tags)
	assert.True(t, b.UpdatedAt.After(b.CreatedAt))

	err = svc.Update(ctx, "bob", id, domain.BookmarkFields{Title: "x"}, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, "bob", id)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStorageFailureIsGeneric(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("disk I/O error")}, logger.NewNop())

	_, err := svc.List(t.Context(), "alice", "")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
}

type panicRepo struct{}

func (panicRepo) Create(context.Context, *domain.Bookmark, []string) (int64, error) {
	panic("store must not be called")
}
func (panicRepo) List(context.Context, string, string) ([]domain.Bookmark, error) {
	panic("store must not be called")
}
func (panicRepo) ByID(context.Context, int64) (*domain.Bookmark, error) {
	panic("store must not be called")
}
func (panicRepo) Update(context.Context, string, int64, domain.BookmarkFields, []string, time.Time) error {
	panic("store must not be called")
}
func (panicRepo) Delete(context.Context, string, int64) error { panic("store must not be called") }
func (panicRepo) TagCounts(context.Context) ([]domain.TagCount, error) {
	panic("store must not be called")
}

type failingRepo struct {
	panicRepo
	err error
}

func (r failingRepo) List(context.Context, string, string) ([]domain.Bookmark, error) {
	return nil, r.err
}
