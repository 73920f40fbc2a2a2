package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stash.db")

	s, err := Open(t.Context(), DriverSQLite, path, logger.NewNop())
	require.NoError(t, err, "open test database")
	require.NoError(t, s.Migrate(t.Context()), "migrate test database")

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBookmark(owner, url string, at time.Time) *domain.Bookmark {
	return &domain.Bookmark{
		OwnerID:     owner,
		URL:         url,
		Title:       "Title of " + url,
		Description: "Description of " + url,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:stash.db?"+sqlitePragmas, sqliteDSN("stash.db"))
	assert.Equal(t, "file:/data/s.db?"+sqlitePragmas, sqliteDSN("file:/data/s.db"))
	assert.Equal(t, "file:x.db?mode=ro", sqliteDSN("file:x.db?mode=ro"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), "mysql", "whatever", logger.NewNop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	assert.NoError(t, s.Migrate(t.Context()))
}

func TestCreateAndByID(t *testing.T) {
	s := setupTestDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	img := "https://example.com/og.png"

	b := testBookmark("alice", "https://example.com", now)
	b.Image = &img
	id, err := s.Create(t.Context(), b, []string{"go", "web"})
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)

	got, err := s.ByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, "https://example.com", got.URL)
	require.NotNil(t, got.Image)
	assert.Equal(t, img, *got.Image)
	assert.Equal(t, []string{"go", "web"}, got.Tags)
	assert.True(t, got.CreatedAt.Equal(now), "created_at = %v, want %v", got.CreatedAt, now)
}

func TestCreateDuplicateURL(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	_, err := s.Create(t.Context(), testBookmark("alice", "https://dup.example", now), []string{"a"})
	require.NoError(t, err)

	_, err = s.Create(t.Context(), testBookmark("alice", "https://dup.example", now), []string{"b"})
	assert.ErrorIs(t, err, ErrRecordDuplicate)

	assert.Equal(t, 1, countRows(t, s, "bookmarks"))
	// the failed save rolled back its tag upsert
	assert.Equal(t, 1, countRows(t, s, "tags"))

	// another owner may save the same URL
	_, err = s.Create(t.Context(), testBookmark("bob", "https://dup.example", now), nil)
	assert.NoError(t, err)
}

func TestCreateConcurrentSharedTag(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	owners := []string{"alice", "bob"}
	for i, owner := range owners {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = s.Create(context.Background(), testBookmark(owner, "https://"+owner+".example", now), []string{"rust"})
		}(i, owner)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, countRows(t, s, "tags"))
	assert.Equal(t, 2, countRows(t, s, "bookmark_tags"))
}

func TestListOrderAndSearch(t *testing.T) {
	s := setupTestDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := testBookmark("alice", "https://a.example", base)
	older.Title = "Modern WebDev tips"
	newer := testBookmark("alice", "https://b.example", base.Add(time.Hour))
	newer.Description = "All about webdev tooling"
	other := testBookmark("alice", "https://c.example", base.Add(2*time.Hour))
	foreign := testBookmark("bob", "https://d.example", base.Add(3*time.Hour))
	foreign.Title = "webdev"

	for _, b := range []*domain.Bookmark{older, newer, other, foreign} {
		_, err := s.Create(t.Context(), b, []string{"misc"})
		require.NoError(t, err)
	}

	all, err := s.List(t.Context(), "alice", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "https://c.example", all[0].URL)
	assert.Equal(t, "https://a.example", all[2].URL)

	hits, err := s.List(t.Context(), "alice", "  Webdev ")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://b.example", hits[0].URL)
	assert.Equal(t, "https://a.example", hits[1].URL)
	assert.Equal(t, []string{"misc"}, hits[0].Tags)
}

func TestListSearchFoldsNonASCII(t *testing.T) {
	s := setupTestDB(t)

	b := testBookmark("alice", "https://aerzte.example", time.Now())
	b.Title = "Ärzte Zeitung"
	b.Description = "Über uns"
	_, err := s.Create(t.Context(), b, nil)
	require.NoError(t, err)

	for _, term := range []string{"Ärzte", "ärzte", "ÄRZTE", "über", "Über", "zeitung"} {
		hits, err := s.List(t.Context(), "alice", term)
		require.NoError(t, err)
		assert.Len(t, hits, 1, "term %q", term)
	}
}

func TestListEscapesWildcards(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	b := testBookmark("alice", "https://pct.example", now)
	b.Title = "100% coverage"
	_, err := s.Create(t.Context(), b, nil)
	require.NoError(t, err)
	_, err = s.Create(t.Context(), testBookmark("alice", "https://plain.example", now), nil)
	require.NoError(t, err)

	hits, err := s.List(t.Context(), "alice", "%")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "https://pct.example", hits[0].URL)
}

func TestUpdateReplacesTags(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	id, err := s.Create(t.Context(), testBookmark("alice", "https://u.example", now), []string{"old", "keep"})
	require.NoError(t, err)

	fields := domain.BookmarkFields{Title: "New title", Description: "New desc"}
	err = s.Update(t.Context(), "alice", id, fields, []string{"keep", "new"}, now.Add(time.Minute))
	require.NoError(t, err)

	got, err := s.ByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, []string{"keep", "new"}, got.Tags)
	// tag rows are never removed by an update
	assert.Equal(t, 3, countRows(t, s, "tags"))
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	id, err := s.Create(t.Context(), testBookmark("alice", "https://o.example", now), []string{"x"})
	require.NoError(t, err)

	err = s.Update(t.Context(), "bob", id, domain.BookmarkFields{Title: "t", Description: "d"}, nil, now)
	assert.ErrorIs(t, err, ErrRecordForbidden)

	err = s.Delete(t.Context(), "bob", id)
	assert.ErrorIs(t, err, ErrRecordForbidden)
	assert.Equal(t, 1, countRows(t, s, "bookmarks"))

	err = s.Delete(t.Context(), "alice", id+100)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, s.Delete(t.Context(), "alice", id))
	assert.Equal(t, 0, countRows(t, s, "bookmarks"))
	assert.Equal(t, 0, countRows(t, s, "bookmark_tags"))
	assert.Equal(t, 1, countRows(t, s, "tags"))

	_, err = s.ByID(t.Context(), id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTagCounts(t *testing.T) {
	s := setupTestDB(t)
	now := time.Now().UTC()

	_, err := s.Create(t.Context(), testBookmark("alice", "https://1.example", now), []string{"go", "db"})
	require.NoError(t, err)
	_, err = s.Create(t.Context(), testBookmark("bob", "https://2.example", now), []string{"go"})
	require.NoError(t, err)

	counts, err := s.TagCounts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []domain.TagCount{{Name: "go", Count: 2}, {Name: "db", Count: 1}}, counts)
}

func TestDeleteOrphanTags(t *testing.T) {
	s := setupTestDB(t)
	old := time.Now().UTC().Add(-48 * time.Hour)

	id, err := s.Create(t.Context(), testBookmark("alice", "https://gc.example", old), []string{"orphan", "used"})
	require.NoError(t, err)
	require.NoError(t, s.Update(t.Context(), "alice", id, domain.BookmarkFields{Title: "t", Description: "d"}, []string{"used"}, old))

	// a fresh orphan inside the grace period survives
	_, err = s.Create(t.Context(), testBookmark("alice", "https://fresh.example", time.Now().UTC()), []string{"fresh"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(t.Context(), "alice", id+1))

	deleted, err := s.DeleteOrphanTags(t.Context(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := s.TagCounts(t.Context())
	require.NoError(t, err)
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"used", "fresh"}, names)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
