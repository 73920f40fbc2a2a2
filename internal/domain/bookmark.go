package domain

import "time"

const (
	// DefaultTitle is stored when a page exposes no usable title.
	DefaultTitle = "제목 없음"
	// DefaultDescription is stored when a page exposes no usable description.
	DefaultDescription = "설명 없음"
)

// Bookmark is a saved link owned by exactly one user.
type Bookmark struct {
	ID          int64     `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"-"`
	URL         string    `db:"url" json:"url"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Image       *string   `db:"image" json:"image"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Tags        []string  `db:"-" json:"tags"`
}

// Metadata is what the extractor learns about a page, and what a save
// request carries in.
type Metadata struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// BookmarkFields are the user-editable columns of a bookmark.
type BookmarkFields struct {
	Title       string
	Description string
}

// TagCount pairs a tag with the number of bookmarks referencing it.
type TagCount struct {
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}

// OrDefault returns v, or def when v is blank.
func OrDefault(v, def string) string {
	if isBlank(v) {
		return def
	}
	return v
}
