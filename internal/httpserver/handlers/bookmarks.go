package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type saveRequest struct {
	URL         string  `json:"url" validate:"required,httpurl,max=2048"`
	Title       string  `json:"title" validate:"max=1000"`
	Description string  `json:"description" validate:"max=5000"`
	Image       *string `json:"image" validate:"omitempty,httpurl,max=2048"`
	Tags        string  `json:"tags" validate:"max=1000"`
}

type saveResponse struct {
	ID int64 `json:"id"`
}

type updateRequest struct {
	Title       string `json:"title" validate:"max=1000"`
	Description string `json:"description" validate:"max=5000"`
	Tags        string `json:"tags" validate:"max=1000"`
}

type listResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

// SaveBookmark stores the posted metadata for the caller.
func SaveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		meta := domain.Metadata{
			URL:         req.URL,
			Title:       req.Title,
			Description: req.Description,
			Image:       req.Image,
		}
		id, err := d.Bookmarks.Save(r.Context(), auth.OwnerID(r.Context()), meta, req.Tags)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		writeJSON(w, http.StatusCreated, saveResponse{ID: id})
	}
}

// ListBookmarks returns the caller's bookmarks, optionally filtered by ?q=.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bs, err := d.Bookmarks.List(r.Context(), auth.OwnerID(r.Context()), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Bookmarks: bs})
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookmarkID(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		b, err := d.Bookmarks.Get(r.Context(), auth.OwnerID(r.Context()), id)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// UpdateBookmark replaces title, description and tags.
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookmarkID(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		var req updateRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		fields := domain.BookmarkFields{Title: req.Title, Description: req.Description}
		if err := d.Bookmarks.Update(r.Context(), auth.OwnerID(r.Context()), id, fields, req.Tags); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bookmarkID(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		if err := d.Bookmarks.Delete(r.Context(), auth.OwnerID(r.Context()), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
