package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type tagsResponse struct {
	Tags []domain.TagCount `json:"tags"`
}

// Tags lists every tag with the number of bookmarks using it.
func Tags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := d.Bookmarks.TagCounts(r.Context(), auth.OwnerID(r.Context()))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, tagsResponse{Tags: counts})
	}
}
