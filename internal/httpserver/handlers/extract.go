package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

type extractRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// Extract fetches the page at the posted URL and returns its preview
// metadata. Nothing is stored.
func Extract(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.OwnerID(r.Context()) == "" {
			writeError(w, r, d, domain.ErrUnauthenticated)
			return
		}

		var req extractRequest
		if err := decode(r, d, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		meta, err := d.Extractor.Extract(r.Context(), req.URL)
		if err != nil {
			d.Logger.Debug("extraction failed",
				logger.String("url", req.URL),
				logger.String("kind", domain.KindOf(err).String()))
			writeError(w, r, d, err)
			return
		}

		writeJSON(w, http.StatusOK, meta)
	}
}
