package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

type cacheFlushResponse struct {
	Removed int    `json:"removed"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// FlushCache drops cached page metadata: the entry for ?url= when given,
// everything otherwise.
func FlushCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Cache == nil {
			writeJSON(w, http.StatusServiceUnavailable, cacheFlushResponse{Message: "metadata cache disabled"})
			return
		}

		if target := strings.TrimSpace(r.URL.Query().Get("url")); target != "" {
			if err := d.Cache.InvalidateMetadata(r.Context(), target); err != nil {
				d.Logger.Error("metadata invalidation failed", logger.String("url", target), logger.Error(err))
				writeJSON(w, http.StatusInternalServerError, cacheFlushResponse{URL: target, Message: "invalidation failed"})
				return
			}
			d.Logger.Info("metadata cache entry invalidated", logger.String("url", target))
			writeJSON(w, http.StatusOK, cacheFlushResponse{Removed: 1, URL: target})
			return
		}

		removed, err := d.Cache.FlushMetadata(r.Context())
		if err != nil {
			d.Logger.Error("metadata cache flush failed", logger.Int("removed", removed), logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, cacheFlushResponse{Removed: removed, Message: "flush failed"})
			return
		}
		d.Logger.Info("metadata cache flushed",
			logger.Int("removed", removed),
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusOK, cacheFlushResponse{Removed: removed})
	}
}
