package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

const readyTimeout = 2 * time.Second

type readyzResponse struct {
	Ready    bool   `json:"ready"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Readyz reports ready when the database answers and, if configured, Redis
// does too.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		resp := readyzResponse{Ready: true, Database: "ok", Cache: d.CacheMode}
		if resp.Cache == "" {
			resp.Cache = "off"
		}

		if d.DB == nil {
			resp.Ready, resp.Database = false, "not configured"
		} else if err := d.DB.PingContext(ctx); err != nil {
			d.Logger.Warn("readiness: database ping failed", logger.Error(err))
			resp.Ready, resp.Database = false, "unreachable"
		}

		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				d.Logger.Warn("readiness: redis ping failed", logger.Error(err))
				resp.Ready, resp.Cache = false, "unreachable"
			}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
