package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	Database      string  `json:"database,omitempty"`
	MetadataCache string  `json:"metadata_cache,omitempty"`
}

// Healthz is the liveness probe. It never touches the database or redis.

func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			Database:      d.DBDriver,
			MetadataCache: d.CacheMode,
			UptimeSeconds: now().Sub(start).Seconds(),
		})
	}
}
