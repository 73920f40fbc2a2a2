package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	Mode        string `json:"mode,omitempty"`
	LastRun     string `json:"last_run,omitempty"`
	LastDeleted *int64 `json:"last_deleted,omitempty"`
	Entries     *int   `json:"entries,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"database": checkDatabase(ctx, d),
			"cache":    checkCache(ctx, d),
		}
		if d.Collector != nil {
			components["tag_collector"] = collectorStatus(d)
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if db, ok := components["database"]; ok && !db.OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "optimal"
}

func checkDatabase(ctx context.Context, d deps.Deps) componentStatus {
	if d.DB == nil {
		return componentStatus{OK: false, Error: "not configured"}
	}
	if err := d.DB.PingContext(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.DBDriver, Error: "unreachable"}
	}
	return componentStatus{OK: true, Mode: d.DBDriver}
}

func checkCache(ctx context.Context, d deps.Deps) componentStatus {
	switch d.CacheMode {
	case "redis":
		if d.RedisClient == nil {
			return componentStatus{OK: false, Mode: "redis", Impact: "metadata-cache-disabled", Error: "client not initialized"}
		}
		if err := d.RedisClient.Ping(ctx).Err(); err != nil {
			return componentStatus{OK: false, Mode: "redis", Impact: "metadata-cache-disabled", Error: "timeout"}
		}
		return componentStatus{OK: true, Mode: "redis"}
	case "memory":
		cs := componentStatus{OK: true, Mode: "memory"}
		if c, ok := d.Cache.(interface{ Count() int }); ok {
			n := c.Count()
			cs.Entries = &n
		}
		return cs
	default:
		return componentStatus{OK: true, Mode: "off", Impact: "every extraction fetches the page"}
	}
}

func collectorStatus(d deps.Deps) componentStatus {
	st := d.Collector.Status()

	cs := componentStatus{OK: st.LastError == nil, Mode: "manual", LastRun: "never"}
	if st.Interval > 0 {
		cs.Mode = "every " + st.Interval.String()
	}
	if !st.LastRun.IsZero() {
		cs.LastRun = st.LastRun.Format(time.RFC3339)
		deleted := st.LastDeleted
		cs.LastDeleted = &deleted
	}
	if st.LastError != nil {
		cs.Error = st.LastError.Error()
	}
	return cs
}
