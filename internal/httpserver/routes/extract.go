package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

// outbound fetches are budgeted per owner, so identity runs first
func init() { Register("extract", registerExtract, loggedIn) }

func registerExtract(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Name:              "extract",
		Burst:             d.ExtractBurst,
		RefillPerIPPerMin: d.ExtractRefill,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
		Key:               mw.OwnerKey(d.TrustProxy),
	})

	r.With(limit).Post("/api/extract", handlers.Extract(d))
}
