package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() { Register("admin", registerAdmin, adminOnly, sameHost) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Post("/api/admin/tags/sweep", handlers.Sweep(d))
	r.Post("/api/admin/cache/flush", handlers.FlushCache(d))
}
