package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() {
	Register("liveness", registerLiveness)
	Register("probes", registerProbes, adminOnly)
}

func registerLiveness(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}

// registerProbes wires readiness and component status.
func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
	r.Get("/infra", handlers.Infra(d))
}
