package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

type (
	Registrar func(r chi.Router, d deps.Deps)
	// Guard builds a middleware once the dependencies are known.
	Guard func(d deps.Deps) func(http.Handler) http.Handler
)

type entry struct {
	name   string
	reg    Registrar
	guards []Guard
}

var registry []entry

// Register adds a route group. Guards wrap every route of the group, outermost first.
func Register(name string, reg Registrar, guards ...Guard) {
	registry = append(registry, entry{name: name, reg: reg, guards: guards})
}

// Names lists the registered groups in registration order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.name)
	}
	return out
}

// RegisterAll mounts every group on r. Called once per router.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.guards) == 0 {
			e.reg(r, d)
			continue
		}
		mws := make([]func(http.Handler) http.Handler, 0, len(e.guards))
		for _, g := range e.guards {
			mws = append(mws, g(d))
		}
		e.reg(r.With(mws...), d)
	}
}

// LoopbackCIDRs guard the admin routes when no allow-list is configured.
var LoopbackCIDRs = []string{"127.0.0.0/8", "::1/128"}

func adminOnly(d deps.Deps) func(http.Handler) http.Handler {
	allowed := d.AllowedCIDRS
	if len(allowed) == 0 {
		allowed = LoopbackCIDRs
	}
	return mw.AllowOnlyCIDRS(allowed, d.TrustProxy, d.Logger)
}

func sameHost(d deps.Deps) func(http.Handler) http.Handler {
	return mw.EnforceHost(d.AllowedHosts, d.Logger)
}

func loggedIn(d deps.Deps) func(http.Handler) http.Handler {
	return mw.RequireIdentity(d.Verifier, d.Logger)
}
