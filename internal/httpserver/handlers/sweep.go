package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

type sweepResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Sweep triggers a manual orphan tag collection.
func Sweep(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SweepTrigger == nil {
			writeJSON(w, http.StatusServiceUnavailable, sweepResponse{Message: "tag collector not running"})
			return
		}

		select {
		case d.SweepTrigger <- struct{}{}:
			d.Logger.Info("manual tag sweep triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, sweepResponse{Triggered: true, Message: "tag sweep triggered"})
		default:
			d.Logger.Warn("tag sweep already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, sweepResponse{Message: "tag sweep already pending, please wait"})
		}
	}
}
