package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// RequireIdentity rejects requests without a valid bearer token and puts the
// caller's identity on the request context.
func RequireIdentity(v TokenVerifier, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			id, err := v.Verify(token)
			if err != nil {
				log.Debug("bearer token rejected",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="stash"`)
				writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
