package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

const (
	maxBodyBytes = 1 << 20

	msgStorage = "something went wrong, please try again"
	msgFetch   = "failed to fetch page"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorStatus translates a core error into an HTTP status and the message
// shown to the client. Storage details never leave the server.
func ErrorStatus(err error) (int, string) {
	switch domain.KindOf(err) {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	case domain.KindForbidden:
		return http.StatusForbidden, domain.ErrForbidden.Error()
	case domain.KindNotFound:
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case domain.KindDuplicateURL:
		return http.StatusConflict, domain.ErrDuplicateURL.Error()
	case domain.KindInvalidInput:
		return http.StatusBadRequest, err.Error()
	case domain.KindHTTPStatus, domain.KindTransport:
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return http.StatusBadGateway, fmt.Sprintf("%s: %s", msgFetch, fe.Error())
		}
		return http.StatusBadGateway, msgFetch
	default:
		return http.StatusInternalServerError, msgStorage
	}
}

func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	status, msg := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		d.Logger.Debug("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, d deps.Deps, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	if d.Validator != nil {
		if err := d.Validator.Struct(dst); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, validationMessage(err))
		}
	}
	return nil
}

func bookmarkID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad bookmark id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}
