package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/garuda-portal/apiserver/internal/services"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Stable machine-readable error kinds returned to clients.
const (
	kindValidation     = "validation"
	kindConflict       = "conflict"
	kindAuthentication = "authentication"
	kindForbidden      = "forbidden"
	kindNotFound       = "not_found"
	kindUnavailable    = "unavailable"
	kindInternal       = "internal"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func identityFromContext(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	return identity, ok
}

func withIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Error: message})
}

// writeServiceError translates the service taxonomy into HTTP. Anything
// outside the taxonomy is logged and surfaced as a bare internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, kindValidation, validationErr.Error())
	case errors.Is(err, services.ErrAccountExists):
		writeError(w, http.StatusConflict, kindConflict, services.ErrAccountExists.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, kindAuthentication, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, kindAuthentication, "unauthorized")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, kindForbidden, "forbidden")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, services.ErrNotFound.Error())
	case errors.Is(err, services.ErrExportsDisabled):
		writeError(w, http.StatusServiceUnavailable, kindUnavailable, services.ErrExportsDisabled.Error())
	default:
		log.Printf("handlers: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, kindInternal, "internal server error")
	}
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("page must be a positive integer")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("limit must be a positive integer")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit, nil
}
