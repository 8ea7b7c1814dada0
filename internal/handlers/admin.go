package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/garuda-portal/apiserver/internal/services"
	"github.com/garuda-portal/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler provides the role-gated user-directory endpoints.
type AdminHandler struct {
	directory *services.DirectoryService
	export    *services.ExportService
}

// NewAdminHandler constructs an AdminHandler with the provided services.
func NewAdminHandler(directory *services.DirectoryService, export *services.ExportService) *AdminHandler {
	return &AdminHandler{directory: directory, export: export}
}

// AdminRouter registers admin routes on the given router. Every route
// requires authentication plus an Admin or SuperAdmin role.
func AdminRouter(r chi.Router, directory *services.DirectoryService, export *services.ExportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAdminHandler(directory, export)

	r.Use(authMiddleware, requireAdmin)
	r.Get("/users", handler.ListUsers)
	r.Post("/users/export", handler.ExportUsers)
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/role", handler.SetRole)
		r.Put("/status", handler.SetStatus)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, kindAuthentication, "unauthorized")
			return
		}
		if !identity.Role.CanAdminister() {
			writeError(w, http.StatusForbidden, kindForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	items, total, err := h.directory.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	user, err := h.directory.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuthentication, "unauthorized")
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid request body")
		return
	}

	user, err := h.directory.SetRole(r.Context(), identity, id, types.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type SetStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuthentication, "unauthorized")
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, kindValidation, "is_active is required")
		return
	}

	user, err := h.directory.SetStatus(r.Context(), identity, id, *req.IsActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type ExportResponse struct {
	Key string `json:"key"`
}

func (h *AdminHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuthentication, "unauthorized")
		return
	}

	key, err := h.export.ExportUsers(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ExportResponse{Key: key})
}

func parseUserID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("user id must be a positive integer")
	}
	return id, nil
}
