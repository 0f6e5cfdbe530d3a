package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/agency-backoffice/internal/http/middleware"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// EventSink fans out an event without blocking the request.
type EventSink interface {
	Go(ctx context.Context, ev Event)
}

// Handler serves the admin notification endpoints.
type Handler struct {
	service *Service
	events  EventSink
	logger  *logging.Logger
}

// NewHandler creates the notification handler. events may be nil.
func NewHandler(service *Service, events EventSink, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, events: events, logger: logger}
}

// Routes mounts the endpoints under an admin-authenticated router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Post("/notifications/read-all", h.MarkAllRead)
	r.Post("/notifications/{notificationID}/read", h.MarkRead)
	r.Get("/settings/notifications", h.GetSettings)
	r.Put("/settings/notifications", h.UpdateSettings)
	r.Post("/sessions", h.RecordLogin)
}

// MarkAllReadResponse lists exactly the rows the server flipped, so clients
// leave anything that arrived afterwards unread.
type MarkAllReadResponse struct {
	Updated int      `json:"updated"`
	IDs     []string `json:"ids"`
}

type listResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

// List handles GET /admin/notifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	list, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		jsonError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, listResponse{Notifications: list, UnreadCount: unread})
}

// MarkRead handles POST /admin/notifications/{notificationID}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "notificationID")
	if _, err := uuid.Parse(id); err != nil {
		jsonError(w, "notification not found", http.StatusNotFound)
		return
	}
	n, changed, err := h.service.MarkRead(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			jsonError(w, "notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to mark notification read", "error", err, "user_id", userID)
		jsonError(w, "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notification": n, "changed": changed})
}

// MarkAllRead handles POST /admin/notifications/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	ids, err := h.service.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to mark all notifications read", "error", err, "user_id", userID)
		jsonError(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: len(ids), IDs: ids})
}

// GetSettings handles GET /admin/settings/notifications
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	settings, err := h.service.Settings(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", userID)
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /admin/settings/notifications
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	var patch SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), userID, patch)
	if err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			jsonError(w, strings.TrimPrefix(err.Error(), ErrInvalidSettings.Error()+": "), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to save settings", "error", err, "user_id", userID)
		jsonError(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	if h.events != nil {
		h.events.Go(r.Context(), SettingsSaved())
	}
	writeJSON(w, http.StatusOK, settings)
}

// RecordLogin handles POST /admin/sessions, sent by admin clients after sign-in.
func (h *Handler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.adminID(w, r); !ok {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Email) == "" {
		jsonError(w, "email is required", http.StatusBadRequest)
		return
	}
	if h.events != nil {
		h.events.Go(r.Context(), AdminLogin(strings.TrimSpace(body.Email)))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminID(w http.ResponseWriter, r *http.Request) (string, bool) {
	// Subjects key uuid columns; any other value is not an admin of ours.
	id := middleware.AdminIDFromContext(r.Context())
	if _, err := uuid.Parse(id); err != nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
