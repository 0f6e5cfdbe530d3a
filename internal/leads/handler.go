package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/agency-backoffice/internal/export"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// ExportNotifier is told when an admin finishes a lead export.
type ExportNotifier interface {
	NotifyLeadsExported(ctx context.Context, rows int)
}

// Handler handles admin HTTP requests for leads
type Handler struct {
	store    *Store
	exporter *export.Exporter
	notifier ExportNotifier
	logger   *logging.Logger
}

// NewHandler creates a new leads handler. exporter and notifier may be nil.
func NewHandler(store *Store, exporter *export.Exporter, notifier ExportNotifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:    store,
		exporter: exporter,
		notifier: notifier,
		logger:   logger,
	}
}

// Routes mounts the admin lead endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/leads", h.ListLeads)
	r.Get("/leads/export.csv", h.ExportLeads)
	r.Get("/leads/{leadID}", h.GetLead)
	r.Patch("/leads/{leadID}", h.UpdateLead)
	r.Delete("/leads/{leadID}", h.DeleteLead)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	filter.Limit = 50

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	leads, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		jsonError(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/leads/{leadID}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.store.Get(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeStoreError(w, err, "failed to get lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// UpdateLead handles PATCH /admin/leads/{leadID}
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var upd LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if upd.Status == nil && upd.Notes == nil {
		jsonError(w, "nothing to update", http.StatusBadRequest)
		return
	}

	lead, err := h.store.Update(r.Context(), chi.URLParam(r, "leadID"), upd)
	if err != nil {
		h.writeStoreError(w, err, "failed to update lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /admin/leads/{leadID}. Deletion is permanent.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "leadID")); err != nil {
		h.writeStoreError(w, err, "failed to delete lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportLeads handles GET /admin/leads/export.csv with the list filters applied.
func (h *Handler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		jsonError(w, "export not configured", http.StatusServiceUnavailable)
		return
	}

	leads, err := h.store.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("failed to load leads for export", "error", err)
		jsonError(w, "failed to export leads", http.StatusInternalServerError)
		return
	}
	if len(leads) == 0 {
		jsonError(w, "no leads to export", http.StatusNotFound)
		return
	}

	file, err := h.exporter.Build(r.Context(), "leads", h.exportHeaders(), h.exportRows(leads), 2)
	if err != nil {
		h.logger.Error("failed to build lead export", "error", err)
		jsonError(w, "failed to export leads", http.StatusInternalServerError)
		return
	}

	h.logger.Info("leads exported", "rows", file.Rows, "file", file.Name)
	if h.notifier != nil {
		h.notifier.NotifyLeadsExported(r.Context(), file.Rows)
	}
	export.Serve(w, file)
}

func (h *Handler) exportHeaders() []string {
	return []string{
		"ID",
		"Name",
		"Phone",
		"Message",
		"Where Found",
		"Contact Method",
		"Status",
		"Country",
		"Region",
		"City",
		h.exporter.TimeHeader("Created At"),
	}
}

func (h *Handler) exportRows(leads []*Lead) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, lead := range leads {
		rows = append(rows, []string{
			lead.ID,
			lead.Name,
			lead.Phone,
			lead.Message,
			lead.WhereFound,
			string(lead.ContactMethod),
			string(lead.Status),
			lead.Country,
			lead.Region,
			lead.City,
			h.exporter.FormatTime(lead.CreatedAt),
		})
	}
	return rows
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrLeadNotFound):
		jsonError(w, "lead not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus):
		jsonError(w, "invalid status", http.StatusBadRequest)
	case errors.As(err, &verr):
		jsonError(w, verr.Message, http.StatusBadRequest)
	default:
		h.logger.Error(msg, "error", err)
		jsonError(w, msg, http.StatusInternalServerError)
	}
}

func filterFromQuery(r *http.Request) ListLeadsFilter {
	q := r.URL.Query()
	filter := ListLeadsFilter{
		Source: strings.TrimSpace(q.Get("source")),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if status := Status(strings.TrimSpace(q.Get("status"))); status.Valid() {
		filter.Status = status
	}
	if filter.Source == "all" {
		filter.Source = ""
	}
	return filter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
