package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/agency-backoffice/internal/export"
	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

const maxPageViewBytes = 8 << 10

// VisitSource loads visits for a range.
type VisitSource interface {
	ListSince(ctx context.Context, since time.Time) ([]Visit, error)
}

// LeadSource loads leads for a range.
type LeadSource interface {
	ListSince(ctx context.Context, since time.Time) ([]*leads.Lead, error)
}

// ExportNotifier is told when an admin finishes a visitor export.
type ExportNotifier interface {
	NotifyVisitsExported(ctx context.Context, rows int)
}

// Handler serves the admin analytics dashboard and the public page-view relay.
type Handler struct {
	visits   VisitSource
	leads    LeadSource
	exporter *export.Exporter
	notifier ExportNotifier
	tracker  *Tracker
	loc      *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler wires the dashboard. exporter, notifier and tracker may be nil.
func NewHandler(visits VisitSource, leadSource LeadSource, exporter *export.Exporter, notifier ExportNotifier, tracker *Tracker, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		visits:   visits,
		leads:    leadSource,
		exporter: exporter,
		notifier: notifier,
		tracker:  tracker,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes mounts the admin analytics endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/analytics", h.Summary)
	r.Get("/analytics/visits.csv", h.ExportVisits)
}

// PublicRoutes mounts the page-view relay.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/visits", h.TrackVisit)
}

type summaryResponse struct {
	Range Range     `json:"range"`
	Since time.Time `json:"since"`
	Report
}

// Summary handles GET /admin/analytics?range=today|7d|30d
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, since, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	visits, err := h.visits.ListSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load visits", "error", err)
		jsonError(w, "failed to load analytics", http.StatusInternalServerError)
		return
	}
	leadRows, err := h.leads.ListSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load leads for analytics", "error", err)
		jsonError(w, "failed to load analytics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Range:  rng,
		Since:  since,
		Report: Aggregate(visits, leadRows),
	})
}

// ExportVisits handles GET /admin/analytics/visits.csv
func (h *Handler) ExportVisits(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		jsonError(w, "export not configured", http.StatusServiceUnavailable)
		return
	}
	_, since, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	visits, err := h.visits.ListSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load visits for export", "error", err)
		jsonError(w, "failed to export visitors", http.StatusInternalServerError)
		return
	}
	if len(visits) == 0 {
		jsonError(w, "no visitors to export", http.StatusNotFound)
		return
	}

	file, err := h.exporter.Build(r.Context(), "visitors", h.exportHeaders(), h.exportRows(visits))
	if err != nil {
		h.logger.Error("failed to build visitor export", "error", err)
		jsonError(w, "failed to export visitors", http.StatusInternalServerError)
		return
	}

	h.logger.Info("visitors exported", "rows", file.Rows, "file", file.Name)
	if h.notifier != nil {
		h.notifier.NotifyVisitsExported(r.Context(), file.Rows)
	}
	export.Serve(w, file)
}

// TrackVisit handles POST /visits. Tracking is best-effort so the caller
// always gets 202.
func (h *Handler) TrackVisit(w http.ResponseWriter, r *http.Request) {
	var pv PageView
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPageViewBytes)).Decode(&pv); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(pv.Path) == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	if pv.UserAgent == "" {
		pv.UserAgent = r.UserAgent()
	}
	tracked := h.tracker.Track(r.Context(), pv)
	writeJSON(w, http.StatusAccepted, map[string]bool{"tracked": tracked})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, time.Time, bool) {
	rng, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		jsonError(w, "range must be today, 7d or 30d", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	return rng, rng.Since(h.now(), h.loc), true
}

func (h *Handler) exportHeaders() []string {
	return []string{
		"Session ID",
		"Path",
		"Referrer",
		"Country",
		"Region",
		"City (Approx)",
		"Device",
		"Browser",
		h.exporter.TimeHeader("Occurred At"),
	}
}

func (h *Handler) exportRows(visits []Visit) [][]string {
	rows := make([][]string, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, []string{
			v.SessionID,
			v.Path,
			v.Referrer,
			v.Country,
			v.Region,
			v.City,
			v.Device,
			v.Browser,
			h.exporter.FormatTime(v.OccurredAt),
		})
	}
	return rows
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
