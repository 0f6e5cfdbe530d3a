package contact

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"github.com/wolfman30/agency-backoffice/internal/http/middleware"
	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

const maxFormBytes = 16 * 1024

// Handler serves the public contact endpoints.
type Handler struct {
	flow   *Flow
	logger *logging.Logger
}

func NewHandler(flow *Flow, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{flow: flow, logger: logger}
}

// Routes mounts the public contact endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/contact", h.Submit)
	r.Get("/contact/countries", h.ListCountries)
	r.Get("/contact/qr/{channel}", h.ChannelQR)
}

type submitResponse struct {
	Outcome
	RedirectAfterMS int64 `json:"redirect_after_ms,omitempty"`
}

// Submit handles POST /contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var form Form
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&form); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	out := h.flow.Submit(r.Context(), Client{
		SessionID: strings.TrimSpace(r.Header.Get("X-Session-Id")),
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}, form)

	if out.Silent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, statusFor(out), submitResponse{Outcome: out, RedirectAfterMS: out.RedirectAfter.Milliseconds()})
}

func statusFor(out Outcome) int {
	switch out.State {
	case StateRedirecting:
		if out.LeadID != "" {
			return http.StatusCreated
		}
		return http.StatusOK
	case StatePersistFailed:
		return http.StatusServiceUnavailable
	case StateRejected:
		if out.Message == MsgTooQuickly {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ListCountries handles GET /contact/countries
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Countries)
}

// ChannelQR handles GET /contact/qr/{channel}: a PNG of the channel link
// without a prefilled message, for desktop visitors to scan.
func (h *Handler) ChannelQR(w http.ResponseWriter, r *http.Request) {
	method := leads.ContactMethod(strings.ToLower(chi.URLParam(r, "channel")))
	if !method.Valid() {
		jsonError(w, "unknown channel", http.StatusNotFound)
		return
	}
	png, err := qrcode.Encode(h.flow.cfg.Channels.DeepLink(method, ""), qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("contact: qr encode failed", "error", err, "channel", method)
		jsonError(w, "failed to render code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
