package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/agency-backoffice/internal/http/middleware"
)

// Handler upgrades authenticated admin requests to a change stream.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts browser origins under the same policy as CORS.
// Requests without an Origin header, such as the terminal client, are accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	policy := middleware.NewOriginPolicy(allowedOrigins)
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || policy.Allows(origin)
			},
		},
	}
}

// ServeHTTP handles GET /admin/notifications/stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.AdminIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("realtime: upgrade failed", "error", err, "user_id", userID)
		return
	}
	c := newClient(h.hub, userID, conn)
	h.hub.join(c)
	h.hub.logger.Debug("realtime: subscriber connected", "user_id", userID)
	go c.writePump()
	go c.readPump()
}
