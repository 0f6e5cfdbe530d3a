// Package realtime pushes notification row changes to connected admin
// clients over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Hub tracks websocket subscribers per admin user id.
type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[*client]struct{}
	logger *logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		users:  make(map[string]map[*client]struct{}),
		logger: logger,
	}
}

// Publish delivers the change to the subscribers of change.New.UserID on
// this instance.
func (h *Hub) Publish(ctx context.Context, change notify.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		h.logger.Error("realtime: encode change failed", "error", err)
		return
	}
	h.deliver(change.New.UserID, payload)
}

func (h *Hub) deliver(userID string, payload []byte) {
	if userID == "" {
		return
	}
	var slow []*client
	h.mu.RLock()
	for c := range h.users[userID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("realtime: dropping slow subscriber", "user_id", userID)
		h.leave(c)
	}
}

// Subscribers reports how many connections are open for the user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
}

// leave unregisters c and closes its send channel exactly once. Sends
// happen under the read lock, so a closed channel is never written.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.users[c.userID]
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, subs := range h.users {
		for c := range subs {
			close(c.send)
		}
		delete(h.users, userID)
	}
}

var _ notify.Publisher = (*Hub)(nil)
